package entities

// ScriptManifest declares a plug-in implemented by a script file.
type ScriptManifest struct {
	Name        string         `json:"name" yaml:"name" validate:"required"`
	Version     string         `json:"version" yaml:"version" validate:"required"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Creator     string         `json:"creator,omitempty" yaml:"creator,omitempty"`
	Script      string         `json:"script" yaml:"script" validate:"required,excludesall=/\\"`
	Inputs      []ArgumentSpec `json:"inputs,omitempty" yaml:"inputs,omitempty" validate:"dive"`
	Outputs     []ArgumentSpec `json:"outputs,omitempty" yaml:"outputs,omitempty" validate:"dive"`
}

// ArgumentSpec declares one argument of a manifest.
type ArgumentSpec struct {
	Default     any    `json:"default,omitempty" yaml:"default,omitempty"`
	Name        string `json:"name" yaml:"name" validate:"required"`
	Type        string `json:"type" yaml:"type" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// BuildArgumentList creates an ArgumentList from specs, coercing defaults to
// the declared types.
func BuildArgumentList(specs []ArgumentSpec) (*ArgumentList, error) {
	list := NewArgumentList()
	for _, s := range specs {
		def, err := Coerce(s.Type, s.Default)
		if err != nil {
			return nil, err
		}
		if err := list.Add(s.Name, s.Type, WithDefault(def), WithDescription(s.Description)); err != nil {
			return nil, err
		}
	}
	return list, nil
}

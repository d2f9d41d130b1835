package entities

import (
	"fmt"
)

// Argument is a named, typed value slot of an ArgumentList.
// The type name is fixed at creation; default and actual values are either
// absent (nil) or compatible with it.
type Argument struct {
	defaultValue any
	actualValue  any
	name         string
	typeName     string
	description  string
}

// ArgumentOption configures an Argument at creation.
type ArgumentOption func(*argumentConfig)

type argumentConfig struct {
	defaultValue any
	description  string
}

// WithDefault sets the default value of the argument.
func WithDefault(v any) ArgumentOption {
	return func(c *argumentConfig) {
		c.defaultValue = v
	}
}

// WithDescription sets a human-readable description.
func WithDescription(desc string) ArgumentOption {
	return func(c *argumentConfig) {
		c.description = desc
	}
}

// NewArgument creates an argument. It fails if the default value does not
// match typeName.
func NewArgument(name, typeName string, opts ...ArgumentOption) (*Argument, error) {
	if name == "" {
		return nil, fmt.Errorf("argument name cannot be empty")
	}
	if typeName == "" {
		return nil, fmt.Errorf("argument %q: type name cannot be empty", name)
	}
	var cfg argumentConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := CheckValue(typeName, cfg.defaultValue); err != nil {
		return nil, fmt.Errorf("argument %q default: %w", name, err)
	}
	return &Argument{
		name:         name,
		typeName:     typeName,
		description:  cfg.description,
		defaultValue: cfg.defaultValue,
	}, nil
}

// Name returns the argument name.
func (a *Argument) Name() string { return a.name }

// Type returns the declared type name.
func (a *Argument) Type() string { return a.typeName }

// Description returns the argument description.
func (a *Argument) Description() string { return a.description }

// Default returns the default value, or nil.
func (a *Argument) Default() any { return a.defaultValue }

// Actual returns the actual value, or nil.
func (a *Argument) Actual() any { return a.actualValue }

// Value returns the actual value if set, else the default.
// The boolean is false when neither is present.
func (a *Argument) Value() (any, bool) {
	if a.actualValue != nil {
		return a.actualValue, true
	}
	if a.defaultValue != nil {
		return a.defaultValue, true
	}
	return nil, false
}

// IsSet reports whether an actual or default value is present.
func (a *Argument) IsSet() bool {
	_, ok := a.Value()
	return ok
}

// SetActual stores v as the actual value. nil clears it.
func (a *Argument) SetActual(v any) error {
	if err := CheckValue(a.typeName, v); err != nil {
		return fmt.Errorf("argument %q: %w", a.name, err)
	}
	a.actualValue = v
	return nil
}

// SetDefault stores v as the default value. nil clears it.
func (a *Argument) SetDefault(v any) error {
	if err := CheckValue(a.typeName, v); err != nil {
		return fmt.Errorf("argument %q default: %w", a.name, err)
	}
	a.defaultValue = v
	return nil
}

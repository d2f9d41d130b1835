package ports

import "github.com/reglet-dev/reglet-script/domain/entities"

// ManifestValidator validates script plug-in manifests.
type ManifestValidator interface {
	// Validate checks required fields and argument declarations.
	Validate(manifest *entities.ScriptManifest) (*entities.ValidationResult, error)
}

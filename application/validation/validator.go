// Package validation checks manifests and configuration with struct tags.
package validation

import (
	stdErrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = validator.New()

// ManifestValidator implements ports.ManifestValidator.
type ManifestValidator struct{}

// NewManifestValidator creates a new validator.
func NewManifestValidator() ports.ManifestValidator {
	return &ManifestValidator{}
}

// Validate checks required manifest fields and that every argument section
// builds into a well-typed argument list.
func (v *ManifestValidator) Validate(manifest *entities.ScriptManifest) (*entities.ValidationResult, error) {
	if manifest == nil {
		return nil, fmt.Errorf("manifest is nil")
	}

	result := &entities.ValidationResult{Valid: true}

	if err := validate.Struct(manifest); err != nil {
		var fieldErrs validator.ValidationErrors
		if !stdErrors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("failed to validate manifest: %w", err)
		}
		for _, fe := range fieldErrs {
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   fe.Namespace(),
				Message: fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			})
		}
	}

	for _, section := range []struct {
		field string
		specs []entities.ArgumentSpec
	}{
		{"inputs", manifest.Inputs},
		{"outputs", manifest.Outputs},
	} {
		if _, err := entities.BuildArgumentList(section.specs); err != nil {
			result.Errors = append(result.Errors, entities.ValidationError{
				Field:   section.field,
				Message: err.Error(),
			})
		}
	}

	if len(result.Errors) > 0 {
		result.Valid = false
	}
	return result, nil
}

// ValidateConfig checks interpreter configuration, reporting the first
// failing field as a ConfigError.
func ValidateConfig(cfg *entities.Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if stdErrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &errors.ConfigError{
			Field: fe.Namespace(),
			Err:   fmt.Errorf("failed on the '%s' rule (value %v)", fe.Tag(), fe.Value()),
		}
	}
	return &errors.ConfigError{Err: err}
}

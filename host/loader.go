package host

import (
	"fmt"
	"os"

	apptemplate "github.com/reglet-dev/reglet-script/application/template"
	"github.com/reglet-dev/reglet-script/application/validation"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/ports"
	"github.com/reglet-dev/reglet-script/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	templateEngine  ports.TemplateEngine
	parser          ports.ManifestParser
	validator       ports.ManifestValidator
	strictTemplates bool // Fail on missing template keys
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYamlManifestParser(),
		validator:       validation.NewManifestValidator(),
		strictTemplates: true,
	}
}

// Loader orchestrates the script manifest loading pipeline: render, parse,
// validate.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom manifest parser.
func WithParser(p ports.ManifestParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithManifestValidator sets the manifest validator.
func WithManifestValidator(v ports.ManifestValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), template rendering fails if a referenced key is missing.
// Disable only for development or when missing keys should become empty strings.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) *Loader {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}
	return &Loader{config: cfg}
}

// LoadManifest renders raw with config, then parses and validates it.
func (l *Loader) LoadManifest(raw []byte, config map[string]interface{}) (*entities.ScriptManifest, error) {
	data, err := l.config.templateEngine.Render(raw, config)
	if err != nil {
		return nil, fmt.Errorf("failed to render manifest: %w", err)
	}

	manifest, err := l.config.parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if l.config.validator != nil {
		res, err := l.config.validator.Validate(manifest)
		if err != nil {
			return nil, fmt.Errorf("validation error: %w", err)
		}
		if !res.Valid {
			msg := "manifest validation failed:"
			for _, e := range res.Errors {
				msg += fmt.Sprintf("\n- %s: %s", e.Field, e.Message)
			}
			return nil, fmt.Errorf("%s", msg)
		}
	}

	return manifest, nil
}

// LoadManifestFile reads and loads the manifest at path.
func (l *Loader) LoadManifestFile(path string, config map[string]interface{}) (*entities.ScriptManifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return l.LoadManifest(raw, config)
}

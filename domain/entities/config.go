package entities

// Config represents interpreter configuration settings.
type Config struct {
	// SupportDir is the only directory scripts may load modules from.
	// Empty selects the bundled support scripts.
	SupportDir string `json:"support_dir,omitempty" yaml:"support_dir,omitempty" toml:"support_dir"`

	// StartupScript is a file in SupportDir run once by Start. Empty disables it.
	StartupScript string `json:"startup_script,omitempty" yaml:"startup_script,omitempty" toml:"startup_script" validate:"omitempty,excludesall=/\\"`

	// Prelude lists modules required into every context and bound to a
	// global of the same name.
	Prelude []string `json:"prelude,omitempty" yaml:"prelude,omitempty" toml:"prelude" validate:"dive,required,excludesall=/\\"`

	// Prompt is shown by interactive front ends.
	Prompt string `json:"prompt" yaml:"prompt" toml:"prompt" validate:"required"`

	// LogLevel is the logging verbosity level (e.g., "debug", "info", "warn", "error").
	LogLevel string `json:"log_level,omitempty" yaml:"log_level,omitempty" toml:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// ShowGlobalOutput also routes scoped output to the global listener.
	ShowGlobalOutput bool `json:"show_global_output" yaml:"show_global_output" toml:"show_global_output"`

	// StrictMode compiles every command in ECMAScript strict mode.
	StrictMode bool `json:"strict_mode" yaml:"strict_mode" toml:"strict_mode"`
}

// DefaultConfig returns the default interpreter configuration.
func DefaultConfig() Config {
	return Config{
		StartupScript: "init.js",
		Prelude:       []string{"console"},
		Prompt:        "> ",
		LogLevel:      "info",
	}
}

// ConfigOption is a functional option for configuring interpreter settings.
type ConfigOption func(*Config)

// WithSupportDir sets the module directory.
func WithSupportDir(dir string) ConfigOption {
	return func(c *Config) {
		c.SupportDir = dir
	}
}

// WithStartupScript sets the startup script name. Empty disables it.
func WithStartupScript(name string) ConfigOption {
	return func(c *Config) {
		c.StartupScript = name
	}
}

// WithPrelude sets the prelude modules.
func WithPrelude(modules ...string) ConfigOption {
	return func(c *Config) {
		c.Prelude = modules
	}
}

// WithShowGlobalOutput sets the initial global output visibility.
func WithShowGlobalOutput(show bool) ConfigOption {
	return func(c *Config) {
		c.ShowGlobalOutput = show
	}
}

// WithStrictMode enables strict-mode compilation.
func WithStrictMode(enabled bool) ConfigOption {
	return func(c *Config) {
		c.StrictMode = enabled
	}
}

// WithLogLevel sets the logging verbosity level.
func WithLogLevel(level string) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

// NewConfig creates a new Config with the given options.
func NewConfig(opts ...ConfigOption) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

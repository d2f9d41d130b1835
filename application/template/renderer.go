// Package template renders script plug-in manifests before they are parsed.
package template

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"text/template"

	"github.com/reglet-dev/reglet-script/domain/ports"
)

type templateConfig struct {
	funcs  template.FuncMap
	strict bool
}

func defaultTemplateConfig() templateConfig {
	return templateConfig{
		strict: true,
		funcs: template.FuncMap{
			"env":   os.Getenv,
			"quote": strconv.Quote,
			"default": func(def, v any) any {
				if v == nil || v == "" {
					return def
				}
				return v
			},
		},
	}
}

// TemplateOption configures a GoTemplateEngine.
type TemplateOption func(*templateConfig)

// WithStrict makes a reference to a missing key fail the render. It is on
// by default; off, missing keys render as "<no value>".
func WithStrict(enabled bool) TemplateOption {
	return func(c *templateConfig) {
		c.strict = enabled
	}
}

// WithFuncs adds template functions, replacing built-ins of the same name.
func WithFuncs(funcs template.FuncMap) TemplateOption {
	return func(c *templateConfig) {
		for name, fn := range funcs {
			c.funcs[name] = fn
		}
	}
}

// GoTemplateEngine renders manifests with text/template. Built-in
// functions: env, quote and default.
type GoTemplateEngine struct {
	config templateConfig
}

// NewGoTemplateEngine creates a GoTemplateEngine.
func NewGoTemplateEngine(opts ...TemplateOption) ports.TemplateEngine {
	cfg := defaultTemplateConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &GoTemplateEngine{config: cfg}
}

// Render expands raw with config available as .config.
func (e *GoTemplateEngine) Render(raw []byte, config map[string]interface{}) ([]byte, error) {
	tmpl := template.New("manifest").Funcs(e.config.funcs)
	if e.config.strict {
		tmpl = tmpl.Option("missingkey=error")
	}

	tmpl, err := tmpl.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest template: %w", err)
	}
	if config == nil {
		config = map[string]interface{}{}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]interface{}{"config": config}); err != nil {
		return nil, fmt.Errorf("failed to execute manifest template: %w", err)
	}
	return buf.Bytes(), nil
}

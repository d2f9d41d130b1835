// Package config reads interpreter configuration files.
package config

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/reglet-dev/reglet-script/application/validation"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor selects the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return "", &errors.ConfigError{Err: fmt.Errorf("unsupported config file extension %q", filepath.Ext(path))}
}

// Load reads the configuration at path. Keys the file omits keep their
// defaults. A relative support directory is resolved against the directory
// of the file.
func Load(path string) (entities.Config, error) {
	format, err := FormatFor(path)
	if err != nil {
		return entities.Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return entities.Config{}, &errors.ConfigError{Err: err}
	}

	cfg, err := Parse(data, format)
	if err != nil {
		return entities.Config{}, err
	}
	if cfg.SupportDir != "" && !filepath.IsAbs(cfg.SupportDir) {
		cfg.SupportDir = filepath.Join(filepath.Dir(path), cfg.SupportDir)
	}
	return cfg, nil
}

// Parse decodes data over the default configuration and validates the
// result.
func Parse(data []byte, format Format) (entities.Config, error) {
	cfg := entities.DefaultConfig()

	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !stdErrors.Is(err, io.EOF) {
			return entities.Config{}, &errors.ConfigError{Err: err}
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &cfg)
		if err != nil {
			return entities.Config{}, &errors.ConfigError{Err: err}
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return entities.Config{}, &errors.ConfigError{Field: undecoded[0].String(), Err: fmt.Errorf("unknown key")}
		}
	default:
		return entities.Config{}, &errors.ConfigError{Err: fmt.Errorf("unsupported format %q", format)}
	}

	if err := validation.ValidateConfig(&cfg); err != nil {
		return entities.Config{}, err
	}
	return cfg, nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"github.com/reglet-dev/reglet-script/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_YAML(t *testing.T) {
	cfg, err := Parse([]byte(`
prompt: "js> "
prelude: [console, util]
show_global_output: true
`), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "js> ", cfg.Prompt)
	assert.Equal(t, []string{"console", "util"}, cfg.Prelude)
	assert.True(t, cfg.ShowGlobalOutput)
	assert.Equal(t, "init.js", cfg.StartupScript, "omitted keys keep defaults")
}

func TestParse_TOML(t *testing.T) {
	cfg, err := Parse([]byte(`
startup_script = ""
log_level = "debug"
strict_mode = true
`), FormatTOML)
	require.NoError(t, err)

	assert.Empty(t, cfg.StartupScript)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, "> ", cfg.Prompt)
}

func TestParse_EmptyYAMLIsDefault(t *testing.T) {
	cfg, err := Parse(nil, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultConfig(), cfg)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
		field  string
	}{
		{"unknown yaml key", "promt: x", FormatYAML, ""},
		{"unknown toml key", `promt = "x"`, FormatTOML, "promt"},
		{"bad log level", "log_level: loud", FormatYAML, "Config.LogLevel"},
		{"startup outside support dir", `startup_script = "../init.js"`, FormatTOML, "Config.StartupScript"},
		{"empty prompt", `prompt: ""`, FormatYAML, "Config.Prompt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			cfgErr := testutil.RequireErrorAs[*errors.ConfigError](t, err)
			if tt.field != "" {
				assert.Equal(t, tt.field, cfgErr.Field)
			}
		})
	}
}

func TestFormatFor(t *testing.T) {
	f, err := FormatFor("a/b.YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)

	f, err = FormatFor("conf.toml")
	require.NoError(t, err)
	assert.Equal(t, FormatTOML, f)

	_, err = FormatFor("conf.json")
	testutil.RequireErrorAs[*errors.ConfigError](t, err)
}

func TestLoad_ResolvesSupportDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reglet-script.yaml")
	require.NoError(t, os.WriteFile(path, []byte("support_dir: scripts\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scripts"), cfg.SupportDir)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	testutil.RequireErrorAs[*errors.ConfigError](t, err)
}

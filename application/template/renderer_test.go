package template_test

import (
	"strings"
	"testing"
	gotemplate "text/template"

	"github.com/reglet-dev/reglet-script/application/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoTemplateEngine_Render(t *testing.T) {
	engine := template.NewGoTemplateEngine()

	t.Run("Successful Resolution", func(t *testing.T) {
		raw := []byte(`name: "{{.config.name}}"` + "\n" + `script: threshold.js`)
		config := map[string]interface{}{
			"name": "Threshold",
		}

		out, err := engine.Render(raw, config)
		require.NoError(t, err)
		assert.Contains(t, string(out), `name: "Threshold"`)
	})

	t.Run("Missing Key Fails", func(t *testing.T) {
		raw := []byte(`name: "{{.config.missing}}"`)

		_, err := engine.Render(raw, map[string]interface{}{"name": "something"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "map has no entry for key")
	})

	t.Run("Nil Config Without Placeholders", func(t *testing.T) {
		out, err := engine.Render([]byte("version: 1.0.0"), nil)
		require.NoError(t, err)
		assert.Equal(t, "version: 1.0.0", string(out))
	})

	t.Run("Invalid Template Syntax", func(t *testing.T) {
		_, err := engine.Render([]byte(`name: "{{.config.name"`), nil)
		require.Error(t, err)
	})

	t.Run("Environment Lookup", func(t *testing.T) {
		t.Setenv("SCRIPT_CREATOR", "imaging team")

		out, err := engine.Render([]byte(`creator: {{env "SCRIPT_CREATOR"}}`), nil)
		require.NoError(t, err)
		assert.Equal(t, "creator: imaging team", string(out))
	})
}

func TestGoTemplateEngine_NonStrict(t *testing.T) {
	engine := template.NewGoTemplateEngine(template.WithStrict(false))

	out, err := engine.Render([]byte(`name: "{{.config.missing}}"`), map[string]interface{}{})
	require.NoError(t, err)
	assert.Equal(t, `name: "<no value>"`, string(out))
}

func TestGoTemplateEngine_WithFuncs(t *testing.T) {
	engine := template.NewGoTemplateEngine(template.WithFuncs(gotemplate.FuncMap{
		"upper": strings.ToUpper,
	}))

	out, err := engine.Render([]byte(`name: {{upper .config.name}}`), map[string]interface{}{"name": "blur"})
	require.NoError(t, err)
	assert.Equal(t, "name: BLUR", string(out))
}

func TestGoTemplateEngine_BuiltinFuncs(t *testing.T) {
	engine := template.NewGoTemplateEngine()

	tests := []struct {
		name   string
		raw    string
		config map[string]interface{}
		want   string
	}{
		{"quote path", `script: {{quote .config.path}}`, map[string]interface{}{"path": `dir\a b.js`}, `script: "dir\\a b.js"`},
		{"default when empty", `limit: {{default 10 .config.limit}}`, map[string]interface{}{"limit": ""}, "limit: 10"},
		{"default keeps value", `limit: {{default 10 .config.limit}}`, map[string]interface{}{"limit": 3}, "limit: 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := engine.Render([]byte(tt.raw), tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(out))
		})
	}
}

package schema

import (
	"encoding/json"
	"testing"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSchema_Config(t *testing.T) {
	schema, err := GenerateSchema(entities.Config{})
	require.NoError(t, err)

	var decoded struct {
		Properties map[string]map[string]interface{} `json:"properties"`
		Required   []string                          `json:"required"`
	}
	require.NoError(t, json.Unmarshal(schema, &decoded))

	for _, key := range []string{"support_dir", "startup_script", "prelude", "prompt", "show_global_output", "strict_mode"} {
		assert.Contains(t, decoded.Properties, key)
	}
	assert.Equal(t, "array", decoded.Properties["prelude"]["type"])
	assert.Equal(t, "boolean", decoded.Properties["strict_mode"]["type"])
	assert.Contains(t, decoded.Required, "prompt")
	assert.NotContains(t, decoded.Required, "support_dir")
}

func TestGenerateSchema_ScriptManifest(t *testing.T) {
	schema, err := GenerateSchema(entities.ScriptManifest{})
	require.NoError(t, err)

	s := string(schema)
	assert.Contains(t, s, `"inputs"`)
	assert.Contains(t, s, `"script"`)
}

func TestForArguments(t *testing.T) {
	list := entities.NewArgumentList().
		MustAdd("count", entities.TypeUint8, entities.WithDefault(uint8(3)), entities.WithDescription("repeat count")).
		MustAdd("when", entities.TypeTime).
		MustAdd("names", entities.ArrayOf(entities.TypeString)).
		MustAdd("view", "View")

	data, err := ForArguments("Threshold input", list)
	require.NoError(t, err)

	var decoded struct {
		Title      string                            `json:"title"`
		Required   []string                          `json:"required"`
		Properties map[string]map[string]interface{} `json:"properties"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "Threshold input", decoded.Title)
	assert.ElementsMatch(t, []string{"when", "names", "view"}, decoded.Required)

	count := decoded.Properties["count"]
	assert.Equal(t, "integer", count["type"])
	assert.Equal(t, float64(255), count["maximum"])
	assert.Equal(t, float64(3), count["default"])
	assert.Equal(t, "repeat count", count["description"])

	assert.Equal(t, "date-time", decoded.Properties["when"]["format"])
	assert.Equal(t, "array", decoded.Properties["names"]["type"])
	assert.Equal(t, "View", decoded.Properties["view"]["title"])
}

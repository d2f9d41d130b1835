package wasm

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/host/registry"
	"github.com/reglet-dev/reglet-script/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// emptyModule is the smallest valid WASM binary: magic and version only.
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestDefaultRuntimeConfig(t *testing.T) {
	cfg := defaultRuntimeConfig()
	assert.Equal(t, "reglet_host", cfg.moduleName)
	assert.Equal(t, DefaultMaxMessageSize, cfg.maxMessageSize)

	WithModuleName("custom_module")(&cfg)
	WithMaxMessageSize(2048)(&cfg)
	assert.Equal(t, "custom_module", cfg.moduleName)
	assert.Equal(t, uint32(2048), cfg.maxMessageSize)
}

func TestPackUnpackPtrLen(t *testing.T) {
	tests := []struct {
		ptr    uint32
		length uint32
	}{
		{0, 0},
		{1, 1},
		{0x1000, 256},
		{0xFFFFFFFF, 0xFFFFFFFF},
	}

	for _, tt := range tests {
		packed := packPtrLen(tt.ptr, tt.length)
		ptr, length := unpackPtrLen(packed)
		assert.Equal(t, tt.ptr, ptr)
		assert.Equal(t, tt.length, length)
	}
}

func TestRuntime_Lifecycle(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx)
	require.NoError(t, err)
	assert.NoError(t, rt.Close(ctx))
}

func TestRuntime_LoadRejectsInvalidModules(t *testing.T) {
	ctx := context.Background()
	rt, err := NewRuntime(ctx)
	require.NoError(t, err)
	defer rt.Close(ctx)

	_, err = rt.Load(ctx, []byte("not wasm"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to compile module")

	_, err = rt.Load(ctx, emptyModule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `export "describe" not found`)

	reg := registry.NewRegistry()
	_, err = rt.Register(ctx, reg, emptyModule)
	require.Error(t, err)
	assert.Empty(t, reg.List())
}

func TestValidateDescriptor(t *testing.T) {
	require.NoError(t, validateDescriptor(&Descriptor{
		Name:   "Scale",
		Inputs: []entities.ArgumentSpec{{Name: "factor", Type: entities.TypeFloat64, Default: 2}},
	}))

	err := validateDescriptor(&Descriptor{})
	assert.ErrorContains(t, err, "name is required")

	err = validateDescriptor(&Descriptor{
		Name:    "Scale",
		Outputs: []entities.ArgumentSpec{{Name: "n", Type: entities.TypeInt8, Default: 1000}},
	})
	assert.ErrorContains(t, err, "outputs")
}

func TestEncodeInputs(t *testing.T) {
	in := entities.NewArgumentList().
		MustAdd("count", entities.TypeInt32, entities.WithDefault(int32(3))).
		MustAdd("when", entities.TypeTime).
		MustAdd("unset", entities.TypeString)
	require.NoError(t, in.SetValue("when", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	data, err := json.Marshal(ExecuteRequest{Inputs: encodeInputs(in)})
	require.NoError(t, err)
	testutil.AssertJSONEqual(t,
		`{"inputs":{"count":3,"when":"2024-01-02T03:04:05Z"},"context":{},"batch":false}`,
		string(data))

	assert.Empty(t, encodeInputs(nil))
}

func TestDecodeOutputs(t *testing.T) {
	out := entities.NewArgumentList().
		MustAdd("sum", entities.TypeInt32).
		MustAdd("tags", entities.ArrayOf(entities.TypeString))

	var resp ExecuteResponse
	require.NoError(t, json.Unmarshal([]byte(`{"success":true,"outputs":{"sum":7,"tags":["a","b"]}}`), &resp))
	require.NoError(t, decodeOutputs(out, resp.Outputs))

	sum, ok := entities.ValueAs[int32](out, "sum")
	require.True(t, ok)
	assert.Equal(t, int32(7), sum)
	tags, ok := entities.ValueAs[[]string](out, "tags")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, tags)
}

func TestDecodeOutputs_Errors(t *testing.T) {
	out := entities.NewArgumentList().MustAdd("sum", entities.TypeInt32)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"undeclared", `{"other":1}`, `undeclared output "other"`},
		{"fraction", `{"sum":1.5}`, `output "sum"`},
		{"wrong type", `{"sum":"x"}`, `output "sum"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &raw))
			err := decodeOutputs(out, raw)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.Error(t, decodeOutputs(nil, map[string]json.RawMessage{"sum": json.RawMessage("1")}))
}

func TestCallContext(t *testing.T) {
	progress := &testutil.RecordingProgress{}
	ctx := withCall(context.Background(), "Scale", progress)

	assert.Equal(t, "Scale", pluginName(ctx, "fallback"))
	assert.Equal(t, "fallback", pluginName(context.Background(), "fallback"))

	p, ok := progressFrom(ctx)
	require.True(t, ok)
	p.UpdateProgress("half", 50, entities.ProgressNormal)
	assert.Len(t, progress.Updates(), 1)

	_, ok = progressFrom(withCall(context.Background(), "Scale", nil))
	assert.False(t, ok)
}

package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileError(t *testing.T) {
	baseErr := fmt.Errorf("Unexpected token (line 1)")
	err := &CompileError{Source: "<command>", Err: baseErr}

	assert.Equal(t, "compile error in <command>: Unexpected token (line 1)", err.Error())
	assert.True(t, errors.Is(err, baseErr))
	assert.Equal(t, "compile", err.ToErrorDetail().Type)
}

func TestMarshalTypeMismatch(t *testing.T) {
	err := &MarshalTypeMismatch{TypeName: "int32", Got: "string", Index: -1}
	assert.Equal(t, "cannot convert string to int32", err.Error())

	elemErr := &MarshalTypeMismatch{TypeName: "[]bool", Got: "number", Index: 2}
	assert.Equal(t, "cannot convert number to []bool (element 2)", elemErr.Error())

	var mm *MarshalTypeMismatch
	wrapped := fmt.Errorf("set output.b: %w", elemErr)
	require.True(t, errors.As(wrapped, &mm))
	assert.Equal(t, 2, mm.Index)

	detail := ToErrorDetail(wrapped)
	assert.Equal(t, "marshal", detail.Type)
	assert.Equal(t, 2, detail.Details["index"])
	assert.Empty(t, err.ToErrorDetail().Details)
	assert.Equal(t, "marshal: cannot convert string to int32", err.ToErrorDetail().Error())
}

func TestHandleInvalidated(t *testing.T) {
	err := &HandleInvalidated{Plugin: "Threshold", Operation: "execute"}
	assert.Equal(t, `execute: plug-in handle "Threshold" has been freed`, err.Error())
	assert.Equal(t, "handle", err.ToErrorDetail().Type)
}

func TestPluginNotFound(t *testing.T) {
	err := &PluginNotFound{Name: "Missing"}
	assert.Equal(t, `plug-in "Missing" not found`, err.Error())
	assert.True(t, err.ToErrorDetail().IsNotFound)

	cause := fmt.Errorf("factory failed")
	withCause := &PluginNotFound{Name: "Broken", Err: cause}
	assert.Equal(t, `plug-in "Broken" not available: factory failed`, withCause.Error())
	assert.True(t, errors.Is(withCause, cause))
}

func TestModuleLoadFailure(t *testing.T) {
	err := &ModuleLoadFailure{Module: "../secret", Err: fmt.Errorf("not in support directory")}
	assert.Equal(t, `cannot load module "../secret": not in support directory`, err.Error())
	assert.Equal(t, "../secret", err.ToErrorDetail().Code)
}

func TestFatalEngineError(t *testing.T) {
	err := &FatalEngineError{Location: "<command>", Message: "nil map write"}
	assert.Equal(t, "fatal engine error at <command>: nil map write", err.Error())

	noLoc := &FatalEngineError{Message: "boom"}
	assert.Equal(t, "fatal engine error: boom", noLoc.Error())
}

func TestConfigError(t *testing.T) {
	baseErr := fmt.Errorf("must be one of debug info warn error")
	err := &ConfigError{Field: "LogLevel", Err: baseErr}

	assert.Equal(t, "config validation failed for field 'LogLevel': must be one of debug info warn error", err.Error())

	noField := &ConfigError{Err: baseErr}
	assert.Equal(t, "config validation failed: must be one of debug info warn error", noField.Error())
}

func TestSchemaError(t *testing.T) {
	baseErr := fmt.Errorf("unsupported type")
	err := &SchemaError{
		Type: "Threshold",
		Err:  baseErr,
	}

	assert.Equal(t, "schema error for type Threshold: unsupported type", err.Error())
	assert.True(t, errors.Is(err, baseErr))
}

func TestWireFormatError(t *testing.T) {
	baseErr := fmt.Errorf("invalid json")
	err := &WireFormatError{
		Operation: "unmarshal",
		Type:      "wasmResponse",
		Err:       baseErr,
	}

	assert.Equal(t, "wire format unmarshal failed for wasmResponse: invalid json", err.Error())
	assert.True(t, errors.Is(err, baseErr))
}

func TestToErrorDetail(t *testing.T) {
	assert.Nil(t, ToErrorDetail(nil))

	generic := ToErrorDetail(fmt.Errorf("plain"))
	assert.Equal(t, "internal", generic.Type)
	assert.Equal(t, "plain", generic.Message)

	wrapped := fmt.Errorf("require: %w", &ModuleLoadFailure{Module: "util", Err: fmt.Errorf("boom")})
	assert.Equal(t, "module", ToErrorDetail(wrapped).Type)
}

func TestErrorUnwrapping(t *testing.T) {
	baseErr := fmt.Errorf("base error")

	tests := []struct {
		name string
		err  error
	}{
		{"CompileError", &CompileError{Source: "test", Err: baseErr}},
		{"RuntimeException", &RuntimeException{Source: "test", Err: baseErr}},
		{"MarshalTypeMismatch", &MarshalTypeMismatch{TypeName: "test", Err: baseErr}},
		{"PluginNotFound", &PluginNotFound{Name: "test", Err: baseErr}},
		{"ModuleLoadFailure", &ModuleLoadFailure{Module: "test", Err: baseErr}},
		{"ConfigError", &ConfigError{Field: "test", Err: baseErr}},
		{"SchemaError", &SchemaError{Type: "test", Err: baseErr}},
		{"WireFormatError", &WireFormatError{Operation: "test", Type: "test", Err: baseErr}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, baseErr), "errors.Is should find base error")
			unwrapped := errors.Unwrap(tt.err)
			assert.Equal(t, baseErr, unwrapped, "errors.Unwrap should return base error")
		})
	}
}

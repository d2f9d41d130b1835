// Package errors provides domain-specific error types for the script bridge.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/reglet-script/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail. New error types only need to implement this
// interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// This function recognizes custom error types and categorizes them appropriately.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// CompileError reports script text that failed to parse.
type CompileError struct {
	Err    error
	Source string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile error in %s: %v", e.Source, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *CompileError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeCompile, Code: e.Source}
}

// RuntimeException reports an exception thrown while a script ran.
type RuntimeException struct {
	Err    error
	Source string
}

func (e *RuntimeException) Error() string {
	return e.Err.Error()
}

func (e *RuntimeException) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *RuntimeException) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeRuntime, Code: e.Source}
}

// MarshalTypeMismatch reports a value that cannot be converted between the
// host and script representations.
type MarshalTypeMismatch struct {
	Err      error
	TypeName string // Declared or requested host type
	Got      string // Description of the offending value
	Index    int    // Element index for sequences, -1 otherwise
}

func (e *MarshalTypeMismatch) Error() string {
	msg := fmt.Sprintf("cannot convert %s to %s", e.Got, e.TypeName)
	if e.Index >= 0 {
		msg = fmt.Sprintf("%s (element %d)", msg, e.Index)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MarshalTypeMismatch) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *MarshalTypeMismatch) ToErrorDetail() *entities.ErrorDetail {
	d := &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeMarshal, Code: e.TypeName}
	if e.Index >= 0 {
		d.WithDetail("index", e.Index)
	}
	return d
}

// HandleInvalidated reports an operation on a plug-in handle that was freed.
type HandleInvalidated struct {
	Plugin    string
	Operation string
}

func (e *HandleInvalidated) Error() string {
	return fmt.Sprintf("%s: plug-in handle %q has been freed", e.Operation, e.Plugin)
}

// ToErrorDetail implements DetailedError.
func (e *HandleInvalidated) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeHandle, Code: e.Operation}
}

// PluginNotFound reports a plug-in name that could not be resolved or instantiated.
type PluginNotFound struct {
	Err  error
	Name string
}

func (e *PluginNotFound) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("plug-in %q not available: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("plug-in %q not found", e.Name)
}

func (e *PluginNotFound) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *PluginNotFound) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypePlugin, Code: e.Name, IsNotFound: true}
}

// ModuleLoadFailure reports a require() target that is missing, unreadable or failing.
type ModuleLoadFailure struct {
	Err    error
	Module string
}

func (e *ModuleLoadFailure) Error() string {
	return fmt.Sprintf("cannot load module %q: %v", e.Module, e.Err)
}

func (e *ModuleLoadFailure) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ModuleLoadFailure) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeModule, Code: e.Module}
}

// FatalEngineError is an unrecoverable failure inside the engine.
type FatalEngineError struct {
	Location string
	Message  string
}

func (e *FatalEngineError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("fatal engine error at %s: %s", e.Location, e.Message)
	}
	return fmt.Sprintf("fatal engine error: %s", e.Message)
}

// ToErrorDetail implements DetailedError.
func (e *FatalEngineError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeFatal, Code: e.Location}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeConfig, Code: e.Field}
}

// SchemaError represents a schema generation or validation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeValidation, Code: "schema"}
}

// WireFormatError represents a wire format encoding/decoding error.
type WireFormatError struct {
	Err       error
	Operation string
	Type      string
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("wire format %s failed for %s: %v", e.Operation, e.Type, e.Err)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *WireFormatError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeInternal, Code: "wire_format"}
}

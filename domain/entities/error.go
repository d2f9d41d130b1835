package entities

import "fmt"

// Error categories reported in ErrorDetail.Type.
const (
	ErrorTypeCompile    = "compile"
	ErrorTypeRuntime    = "runtime"
	ErrorTypeMarshal    = "marshal"
	ErrorTypeHandle     = "handle"
	ErrorTypePlugin     = "plugin"
	ErrorTypeModule     = "module"
	ErrorTypeFatal      = "fatal"
	ErrorTypeConfig     = "config"
	ErrorTypeValidation = "validation"
	ErrorTypeInternal   = "internal"
)

// ErrorDetail is the structured form of a bridge error used in diagnostic
// logs.
type ErrorDetail struct {
	// Details carries category-specific context, such as the element index
	// of a failed sequence conversion.
	Details map[string]any `json:"details,omitempty"`

	// Message is the text reported to script listeners.
	Message string `json:"message"`

	// Type is one of the ErrorType categories.
	Type string `json:"type"`

	// Code identifies the subject: a source name, plug-in, module, type or
	// configuration field.
	Code string `json:"code,omitempty"`

	// IsNotFound marks unknown plug-ins and modules.
	IsNotFound bool `json:"is_not_found,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	if e.Type == "" || e.Type == ErrorTypeInternal {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// WithDetail sets one detail entry and returns e.
func (e *ErrorDetail) WithDetail(key string, value any) *ErrorDetail {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

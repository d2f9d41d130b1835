package entities

import (
	"time"
)

// PluginKind identifies how a plug-in is implemented.
type PluginKind string

const (
	// PluginKindNative is a plug-in implemented in Go.
	PluginKindNative PluginKind = "native"

	// PluginKindScript is a plug-in implemented by a script.
	PluginKindScript PluginKind = "script"

	// PluginKindWasm is a plug-in implemented by a WebAssembly module.
	PluginKindWasm PluginKind = "wasm"
)

// PluginDescriptor identifies a plug-in in the registry.
type PluginDescriptor struct {
	Name        string     `json:"name" validate:"required"`
	Version     string     `json:"version,omitempty"`
	Description string     `json:"description,omitempty"`
	Creator     string     `json:"creator,omitempty"`
	Kind        PluginKind `json:"kind,omitempty"`
}

// RunMetadata records the timing of one command execution.
type RunMetadata struct {
	// StartTime is when the command started compiling.
	StartTime time.Time `json:"start_time"`

	// EndTime is when the command finished.
	EndTime time.Time `json:"end_time"`

	// Source names the executed command or script.
	Source string `json:"source,omitempty"`

	// Duration is the total execution time.
	Duration time.Duration `json:"duration_ns"`

	// Scoped is true for scoped commands.
	Scoped bool `json:"scoped"`
}

// NewRunMetadata creates a new RunMetadata with the given start and end times.
func NewRunMetadata(start, end time.Time) *RunMetadata {
	return &RunMetadata{
		StartTime: start,
		EndTime:   end,
		Duration:  end.Sub(start),
	}
}

// WithSource sets the source name.
func (m *RunMetadata) WithSource(source string) *RunMetadata {
	m.Source = source
	return m
}

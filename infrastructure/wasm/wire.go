package wasm

import (
	"encoding/json"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/internal/execcontext"
)

// Descriptor is returned by the guest "describe" export.
type Descriptor struct {
	Name        string                  `json:"name"`
	Version     string                  `json:"version"`
	Description string                  `json:"description,omitempty"`
	Creator     string                  `json:"creator,omitempty"`
	Inputs      []entities.ArgumentSpec `json:"inputs,omitempty"`
	Outputs     []entities.ArgumentSpec `json:"outputs,omitempty"`
}

// ExecuteRequest is the payload passed to the guest "execute" export.
// Unset inputs are omitted.
type ExecuteRequest struct {
	Inputs  map[string]any   `json:"inputs"`
	Context execcontext.Wire `json:"context"`
	Batch   bool             `json:"batch"`
}

// ExecuteResponse is returned by the guest "execute" export.
type ExecuteResponse struct {
	Outputs map[string]json.RawMessage `json:"outputs,omitempty"`
	Error   string                     `json:"error,omitempty"`
	Success bool                       `json:"success"`
}

// logMessage is the payload of the log_message host function.
type logMessage struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// progressMessage is the payload of the report_progress host function.
type progressMessage struct {
	Message string                 `json:"message"`
	Level   entities.ProgressLevel `json:"level"`
	Percent int                    `json:"percent"`
}

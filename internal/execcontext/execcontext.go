// Package execcontext carries per-command values on a context.Context and
// converts a context into the wire form handed to WASM plug-ins.
package execcontext

import (
	"context"
	"time"
)

// contextKey is a type for context value keys to avoid collisions.
type contextKey string

// CommandIDKey is the context key for the id of the running command.
const CommandIDKey contextKey = "command_id"

// Wire is the JSON form of a command context.
type Wire struct {
	Deadline  *time.Time `json:"deadline,omitempty"`
	CommandID string     `json:"command_id,omitempty"`
	TimeoutMs int64      `json:"timeout_ms,omitempty"`
	Canceled  bool       `json:"canceled,omitempty"`
}

// WithCommandID returns a copy of ctx carrying id.
func WithCommandID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CommandIDKey, id)
}

// CommandID returns the command id carried by ctx, or "".
func CommandID(ctx context.Context) string {
	if id, ok := ctx.Value(CommandIDKey).(string); ok {
		return id
	}
	return ""
}

// ToWire converts ctx for sending to a plug-in.
//
// It extracts:
// - Deadline (timeout)
// - Cancellation status
// - Command ID (key: CommandIDKey)
func ToWire(ctx context.Context) Wire {
	wire := Wire{CommandID: CommandID(ctx)}

	if deadline, ok := ctx.Deadline(); ok {
		wire.Deadline = &deadline
		if timeout := time.Until(deadline); timeout > 0 {
			wire.TimeoutMs = timeout.Milliseconds()
		}
	}

	select {
	case <-ctx.Done():
		wire.Canceled = true
	default:
	}
	return wire
}

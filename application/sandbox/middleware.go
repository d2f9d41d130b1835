package sandbox

import (
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
)

// Middleware wraps a Binding to add cross-cutting behavior.
// Middleware executes in FIFO order (first registered wraps first, onion model).
type Middleware func(next Binding) Binding

// PanicRecoveryMiddleware converts host panics inside a binding into
// script exceptions instead of unwinding through the engine. Values thrown
// on purpose (goja values) pass through unchanged.
func PanicRecoveryMiddleware() Middleware {
	return func(next Binding) Binding {
		return func(call *Call) goja.Value {
			defer func() {
				r := recover()
				switch v := r.(type) {
				case nil:
					return
				case goja.Value:
					panic(v)
				case error:
					panic(call.Context.Runtime().NewGoError(fmt.Errorf("%s: %w", call.Name, v)))
				case string:
					panic(call.Context.Runtime().NewGoError(fmt.Errorf("%s: %s", call.Name, v)))
				default:
					panic(r)
				}
			}()
			return next(call)
		}
	}
}

// LoggingMiddleware logs binding invocations at debug level.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next Binding) Binding {
		return func(call *Call) goja.Value {
			logger.Debug("invoking binding", "binding", call.Name, "args", len(call.Arguments), "scoped", call.Context.Scoped())
			return next(call)
		}
	}
}

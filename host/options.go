package host

import (
	"io/fs"
	"log/slog"

	"github.com/reglet-dev/reglet-script/application/marshal"
	"github.com/reglet-dev/reglet-script/application/sandbox"
	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// Option defines a functional option for configuring the Interpreter.
type Option func(*Interpreter)

// WithConfig replaces the interpreter configuration.
func WithConfig(cfg entities.Config) Option {
	return func(i *Interpreter) {
		i.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) {
		i.logger = logger
	}
}

// WithGlobalOutput sets the listeners receiving unscoped output and, when
// global visibility is on, scoped output too. Nil listeners discard.
func WithGlobalOutput(out, errOut ports.Listener) Option {
	return func(i *Interpreter) {
		i.globalOut = out
		i.globalErr = errOut
	}
}

// WithMarshaller sets the value marshaller shared by all contexts.
func WithMarshaller(m *marshal.Marshaller) Option {
	return func(i *Interpreter) {
		i.marshaller = m
	}
}

// WithSupportFS overrides the support directory of the configuration.
func WithSupportFS(fsys fs.FS) Option {
	return func(i *Interpreter) {
		i.supportFS = fsys
	}
}

// WithBindingMiddleware adds middleware around every script binding.
func WithBindingMiddleware(mw ...sandbox.Middleware) Option {
	return func(i *Interpreter) {
		i.middleware = append(i.middleware, mw...)
	}
}

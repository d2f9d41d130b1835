// Package sandbox builds the global namespace installed into every script
// context. The binding whitelist is the only host surface reachable from
// script.
package sandbox

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/application/handle"
	"github.com/reglet-dev/reglet-script/application/module"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// Default binding names.
const (
	BindingWriteStdout = "system.write_stdout"
	BindingWriteStderr = "system.write_stderr"
	BindingRequire     = "require"
	BindingCreate      = "create"
)

// builderConfig holds configuration for the Builder.
type builderConfig struct {
	logger     *slog.Logger
	prelude    []string
	middleware []Middleware
}

func defaultBuilderConfig() builderConfig {
	return builderConfig{logger: slog.Default()}
}

// BuilderOption configures a Builder.
type BuilderOption func(*builderConfig)

// WithPrelude names modules required into every new context and bound to
// a global of the same name.
func WithPrelude(modules ...string) BuilderOption {
	return func(c *builderConfig) {
		c.prelude = modules
	}
}

// WithBindingMiddleware adds middleware inside the default recovery and
// logging layers.
func WithBindingMiddleware(mw ...Middleware) BuilderOption {
	return func(c *builderConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(c *builderConfig) {
		c.logger = logger
	}
}

// Builder creates sandboxed contexts. The binding registry is built once
// and shared by every context.
type Builder struct {
	bindings *BindingRegistry
	loader   *module.Loader
	config   builderConfig
}

// NewBuilder creates a Builder whose require binding uses loader and whose
// create binding uses bridge.
func NewBuilder(loader *module.Loader, bridge *handle.Bridge, opts ...BuilderOption) (*Builder, error) {
	cfg := defaultBuilderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	middleware := append([]Middleware{PanicRecoveryMiddleware(), LoggingMiddleware(cfg.logger)}, cfg.middleware...)
	bindings, err := NewBindingRegistry(
		WithMiddleware(middleware...),
		WithBinding(BindingWriteStdout, writeBinding(false)),
		WithBinding(BindingWriteStderr, writeBinding(true)),
		WithBinding(BindingRequire, requireBinding(loader)),
		WithBinding(BindingCreate, createBinding(bridge)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build sandbox bindings: %w", err)
	}

	return &Builder{bindings: bindings, loader: loader, config: cfg}, nil
}

// Bindings returns the installed binding names.
func (b *Builder) Bindings() []string {
	return b.bindings.Names()
}

// NewContext creates a runtime, installs the bindings and loads the
// prelude modules.
func (b *Builder) NewContext(ctx context.Context, sink Sink, progress ports.Progress, scoped bool) (*Context, error) {
	c := &Context{
		rt:       goja.New(),
		ctx:      ctx,
		sink:     sink,
		progress: progress,
		modules:  module.NewCache(),
		scoped:   scoped,
	}

	if err := b.bindings.install(c); err != nil {
		return nil, err
	}

	for _, name := range b.config.prelude {
		exports, err := b.loader.Require(c.rt, c.modules, name)
		if err != nil {
			return nil, fmt.Errorf("prelude: %w", err)
		}
		if err := c.rt.Set(name, exports); err != nil {
			return nil, fmt.Errorf("prelude: cannot bind %s: %w", name, err)
		}
	}
	return c, nil
}

func writeBinding(isErr bool) Binding {
	return func(call *Call) goja.Value {
		text := call.Argument(0).String()
		if isErr {
			call.Context.sink.Error(text)
		} else {
			call.Context.sink.Output(text)
		}
		return goja.Undefined()
	}
}

func requireBinding(loader *module.Loader) Binding {
	return func(call *Call) goja.Value {
		rt := call.Context.Runtime()
		name := call.Argument(0)
		if goja.IsUndefined(name) || goja.IsNull(name) {
			panic(rt.NewTypeError("require: module name expected"))
		}
		exports, err := loader.Require(rt, call.Context.modules, name.String())
		if err != nil {
			panic(rt.NewGoError(err))
		}
		return exports
	}
}

func createBinding(bridge *handle.Bridge) Binding {
	return func(call *Call) goja.Value {
		rt := call.Context.Runtime()
		name := call.Argument(0)
		if goja.IsUndefined(name) || goja.IsNull(name) {
			panic(rt.NewTypeError("create: plug-in name expected"))
		}
		batch := true
		if arg := call.Argument(1); !goja.IsUndefined(arg) {
			batch = arg.ToBoolean()
		}
		obj, err := bridge.Construct(call.Context, name.String(), batch)
		if err != nil {
			panic(rt.NewGoError(err))
		}
		return obj
	}
}

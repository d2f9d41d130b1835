package handle

import (
	"context"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/application/marshal"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// Env is the per-context state a handle consults when it runs.
type Env interface {
	Runtime() *goja.Runtime
	// CommandContext returns the context of the command currently running.
	CommandContext() context.Context
	Progress() ports.Progress
}

// Bridge constructs plug-in handles for script contexts.
type Bridge struct {
	registry   ports.PluginRegistry
	marshaller *marshal.Marshaller
	handles    *TrackedHandleSet
	logger     *slog.Logger
}

// NewBridge creates a Bridge resolving names against registry and tracking
// every handle in handles.
func NewBridge(registry ports.PluginRegistry, m *marshal.Marshaller, handles *TrackedHandleSet, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{registry: registry, marshaller: m, handles: handles, logger: logger}
}

// Handles returns the set tracking the handles this bridge created.
func (b *Bridge) Handles() *TrackedHandleSet { return b.handles }

// Construct creates the named plug-in, applies the batch or interactive
// mode and returns its script handle.
func (b *Bridge) Construct(env Env, name string, batch bool) (*goja.Object, error) {
	p, err := b.registry.Create(name)
	if err != nil {
		var nf *errors.PluginNotFound
		if stdErrors.As(err, &nf) {
			return nil, err
		}
		return nil, &errors.PluginNotFound{Name: name, Err: err}
	}

	if ms, ok := p.(ports.ModeSetter); ok {
		var applied bool
		if batch {
			applied = ms.SetBatch()
		} else {
			applied = ms.SetInteractive()
		}
		if !applied {
			b.logger.Debug("plug-in ignored execution mode", "plugin", name, "batch", batch)
		}
	}

	in, err := p.InputSpecification()
	if err == nil {
		out, outErr := p.OutputSpecification()
		if outErr == nil {
			inst := NewInstance(name, p, in, out, b.logger)
			return b.wrap(env, inst), nil
		}
		err = outErr
	}
	if c, ok := p.(io.Closer); ok {
		_ = c.Close()
	}
	return nil, &errors.PluginNotFound{Name: name, Err: fmt.Errorf("argument specification: %w", err)}
}

func (b *Bridge) wrap(env Env, inst *Instance) *goja.Object {
	rt := env.Runtime()
	ref := &Ref{rt: rt, inst: inst, env: env, set: b.handles, logger: b.logger}
	ref.input = b.marshaller.NewArgumentListView(rt, inst.Input(), func() error { return inst.Alive("input") })
	ref.output = b.marshaller.NewArgumentListView(rt, inst.Output(), func() error { return inst.Alive("output") })
	ref.execute = rt.ToValue(ref.callExecute)
	ref.free = rt.ToValue(ref.callFree)
	b.handles.track(ref)
	return rt.NewDynamicObject(ref)
}

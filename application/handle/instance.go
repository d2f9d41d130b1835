// Package handle bridges native plug-in instances into script objects.
//
// A handle is released exactly once: by an explicit free() from script, by
// a cleanup registered with the Go runtime once the script object becomes
// unreachable, or by ReleaseAll when the interpreter is torn down.
package handle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/reglet-dev/reglet-script/domain/entities"
	"github.com/reglet-dev/reglet-script/domain/errors"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// Instance owns one configured plug-in and its argument lists.
type Instance struct {
	plugin   ports.Plugin
	in       *entities.ArgumentList
	out      *entities.ArgumentList
	logger   *slog.Logger
	name     string
	released atomic.Bool
}

// NewInstance wraps a created plug-in.
func NewInstance(name string, plugin ports.Plugin, in, out *entities.ArgumentList, logger *slog.Logger) *Instance {
	if logger == nil {
		logger = slog.Default()
	}
	return &Instance{name: name, plugin: plugin, in: in, out: out, logger: logger}
}

// Name returns the registry name the instance was created from.
func (i *Instance) Name() string { return i.name }

// Input returns the input argument list.
func (i *Instance) Input() *entities.ArgumentList { return i.in }

// Output returns the output argument list.
func (i *Instance) Output() *entities.ArgumentList { return i.out }

// Released reports whether the instance has been released.
func (i *Instance) Released() bool { return i.released.Load() }

// Alive returns HandleInvalidated for operation once the instance is released.
func (i *Instance) Alive(operation string) error {
	if i.released.Load() {
		return &errors.HandleInvalidated{Plugin: i.name, Operation: operation}
	}
	return nil
}

// Release tears down the plug-in. Only the first call has an effect; it
// reports whether this call performed the release.
func (i *Instance) Release() bool {
	if !i.released.CompareAndSwap(false, true) {
		return false
	}
	if c, ok := i.plugin.(io.Closer); ok {
		if err := c.Close(); err != nil {
			i.logger.Warn("plug-in close failed", "plugin", i.name, "error", err)
		}
	}
	i.logger.Debug("plug-in released", "plugin", i.name)
	return true
}

// Execute runs the plug-in once. ctx is the host abort flag: a cancelled
// context fails the run before the plug-in starts. Plug-in panics are
// reported as an unsuccessful run.
func (i *Instance) Execute(ctx context.Context, progress ports.Progress) (ok bool, err error) {
	if err := i.Alive("execute"); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("plug-in %q aborted: %w", i.name, err)
	}
	if progress == nil {
		progress = discardProgress{}
	}

	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("plug-in %q panicked: %v", i.name, r)
		}
	}()
	return i.plugin.Execute(ctx, i.in, i.out, progress)
}

type discardProgress struct{}

func (discardProgress) UpdateProgress(string, int, entities.ProgressLevel) {}

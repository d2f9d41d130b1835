package sandbox

import (
	"context"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/application/module"
	"github.com/reglet-dev/reglet-script/domain/ports"
)

// Sink receives the output of one context.
type Sink interface {
	Output(text string)
	Error(text string)
}

// Context is one script execution context: a runtime plus the per-context
// state its bindings consult. Bindings reach it through their Call, never
// through package state, so contexts cannot observe each other.
type Context struct {
	rt       *goja.Runtime
	ctx      context.Context
	sink     Sink
	progress ports.Progress
	modules  *module.Cache
	scoped   bool
}

// Runtime returns the engine runtime of the context.
func (c *Context) Runtime() *goja.Runtime { return c.rt }

// CommandContext returns the context of the command currently running.
func (c *Context) CommandContext() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// SetCommandContext replaces the command context. The persistent context
// gets a new one for every command.
func (c *Context) SetCommandContext(ctx context.Context) { c.ctx = ctx }

// Progress returns the progress sink, which may be nil.
func (c *Context) Progress() ports.Progress { return c.progress }

// Sink returns the output sink.
func (c *Context) Sink() Sink { return c.sink }

// Modules returns the module cache of the context.
func (c *Context) Modules() *module.Cache { return c.modules }

// Scoped reports whether the context serves a single scoped command.
func (c *Context) Scoped() bool { return c.scoped }

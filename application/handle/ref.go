package handle

import (
	stdErrors "errors"
	"log/slog"

	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/domain/errors"
)

var refKeys = []string{"name", "input", "output", "execute", "free"}

// Ref is the script-visible plug-in handle. Exporting the script object
// yields the Ref.
type Ref struct {
	rt      *goja.Runtime
	inst    *Instance
	env     Env
	set     *TrackedHandleSet
	logger  *slog.Logger
	input   *goja.Object
	output  *goja.Object
	execute goja.Value
	free    goja.Value
	id      uint64
}

// Instance returns the wrapped native instance.
func (r *Ref) Instance() *Instance { return r.inst }

// Free releases the native instance. Later calls are no-ops.
func (r *Ref) Free() {
	r.set.release(r.id)
	r.inst.Release()
}

func (r *Ref) callExecute(goja.FunctionCall) goja.Value {
	ok, err := r.inst.Execute(r.env.CommandContext(), r.env.Progress())
	if err != nil {
		var invalid *errors.HandleInvalidated
		if stdErrors.As(err, &invalid) {
			panic(r.rt.NewGoError(err))
		}
		r.logger.Warn("plug-in execution failed", "plugin", r.inst.Name(), "error", err)
	}
	return r.rt.ToValue(ok)
}

func (r *Ref) callFree(goja.FunctionCall) goja.Value {
	r.Free()
	return goja.Undefined()
}

func (r *Ref) Get(key string) goja.Value {
	switch key {
	case "name":
		return r.rt.ToValue(r.inst.Name())
	case "input":
		return r.input
	case "output":
		return r.output
	case "execute":
		return r.execute
	case "free":
		return r.free
	}
	return nil
}

func (r *Ref) Set(string, goja.Value) bool { return false }

func (r *Ref) Has(key string) bool {
	for _, k := range refKeys {
		if k == key {
			return true
		}
	}
	return false
}

func (r *Ref) Delete(string) bool { return false }

func (r *Ref) Keys() []string { return append([]string(nil), refKeys...) }

package marshal

import (
	"github.com/dop251/goja"
	"github.com/reglet-dev/reglet-script/domain/entities"
)

// argumentListView exposes an ArgumentList as a script object whose
// properties read and write the list directly.
type argumentListView struct {
	rt    *goja.Runtime
	m     *Marshaller
	list  *entities.ArgumentList
	alive func() error
}

// NewArgumentListView returns a live script object backed by list.
// Reads convert the effective value of the named argument; writes convert
// to the declared type and set the actual value. alive, when non-nil, is
// checked before every access and its error is thrown into the script.
func (m *Marshaller) NewArgumentListView(rt *goja.Runtime, list *entities.ArgumentList, alive func() error) *goja.Object {
	return rt.NewDynamicObject(&argumentListView{rt: rt, m: m, list: list, alive: alive})
}

func (v *argumentListView) check() {
	if v.alive == nil {
		return
	}
	if err := v.alive(); err != nil {
		panic(v.rt.NewGoError(err))
	}
}

func (v *argumentListView) Get(key string) goja.Value {
	v.check()
	arg, ok := v.list.Get(key)
	if !ok {
		return nil
	}
	out, err := v.m.ToScript(v.rt, arg)
	if err != nil {
		panic(v.rt.NewGoError(err))
	}
	return out
}

func (v *argumentListView) Set(key string, val goja.Value) bool {
	v.check()
	arg, ok := v.list.Get(key)
	if !ok {
		panic(v.rt.NewTypeError("no argument named %q", key))
	}
	converted, err := v.m.FromScript(v.rt, val, arg.Type())
	if err != nil {
		panic(v.rt.NewGoError(err))
	}
	if err := arg.SetActual(converted); err != nil {
		panic(v.rt.NewGoError(err))
	}
	return true
}

func (v *argumentListView) Has(key string) bool {
	v.check()
	return v.list.Has(key)
}

// Delete clears the actual value, restoring the default.
func (v *argumentListView) Delete(key string) bool {
	v.check()
	arg, ok := v.list.Get(key)
	if !ok {
		return true
	}
	_ = arg.SetActual(nil)
	return true
}

func (v *argumentListView) Keys() []string {
	v.check()
	return v.list.Names()
}

package sandbox

import (
	"context"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, r *BindingRegistry) *Context {
	t.Helper()
	c := &Context{rt: goja.New(), ctx: context.Background(), sink: &recordingSink{}}
	require.NoError(t, r.install(c))
	return c
}

func TestBindingRegistry_DuplicateName(t *testing.T) {
	noop := func(*Call) goja.Value { return goja.Undefined() }

	_, err := NewBindingRegistry(WithBinding("a.b", noop), WithBinding("a.b", noop))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate binding name")
}

func TestBindingRegistry_InvalidNames(t *testing.T) {
	noop := func(*Call) goja.Value { return goja.Undefined() }

	for _, name := range []string{"", ".a", "a.", "a..b"} {
		_, err := NewBindingRegistry(WithBinding(name, noop))
		assert.Error(t, err, name)
	}

	_, err := NewBindingRegistry(WithBinding("a", nil))
	assert.Error(t, err)

	_, err = NewBindingRegistry(WithBinding("sys", noop), WithBinding("sys.out", noop))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nested under")
}

func TestBindingRegistry_InstallNested(t *testing.T) {
	r, err := NewBindingRegistry(
		WithBinding("host.io.echo", func(call *Call) goja.Value { return call.Argument(0) }),
		WithBinding("host.name", func(call *Call) goja.Value { return call.Context.Runtime().ToValue(call.Name) }),
	)
	require.NoError(t, err)
	assert.True(t, r.Has("host.io.echo"))
	assert.False(t, r.Has("host"))

	c := newTestContext(t, r)
	v, err := c.Runtime().RunString("host.io.echo('hi') + ' ' + host.name()")
	require.NoError(t, err)
	assert.Equal(t, "hi host.name", v.String())
}

func TestMiddleware_Order(t *testing.T) {
	var order []string
	tag := func(label string) Middleware {
		return func(next Binding) Binding {
			return func(call *Call) goja.Value {
				order = append(order, label)
				return next(call)
			}
		}
	}

	r, err := NewBindingRegistry(
		WithMiddleware(tag("first"), tag("second")),
		WithBinding("f", func(*Call) goja.Value {
			order = append(order, "binding")
			return goja.Undefined()
		}),
	)
	require.NoError(t, err)

	c := newTestContext(t, r)
	_, err = c.Runtime().RunString("f()")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "binding"}, order)
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	r, err := NewBindingRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithBinding("boom", func(*Call) goja.Value {
			var m map[string]int
			m["x"] = 1
			return goja.Undefined()
		}),
		WithBinding("fail", func(*Call) goja.Value { panic("plain failure") }),
		WithBinding("throw", func(call *Call) goja.Value {
			panic(call.Context.Runtime().NewTypeError("deliberate"))
		}),
	)
	require.NoError(t, err)
	c := newTestContext(t, r)

	v, err := c.Runtime().RunString("try { boom() } catch (e) { 'caught ' + e }")
	require.NoError(t, err)
	assert.Contains(t, v.String(), "caught")
	assert.Contains(t, v.String(), "boom")

	_, err = c.Runtime().RunString("fail()")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fail: plain failure")

	v, err = c.Runtime().RunString("try { this['throw']() } catch (e) { e instanceof TypeError }")
	require.NoError(t, err)
	assert.True(t, v.ToBoolean())
}

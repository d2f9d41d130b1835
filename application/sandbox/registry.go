package sandbox

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dop251/goja"
)

// Call is one invocation of a binding from script.
type Call struct {
	Context *Context
	Name    string
	goja.FunctionCall
}

// Binding is a host function reachable from script.
type Binding func(call *Call) goja.Value

// BindingRegistry is an immutable collection of named bindings.
// Names are dotted paths ("system.write_stdout") installed as nested
// objects on the global object.
type BindingRegistry struct {
	bindings map[string]Binding
	names    []string // sorted for consistent installation
}

// registryBuilder accumulates configuration during registry construction.
type registryBuilder struct {
	bindings   map[string]Binding
	middleware []Middleware
	errors     []error
}

// RegistryOption is a functional option for configuring a BindingRegistry.
type RegistryOption func(*registryBuilder)

// NewBindingRegistry creates an immutable BindingRegistry.
// Returns an error if any binding name is registered twice.
func NewBindingRegistry(opts ...RegistryOption) (*BindingRegistry, error) {
	b := &registryBuilder{bindings: make(map[string]Binding)}
	for _, opt := range opts {
		opt(b)
	}
	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}

	names := make([]string, 0, len(b.bindings))
	for name := range b.bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		parent := name[:max(strings.LastIndex(name, "."), 0)]
		if _, clash := b.bindings[parent]; clash {
			return nil, fmt.Errorf("binding %q is nested under binding %q", name, parent)
		}
	}

	// Apply middleware in reverse order so first middleware wraps outermost
	wrapped := make(map[string]Binding, len(b.bindings))
	for name, binding := range b.bindings {
		for i := len(b.middleware) - 1; i >= 0; i-- {
			binding = b.middleware[i](binding)
		}
		wrapped[name] = binding
	}

	return &BindingRegistry{bindings: wrapped, names: names}, nil
}

// Has returns true if a binding with the given name is registered.
func (r *BindingRegistry) Has(name string) bool {
	_, ok := r.bindings[name]
	return ok
}

// Names returns a sorted list of all registered binding names.
func (r *BindingRegistry) Names() []string {
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// install defines every binding on the global object of c's runtime.
func (r *BindingRegistry) install(c *Context) error {
	rt := c.Runtime()
	for _, name := range r.names {
		path := strings.Split(name, ".")
		target := rt.GlobalObject()
		for _, segment := range path[:len(path)-1] {
			next, ok := target.Get(segment).(*goja.Object)
			if !ok {
				next = rt.NewObject()
				if err := target.Set(segment, next); err != nil {
					return fmt.Errorf("cannot install %s: %w", name, err)
				}
			}
			target = next
		}

		binding, bindingName := r.bindings[name], name
		fn := func(call goja.FunctionCall) goja.Value {
			return binding(&Call{Context: c, Name: bindingName, FunctionCall: call})
		}
		if err := target.Set(path[len(path)-1], fn); err != nil {
			return fmt.Errorf("cannot install %s: %w", name, err)
		}
	}
	return nil
}

func (b *registryBuilder) addBinding(name string, binding Binding) error {
	if name == "" || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") || strings.Contains(name, "..") {
		return fmt.Errorf("invalid binding name: %q", name)
	}
	if binding == nil {
		return fmt.Errorf("binding %q is nil", name)
	}
	if _, exists := b.bindings[name]; exists {
		return fmt.Errorf("duplicate binding name: %q", name)
	}
	b.bindings[name] = binding
	return nil
}

// WithBinding registers a binding under name.
func WithBinding(name string, binding Binding) RegistryOption {
	return func(b *registryBuilder) {
		if err := b.addBinding(name, binding); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithMiddleware adds middleware to the registry.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) {
		b.middleware = append(b.middleware, mw...)
	}
}

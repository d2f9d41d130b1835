package entities

import (
	"fmt"
)

// ArgumentList is an ordered, name-indexed set of arguments owned by a
// plug-in instance. Scripts observe it through a live view; writes go
// straight to the arguments held here.
type ArgumentList struct {
	index map[string]int
	args  []*Argument
}

// NewArgumentList creates an empty list.
func NewArgumentList() *ArgumentList {
	return &ArgumentList{index: make(map[string]int)}
}

// Add appends a new argument. Names must be unique within the list.
func (l *ArgumentList) Add(name, typeName string, opts ...ArgumentOption) error {
	if _, exists := l.index[name]; exists {
		return fmt.Errorf("duplicate argument name: %q", name)
	}
	arg, err := NewArgument(name, typeName, opts...)
	if err != nil {
		return err
	}
	l.index[name] = len(l.args)
	l.args = append(l.args, arg)
	return nil
}

// MustAdd is like Add but panics on error. Intended for static specifications.
func (l *ArgumentList) MustAdd(name, typeName string, opts ...ArgumentOption) *ArgumentList {
	if err := l.Add(name, typeName, opts...); err != nil {
		panic(err)
	}
	return l
}

// Get returns the argument with the given name.
func (l *ArgumentList) Get(name string) (*Argument, bool) {
	i, ok := l.index[name]
	if !ok {
		return nil, false
	}
	return l.args[i], true
}

// Has reports whether the list holds an argument with the given name.
func (l *ArgumentList) Has(name string) bool {
	_, ok := l.index[name]
	return ok
}

// Len returns the number of arguments.
func (l *ArgumentList) Len() int {
	return len(l.args)
}

// Names returns argument names in declaration order.
func (l *ArgumentList) Names() []string {
	names := make([]string, len(l.args))
	for i, a := range l.args {
		names[i] = a.name
	}
	return names
}

// Arguments returns the arguments in declaration order.
func (l *ArgumentList) Arguments() []*Argument {
	out := make([]*Argument, len(l.args))
	copy(out, l.args)
	return out
}

// SetValue sets the actual value of the named argument.
func (l *ArgumentList) SetValue(name string, v any) error {
	arg, ok := l.Get(name)
	if !ok {
		return fmt.Errorf("unknown argument: %q", name)
	}
	return arg.SetActual(v)
}

// Value returns the effective value of the named argument.
func (l *ArgumentList) Value(name string) (any, bool) {
	arg, ok := l.Get(name)
	if !ok {
		return nil, false
	}
	return arg.Value()
}

// Clone returns a list with the same declarations and values. Values are
// shared, not deep-copied.
func (l *ArgumentList) Clone() *ArgumentList {
	out := NewArgumentList()
	for _, a := range l.args {
		c := *a
		out.index[c.name] = len(out.args)
		out.args = append(out.args, &c)
	}
	return out
}

// ValueAs returns the effective value of the named argument as T.
func ValueAs[T any](l *ArgumentList, name string) (T, bool) {
	var zero T
	v, ok := l.Value(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

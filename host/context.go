package host

import (
	"context"
	"strconv"

	"github.com/reglet-dev/reglet-script/internal/execcontext"
)

type interpreterKey struct{}

// WithInterpreter returns a copy of ctx carrying i. Plug-ins that run
// scripts themselves, such as the wizard, find their interpreter this way.
func WithInterpreter(ctx context.Context, i *Interpreter) context.Context {
	return context.WithValue(ctx, interpreterKey{}, i)
}

// FromContext returns the interpreter carried by ctx.
func FromContext(ctx context.Context) (*Interpreter, bool) {
	i, ok := ctx.Value(interpreterKey{}).(*Interpreter)
	return i, ok && i != nil
}

func withCommand(ctx context.Context, i *Interpreter, n uint64) context.Context {
	ctx = execcontext.WithCommandID(ctx, strconv.FormatUint(n, 10))
	return WithInterpreter(ctx, i)
}

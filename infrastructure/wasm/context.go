package wasm

import (
	"context"

	"github.com/reglet-dev/reglet-script/domain/ports"
)

// contextKey is a private type for context keys.
type contextKey struct {
	name string
}

var (
	pluginNameKey = &contextKey{name: "plugin_name"}
	progressKey   = &contextKey{name: "progress"}
)

// withCall decorates ctx with the plug-in name and progress sink the host
// functions report to while a guest export runs.
func withCall(ctx context.Context, name string, progress ports.Progress) context.Context {
	ctx = context.WithValue(ctx, pluginNameKey, name)
	if progress != nil {
		ctx = context.WithValue(ctx, progressKey, progress)
	}
	return ctx
}

// pluginName retrieves the plug-in name from the context, falling back to
// fallback.
func pluginName(ctx context.Context, fallback string) string {
	if name, ok := ctx.Value(pluginNameKey).(string); ok {
		return name
	}
	return fallback
}

func progressFrom(ctx context.Context) (ports.Progress, bool) {
	p, ok := ctx.Value(progressKey).(ports.Progress)
	return p, ok
}

// Package log provides a slog handler that writes records to an output
// listener, so interpreter diagnostics share the channel scripts write to.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/reglet-dev/reglet-script/domain/ports"
)

// ListenerHandler implements slog.Handler by rendering each record as one
// line of text delivered to a ports.Listener.
type ListenerHandler struct {
	listener ports.Listener
	prefix   string // rendered attributes from WithAttrs
	group    string // dotted group path from WithGroup
	opts     handlerConfig
}

// HandlerOption configures the ListenerHandler.
type HandlerOption func(*handlerConfig)

type handlerConfig struct {
	level     slog.Leveler
	addSource bool
}

// defaultHandlerConfig returns the default configuration.
func defaultHandlerConfig() handlerConfig {
	return handlerConfig{
		level: slog.LevelInfo,
	}
}

// WithLevel sets the minimum log level to report.
func WithLevel(level slog.Leveler) HandlerOption {
	return func(c *handlerConfig) {
		c.level = level
	}
}

// WithSource enables reporting of source location (file/line).
func WithSource(enabled bool) HandlerOption {
	return func(c *handlerConfig) {
		c.addSource = enabled
	}
}

// NewListenerHandler creates a ListenerHandler writing to listener.
func NewListenerHandler(listener ports.Listener, opts ...HandlerOption) *ListenerHandler {
	cfg := defaultHandlerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ListenerHandler{listener: listener, opts: cfg}
}

// ParseLevel converts a configuration level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}

// Enabled reports whether the handler handles records at the given level.
func (h *ListenerHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

// Handle renders r and delivers it to the listener.
func (h *ListenerHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)

	if h.opts.addSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		fmt.Fprintf(&b, " source=%s:%d", f.File, f.Line)
	}

	b.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.group, a)
		return true
	})

	h.listener(b.String())
	return nil
}

// WithAttrs returns a new ListenerHandler that includes the given attributes.
func (h *ListenerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		appendAttr(&b, h.group, a)
	}
	newHandler := *h
	newHandler.prefix = b.String()
	return &newHandler
}

// WithGroup returns a new ListenerHandler with the given group name.
func (h *ListenerHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	newHandler := *h
	newHandler.group = qualify(h.group, name)
	return &newHandler
}

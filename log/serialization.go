package log

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

func qualify(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

// appendAttr renders a as " key=value", flattening groups into dotted keys.
func appendAttr(b *strings.Builder, group string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		inner := group
		if attr.Key != "" {
			inner = qualify(group, attr.Key)
		}
		for _, a := range attr.Value.Group() {
			appendAttr(b, inner, a)
		}
		return
	}

	b.WriteByte(' ')
	b.WriteString(qualify(group, attr.Key))
	b.WriteByte('=')
	b.WriteString(quoteIfNeeded(formatValue(attr.Value)))
}

func formatValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	case slog.KindTime:
		return v.Time().Format(time.RFC3339Nano)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindAny:
		a := v.Any()
		if a == nil {
			return "<nil>"
		}
		if err, isErr := a.(error); isErr {
			return err.Error()
		}
		if s, isStringer := a.(fmt.Stringer); isStringer {
			return s.String()
		}
		if data, err := json.Marshal(a); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", a)
	}
	return v.String()
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

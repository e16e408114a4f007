package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiBlue   = "\033[34m"
	ansiCyan   = "\033[36m"
)

// scopeKeys locate a record within a cascade run. They are lifted out of the
// attribute list and printed as a breadcrumb ahead of the message.
var scopeKeys = []string{"cascade_id", "cascade", "round", "step"}

// PrettyHandler is a slog.Handler for terminals. A record renders as
//
//	15:04:05 WRN [sheep round=1 step=3] step failed failures=1 error="..."
type PrettyHandler struct {
	level slog.Leveler
	w     io.Writer
	mu    *sync.Mutex
	group string
	attrs []slog.Attr
}

func NewPrettyHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyHandler {
	h := &PrettyHandler{level: slog.LevelInfo, w: w, mu: new(sync.Mutex)}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	return h
}

func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var scope, rest []slog.Attr
	split := func(a slog.Attr) bool {
		if h.group == "" && slices.Contains(scopeKeys, a.Key) {
			scope = append(scope, a)
		} else {
			rest = append(rest, a)
		}
		return true
	}
	for _, a := range h.attrs {
		split(a)
	}
	r.Attrs(split)

	buf := make([]byte, 0, 256)
	buf = append(buf, ansiDim...)
	buf = r.Time.AppendFormat(buf, time.TimeOnly)
	buf = append(buf, ansiReset...)
	buf = append(buf, ' ')
	buf = appendLevel(buf, r.Level)
	buf = appendScope(buf, scope)
	buf = append(buf, r.Message...)
	for _, a := range rest {
		buf = append(buf, ' ')
		buf = appendAttr(buf, a, h.group)
	}
	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(slices.Clip(h.attrs), attrs...)
	return &clone
}

func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	clone.group = name
	return &clone
}

func appendLevel(buf []byte, level slog.Level) []byte {
	var color, label string
	switch {
	case level >= slog.LevelError:
		color, label = ansiRed, "ERR"
	case level >= slog.LevelWarn:
		color, label = ansiYellow, "WRN"
	case level >= slog.LevelInfo:
		color, label = ansiBlue, "INF"
	default:
		color, label = ansiDim, "DBG"
	}
	buf = append(buf, color...)
	buf = append(buf, ansiBold...)
	buf = append(buf, label...)
	buf = append(buf, ansiReset...)
	return append(buf, ' ')
}

// appendScope writes the breadcrumb. The cascade name or id is printed bare;
// round and step keep their keys.
func appendScope(buf []byte, scope []slog.Attr) []byte {
	if len(scope) == 0 {
		return buf
	}
	slices.SortStableFunc(scope, func(a, b slog.Attr) int {
		return slices.Index(scopeKeys, a.Key) - slices.Index(scopeKeys, b.Key)
	})
	buf = append(buf, ansiGreen...)
	buf = append(buf, '[')
	for i, a := range scope {
		if i > 0 {
			buf = append(buf, ' ')
		}
		switch a.Key {
		case "cascade", "cascade_id":
			buf = appendValue(buf, a.Value)
		default:
			buf = append(buf, a.Key...)
			buf = append(buf, '=')
			buf = appendValue(buf, a.Value)
		}
	}
	buf = append(buf, ']')
	buf = append(buf, ansiReset...)
	return append(buf, ' ')
}

func appendAttr(buf []byte, a slog.Attr, group string) []byte {
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	color := ansiCyan
	if a.Key == "error" {
		color = ansiRed
	}
	buf = append(buf, color...)
	buf = append(buf, key...)
	buf = append(buf, '=')
	buf = append(buf, ansiReset...)
	return appendValue(buf, a.Value)
}

func appendValue(buf []byte, v slog.Value) []byte {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		if s := v.String(); needsQuoting(s) {
			return strconv.AppendQuote(buf, s)
		}
		return append(buf, v.String()...)
	case slog.KindTime:
		return v.Time().AppendFormat(buf, time.RFC3339)
	case slog.KindDuration:
		return append(buf, v.Duration().Round(time.Millisecond).String()...)
	case slog.KindGroup:
		buf = append(buf, '{')
		for i, a := range v.Group() {
			if i > 0 {
				buf = append(buf, ' ')
			}
			buf = append(buf, a.Key...)
			buf = append(buf, '=')
			buf = appendValue(buf, a.Value)
		}
		return append(buf, '}')
	default:
		return fmt.Append(buf, v.Any())
	}
}

func needsQuoting(s string) bool {
	for _, c := range s {
		if c == ' ' || c == '\t' || c == '\n' || c == '"' || c == '=' {
			return true
		}
	}
	return false
}

// Package logger provides the structured logger threaded through cascade
// runs via context.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the subset of slog used across the module. Tests swap in Nop or a
// buffer-backed logger through WithContext.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithGroup(name string) Logger
}

// Format selects the handler built by Setup.
type Format string

const (
	FormatAuto   Format = "auto"
	FormatPretty Format = "pretty"
	FormatJSON   Format = "json"
	FormatText   Format = "text"
)

// Options configure Setup.
type Options struct {
	Level  slog.Level
	Format Format
	// AddSource annotates JSON records with the calling file and line.
	AddSource bool
}

type slogLogger struct {
	l *slog.Logger
}

func New(h slog.Handler) Logger {
	return slogLogger{l: slog.New(h)}
}

func (s slogLogger) Debug(msg string, args ...any) { s.l.Debug(msg, args...) }
func (s slogLogger) Info(msg string, args ...any)  { s.l.Info(msg, args...) }
func (s slogLogger) Warn(msg string, args ...any)  { s.l.Warn(msg, args...) }
func (s slogLogger) Error(msg string, args ...any) { s.l.Error(msg, args...) }

func (s slogLogger) With(args ...any) Logger {
	return slogLogger{l: s.l.With(args...)}
}

func (s slogLogger) WithGroup(name string) Logger {
	return slogLogger{l: s.l.WithGroup(name)}
}

// Setup builds the logger selected by opts. FormatAuto picks pretty output
// when w is a terminal and text otherwise.
func Setup(w io.Writer, opts Options) (Logger, error) {
	ho := &slog.HandlerOptions{Level: opts.Level}
	format := opts.Format
	if format == FormatAuto || format == "" {
		format = FormatText
		if f, ok := w.(*os.File); ok && isTerminal(f.Fd()) {
			format = FormatPretty
		}
	}
	switch format {
	case FormatPretty:
		return New(NewPrettyHandler(w, ho)), nil
	case FormatJSON:
		ho.AddSource = opts.AddSource
		return New(slog.NewJSONHandler(w, ho)), nil
	case FormatText:
		return New(slog.NewTextHandler(w, ho)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want auto, pretty, json or text)", opts.Format)
	}
}

// ParseLevel accepts debug, info, warn/warning and error in any case, or an
// slog offset form such as "info+2".
func ParseLevel(s string) (slog.Level, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn, nil
	}
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}

// Nop discards everything.
func Nop() Logger {
	return New(slog.DiscardHandler)
}

var fallback atomic.Value

func init() {
	fallback.Store(New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
}

// Default is the logger used when a context carries none. It writes warnings
// and errors to stderr until replaced with SetDefault.
func Default() Logger {
	return fallback.Load().(Logger)
}

func SetDefault(l Logger) {
	fallback.Store(l)
}

type ctxKey struct{}

// FromContext returns the logger installed by WithContext, or Default.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok {
		return l
	}
	return Default()
}

func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

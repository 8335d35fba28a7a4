package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

type ctxKey struct{}

// WithRequestID stores the request id so every log line of a request carries it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type Logger struct {
	kit log.Logger
}

// New builds a JSON logger writing to w. lvl is one of debug, info, warn, error.
func New(w io.Writer, component, lvl string) *Logger {
	if w == nil {
		w = os.Stderr
	}
	var kitlogger log.Logger
	kitlogger = log.NewJSONLogger(log.NewSyncWriter(w))
	kitlogger = level.NewFilter(kitlogger, allow(lvl))
	kitlogger = log.With(kitlogger, "ts", log.DefaultTimestampUTC, "component", component)
	return &Logger{kit: kitlogger}
}

func NewNop() *Logger {
	return &Logger{kit: log.NewNopLogger()}
}

func allow(lvl string) level.Option {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return level.AllowDebug()
	case "warn", "warning":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// ValidLevel reports whether lvl is understood by New.
func ValidLevel(lvl string) bool {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{kit: log.With(l.kit, keyvals...)}
}

func (l *Logger) Debug(ctx context.Context, msg string, keyvals ...any) {
	l.log(ctx, level.Debug(l.kit), msg, keyvals)
}

func (l *Logger) Info(ctx context.Context, msg string, keyvals ...any) {
	l.log(ctx, level.Info(l.kit), msg, keyvals)
}

func (l *Logger) Warn(ctx context.Context, msg string, keyvals ...any) {
	l.log(ctx, level.Warn(l.kit), msg, keyvals)
}

func (l *Logger) Err(ctx context.Context, msg string, keyvals ...any) {
	l.log(ctx, level.Error(l.kit), msg, keyvals)
}

func (l *Logger) log(ctx context.Context, kit log.Logger, msg string, keyvals []any) {
	if id := RequestID(ctx); id != "" {
		keyvals = append(keyvals, "request_id", id)
	}
	keyvals = append(keyvals, "msg", msg)
	_ = kit.Log(keyvals...)
}

// Printf lets the logger back gorm's logger.New.
func (l *Logger) Printf(format string, args ...any) {
	l.log(context.Background(), level.Info(l.kit), "database", []any{"query", strings.TrimSpace(fmt.Sprintf(format, args...))})
}

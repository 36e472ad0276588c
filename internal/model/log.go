package model

import (
	"context"
	"log/slog"
)

// LogFunc receives request-level details from an adapter: the model being
// called, endpoints, upstream errors.
type LogFunc func(message string)

type logFuncKey struct{}

// WithLogFunc returns a context whose adapter calls report through fn.
func WithLogFunc(ctx context.Context, fn LogFunc) context.Context {
	return context.WithValue(ctx, logFuncKey{}, fn)
}

// DebugLog returns a LogFunc writing to slog at debug level, tagged with
// the calling component.
func DebugLog(component string) LogFunc {
	return func(msg string) {
		slog.Debug("model-log", "component", component, "msg", msg)
	}
}

func emitLog(ctx context.Context, msg string) {
	if fn, ok := ctx.Value(logFuncKey{}).(LogFunc); ok {
		fn(msg)
	}
}

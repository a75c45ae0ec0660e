// Package observability carries request-scoped correlation data (logger,
// request id, pipeline stage) through context.Context.
package observability

import (
	"context"
	"log/slog"
)

type loggerContextKey struct{}

// requestIDContextKey stores the originating HTTP request_id so queue workers
// and generator calls can be correlated with the request that caused them.
type requestIDContextKey struct{}

type stageContextKey struct{}

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// LoggerFromContext returns the logger stored in the context or the default
// slog logger when none is present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if lg, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

// ContextWithRequestID stores a non-empty request_id in the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext retrieves the request_id from the context, or "".
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(requestIDContextKey{}).(string)
	return rid
}

// ContextWithStage labels the context with the pipeline stage issuing calls.
// Generator decorators read it for metric and log labels.
func ContextWithStage(ctx context.Context, stage string) context.Context {
	if ctx == nil || stage == "" {
		return ctx
	}
	return context.WithValue(ctx, stageContextKey{}, stage)
}

// StageFromContext returns the pipeline stage label or "unknown".
func StageFromContext(ctx context.Context) string {
	if ctx != nil {
		if s, ok := ctx.Value(stageContextKey{}).(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

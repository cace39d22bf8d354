package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// ContextWithLogger stores a logger in the context.
func ContextWithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return zap.NewNop()
}

// FromContextOr returns the logger stored in ctx, or fallback when ctx has none.
func FromContextOr(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	if fallback == nil {
		return zap.NewNop()
	}
	return fallback
}

// ForRun returns a child logger tagged with the identity of one ingest run.
func ForRun(l *zap.Logger, runID, keyword, filter string) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	return l.With(
		zap.String("run_id", runID),
		zap.String("keyword", keyword),
		zap.String("filter", filter),
	)
}

package middleware

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens one span per message, named after its key.
func Tracing(tracer trace.Tracer) Step {
	return func(ctx context.Context, key string, _ any, next Next) (any, error) {
		ctx, span := tracer.Start(ctx, key, trace.WithAttributes(attribute.String("rentflow.message", key)))
		defer span.End()
		res, err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return res, err
	}
}

// Logging writes one record per message. Failures are logged at warn level since most
// are user-facing alerts rather than faults.
func Logging(logger *slog.Logger) Step {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, key string, _ any, next Next) (any, error) {
		started := time.Now()
		res, err := next(ctx)
		attrs := []any{"message", key, "duration", time.Since(started)}
		if err != nil {
			logger.WarnContext(ctx, "message failed", append(attrs, "error", err)...)
			return res, err
		}
		logger.DebugContext(ctx, "message handled", attrs...)
		return res, nil
	}
}

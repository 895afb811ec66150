package middleware

import (
	"context"
	"log/slog"

	"rentflow/internal/app/outbox"
)

// OutboxFlush flushes recorded events after every command, failed ones included: a
// rejected booking attempt may already have created and compensated a row.
// A flush failure fails a successful command but never replaces the command's own error.
func OutboxFlush(box outbox.Outbox, logger *slog.Logger) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return OnCommands(func(ctx context.Context, key string, _ any, next Next) (any, error) {
		res, err := next(ctx)
		flushErr := box.Flush(context.WithoutCancel(ctx))
		if err != nil {
			if flushErr != nil {
				logger.ErrorContext(ctx, "outbox flush failed", "command", key, "error", flushErr)
			}
			return nil, err
		}
		if flushErr != nil {
			return nil, flushErr
		}
		return res, nil
	})
}

package middleware

import (
	"context"

	"rentflow/internal/app/commands"
	"rentflow/internal/app/queries"
)

type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// Next continues the pipeline with the current message.
type Next func(ctx context.Context) (any, error)

// Step is one pipeline stage shared by both buses. key is the message key, e.g.
// "checkout.start_booking".
type Step func(ctx context.Context, key string, message any, next Next) (any, error)

// OnCommands runs step in front of every dispatched command.
func OnCommands(step Step) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			return step(ctx, cmd.Key(), cmd, func(ctx context.Context) (any, error) {
				return next.Dispatch(ctx, cmd)
			})
		})
	}
}

// OnQueries runs step in front of every query.
func OnQueries(step Step) QueryMiddleware {
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			return step(ctx, q.Key(), q, func(ctx context.Context) (any, error) {
				return next.Ask(ctx, q)
			})
		})
	}
}

// ChainCommands wraps base so that mws[0] runs first.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryFunc func(ctx context.Context, query queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}

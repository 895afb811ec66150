package policies

import (
	"context"

	"rentflow/internal/domain/auth"
)

// SessionProvider exposes the renter's current session and a way to refresh it.
type SessionProvider interface {
	Session(ctx context.Context) (*auth.Session, error)
	Refresh(ctx context.Context) (*auth.Session, error)
}

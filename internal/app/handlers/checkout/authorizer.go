package checkout

import (
	"context"
	"strings"

	"rentflow/internal/app/checkout"
)

// ActorAuthorizer rejects messages that need a signed-in user but carry none.
type ActorAuthorizer struct{}

func (ActorAuthorizer) Authorize(_ context.Context, message any) error {
	a, ok := message.(Actor)
	if !ok {
		return nil
	}
	if strings.TrimSpace(a.Principal().UserID) == "" {
		return checkout.ErrUnauthenticated
	}
	return nil
}

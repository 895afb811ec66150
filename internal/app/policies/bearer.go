package policies

import "context"

type bearerKey struct{}

// WithBearer attaches the caller's access token so backend adapters can act on the
// caller's behalf.
func WithBearer(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, bearerKey{}, token)
}

func BearerFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(bearerKey{}).(string)
	return v
}

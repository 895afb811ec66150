package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	domainauth "rentflow/internal/domain/auth"
)

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
	User         struct {
		ID string `json:"id"`
	} `json:"user"`
}

// Refresher exchanges refresh tokens with GoTrue.
type Refresher struct {
	Client *Client
	Now    func() time.Time
}

func (r Refresher) RefreshSession(ctx context.Context, refreshToken string) (*domainauth.Session, error) {
	var out tokenResponse
	err := r.Client.do(ctx, request{
		op:     "refresh session",
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": refreshToken},
		// refresh must not reuse the expired access token
		bearer: r.Client.anonKey,
	}, &out)
	if err != nil {
		return nil, err
	}
	var exp time.Time
	switch {
	case out.ExpiresAt > 0:
		exp = time.Unix(out.ExpiresAt, 0)
	case out.ExpiresIn > 0:
		exp = r.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	s, err := domainauth.NewSession(out.AccessToken, out.RefreshToken, out.User.ID, exp)
	if err != nil {
		return nil, fmt.Errorf("%w: refresh session: %v", ErrMalformed, err)
	}
	return s, nil
}

func (r Refresher) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "rentflow/internal/domain/auth"
)

var (
	ErrSecretMissing = errors.New("auth: jwt secret not configured")
	ErrInvalidToken  = errors.New("auth: invalid access token")
)

// Claims are the access token claims issued by the auth backend.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 access tokens signed with the project secret.
type Verifier struct {
	secret []byte
	now    func() time.Time
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret), now: time.Now}
}

func (v *Verifier) Verify(token string) (*Claims, error) {
	if v == nil || len(v.secret) == 0 {
		return nil, ErrSecretMissing
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(v.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Mint signs a token for userID. Used by the local backend and tests.
func (v *Verifier) Mint(userID string, ttl time.Duration) (string, time.Time, error) {
	if v == nil || len(v.secret) == 0 {
		return "", time.Time{}, ErrSecretMissing
	}
	now := v.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Inspect reads subject and expiry without verifying the signature. The backend that
// receives the token does the verification.
func Inspect(token string) (userID string, expiresAt time.Time, err error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", time.Time{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return claims.Subject, expiresAt, nil
}

// SessionFromTokens builds a domain session from a raw token pair.
func SessionFromTokens(access, refresh string) (*domainauth.Session, error) {
	userID, exp, err := Inspect(access)
	if err != nil {
		return nil, err
	}
	return domainauth.NewSession(access, refresh, userID, exp)
}

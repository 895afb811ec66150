package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSessionUsable(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		session *Session
		want    bool
	}{
		{"nil", nil, false},
		{"empty token", &Session{}, false},
		{"no expiry", &Session{AccessToken: "t"}, true},
		{"fresh", &Session{AccessToken: "t", ExpiresAt: now.Add(time.Hour)}, true},
		{"inside skew", &Session{AccessToken: "t", ExpiresAt: now.Add(10 * time.Second)}, false},
		{"expired", &Session{AccessToken: "t", ExpiresAt: now.Add(-time.Minute)}, false},
	}
	for _, tc := range cases {
		if got := tc.session.Usable(now); got != tc.want {
			t.Fatalf("%s: Usable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewSessionRequiresToken(t *testing.T) {
	if _, err := NewSession("  ", "r", "u", time.Time{}); !errors.Is(err, ErrTokenRequired) {
		t.Fatalf("expected ErrTokenRequired, got %v", err)
	}
	s, err := NewSession(" abc ", "r", "u", time.Time{})
	if err != nil || s.Bearer() != "abc" {
		t.Fatalf("unexpected session %+v, %v", s, err)
	}
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type statusErr int

func (e statusErr) Error() string   { return "status" }
func (e statusErr) StatusCode() int { return int(e) }

func TestBreakerOpensAfterThreeFailures(t *testing.T) {
	cb := NewBreaker("test", nil)
	ctx := context.Background()
	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		if _, err := Execute(ctx, cb, func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	calls := 0
	_, err := Execute(ctx, cb, func() (int, error) { calls++; return 1, nil })
	if !errors.Is(err, ErrUnavailable) || calls != 0 {
		t.Fatalf("breaker should be open: err=%v calls=%d", err, calls)
	}
}

func TestClientErrorsDoNotTrip(t *testing.T) {
	cb := NewBreaker("test", nil)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, _ = Execute(ctx, cb, func() (int, error) { return 0, statusErr(409) })
	}
	v, err := Execute(ctx, cb, func() (int, error) { return 7, nil })
	if err != nil || v != 7 {
		t.Fatalf("breaker tripped on 4xx: %v", err)
	}
	if IsClientError(statusErr(503)) {
		t.Fatalf("5xx classified as client error")
	}
}

func TestCallerCancellationDoesNotTrip(t *testing.T) {
	cb := NewBreaker("test", nil)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	// Adapters format the transport error, so the only signal left is the caller's ctx.
	timeout := fmt.Errorf("request timed out: %v", context.Canceled)
	for i := 0; i < 5; i++ {
		_, err := Execute(cancelled, cb, func() (int, error) { return 0, timeout })
		if err != timeout {
			t.Fatalf("attempt %d: expected the original error back, got %v", i, err)
		}
	}
	v, err := Execute(context.Background(), cb, func() (int, error) { return 3, nil })
	if err != nil || v != 3 {
		t.Fatalf("breaker tripped on cancelled callers: %v", err)
	}
	if !IsSuccessful(context.Canceled) || IsSuccessful(errors.New("boom")) {
		t.Fatalf("unexpected IsSuccessful classification")
	}
}

package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

var ErrUnavailable = errors.New("resilience: dependency unavailable")

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// OpenTimeout is how long an open breaker rejects calls before letting a probe through.
const OpenTimeout = 10 * time.Second

// NewBreaker returns a breaker that opens after three consecutive failures and probes
// again after OpenTimeout. Client errors (4xx) and calls abandoned by their caller do not
// count as failures.
func NewBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     OpenTimeout,
		Interval:    0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			}
		},
		IsSuccessful: IsSuccessful,
	})
}

// callerGone marks an error produced after the caller's own context ended.
type callerGone struct{ err error }

func (e callerGone) Error() string { return e.err.Error() }
func (e callerGone) Unwrap() error { return e.err }

// IsSuccessful reports whether err leaves the dependency's health untouched.
func IsSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var gone callerGone
	if errors.As(err, &gone) || errors.Is(err, context.Canceled) {
		return true
	}
	return IsClientError(err)
}

// IsClientError reports whether err should not count against the breaker.
func IsClientError(err error) bool {
	if err == nil {
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.StatusCode()
		return code >= http.StatusBadRequest && code < http.StatusInternalServerError
	}
	return false
}

// Execute runs fn through cb. An open breaker yields ErrUnavailable. Failures that happen
// after ctx is done are returned as is but do not count against the breaker.
func Execute[T any](ctx context.Context, cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	if cb == nil {
		return fn()
	}
	res, err := cb.Execute(func() (any, error) {
		v, err := fn()
		if err != nil && ctx.Err() != nil {
			return v, callerGone{err: err}
		}
		return v, err
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %s: %v", ErrUnavailable, cb.Name(), err)
		}
		var gone callerGone
		if errors.As(err, &gone) {
			err = gone.err
		}
		if v, ok := res.(T); ok {
			return v, err
		}
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sony/gobreaker"

	"rentflow/internal/app/policies"
	"rentflow/internal/infra/resilience"
)

const (
	defaultTimeout = 10 * time.Second
	errorBodyLimit = 512
)

var (
	ErrNotConfigured = errors.New("supabase: base url or anon key missing")
	ErrTimeout       = errors.New("supabase: request timed out")
	ErrNetwork       = errors.New("supabase: network error")
	ErrMalformed     = errors.New("supabase: malformed response")
)

// StatusError is a non-2xx response. Code and Message come from the JSON error body when
// one was returned.
type StatusError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Body    string
}

func (e *StatusError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if e.Code != "" {
		return fmt.Sprintf("supabase %s: status=%d code=%s: %s", e.Op, e.Status, e.Code, msg)
	}
	return fmt.Sprintf("supabase %s: status=%d: %s", e.Op, e.Status, msg)
}

func (e *StatusError) StatusCode() int { return e.Status }

// Client talks to PostgREST, GoTrue and Edge Functions of one Supabase project.
type Client struct {
	baseURL  string
	anonKey  string
	http     *http.Client
	circuits map[circuit]*gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// circuit groups operations that share a breaker. Availability reads failing must not
// stop a compensating delete from releasing held dates.
type circuit int

const (
	circuitWrite circuit = iota
	circuitRead
	circuitRelease
)

var circuitNames = map[circuit]string{
	circuitWrite:   "supabase-write",
	circuitRead:    "supabase-read",
	circuitRelease: "supabase-release",
}

type Options struct {
	BaseURL string
	AnonKey string
	Timeout time.Duration
	Logger  *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" || strings.TrimSpace(opts.AnonKey) == "" {
		return nil, ErrNotConfigured
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &Client{
		baseURL:  base,
		anonKey:  opts.AnonKey,
		http:     &http.Client{Timeout: timeout, Transport: transport},
		circuits: newCircuits(logger),
		logger:   logger.With("component", "supabase"),
	}, nil
}

func newCircuits(logger *slog.Logger) map[circuit]*gobreaker.CircuitBreaker {
	out := make(map[circuit]*gobreaker.CircuitBreaker, len(circuitNames))
	for c, name := range circuitNames {
		out[c] = resilience.NewBreaker(name, logger)
	}
	return out
}

type request struct {
	op      string
	circuit circuit
	method  string
	path    string
	query   url.Values
	body    any
	bearer  string
	headers map[string]string
}

// do sends req and decodes a 2xx JSON body into out (when out is non-nil). The bearer
// falls back to the caller's token on ctx and then to the anon key.
func (c *Client) do(ctx context.Context, req request, out any) error {
	_, err := resilience.Execute(ctx, c.circuits[req.circuit], func() (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, req, out)
	})
	if err != nil {
		c.logError(req, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("supabase %s: encode: %w", req.op, err)
		}
		body = bytes.NewReader(payload)
	}
	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("supabase %s: %w", req.op, err)
	}
	bearer := req.bearer
	if bearer == "" {
		bearer = policies.BearerFrom(ctx)
	}
	if bearer == "" {
		bearer = c.anonKey
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return classifyRequestError(ctx, req.op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return decodeStatusError(req.op, resp.StatusCode, snippet)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, req.op, err)
	}
	return nil
}

// errorBody covers PostgREST, GoTrue and edge function error shapes.
type errorBody struct {
	Code             json.RawMessage `json:"code"`
	Message          string          `json:"message"`
	Details          string          `json:"details"`
	Hint             string          `json:"hint"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
	Msg              string          `json:"msg"`
}

func decodeStatusError(op string, status int, raw []byte) *StatusError {
	se := &StatusError{Op: op, Status: status, Body: strings.TrimSpace(string(raw))}
	var eb errorBody
	if json.Unmarshal(raw, &eb) != nil {
		return se
	}
	se.Code = strings.Trim(string(eb.Code), `"`)
	for _, m := range []string{eb.Message, eb.ErrorDescription, eb.Msg, eb.Error} {
		if strings.TrimSpace(m) != "" {
			se.Message = m
			break
		}
	}
	if eb.Error != "" && se.Code == "" {
		se.Code = eb.Error
	}
	return se
}

func (c *Client) logError(req request, err error) {
	var se *StatusError
	if errors.As(err, &se) {
		c.logger.Warn("supabase request failed", "op", req.op, "method", req.method, "path", req.path, "status", se.Status, "code", se.Code, "err", se.Message)
		return
	}
	c.logger.Warn("supabase request failed", "op", req.op, "method", req.method, "path", req.path, "err", err)
}

func classifyRequestError(ctx context.Context, op string, err error) error {
	if isTimeoutError(ctx, err) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, op, err)
	}
	if isNetworkError(err) {
		return fmt.Errorf("%w: %s: %v", ErrNetwork, op, err)
	}
	return fmt.Errorf("supabase %s: %w", op, err)
}

func isTimeoutError(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		err = urlErr.Err
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH)
}

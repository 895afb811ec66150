package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"

	"rentflow/internal/app/commands"
)

type mapStore map[string]IdempotencyRecord

func (s mapStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s[key]
	return rec, ok, nil
}

func (s mapStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s[rec.Key] = rec
	return nil
}

type result struct {
	URL string `json:"url"`
}

type startCmd struct{ key string }

func (c startCmd) Key() string            { return "test.start" }
func (c startCmd) IdempotencyKey() string { return c.key }
func (c startCmd) ResultPrototype() any   { return &result{} }

func TestIdempotencyReplaysSuccess(t *testing.T) {
	bus := commands.NewInMemoryBus()
	calls := 0
	commands.RegisterHandler(bus, "test.start", commands.HandlerFunc[startCmd, *result](func(context.Context, startCmd) (*result, error) {
		calls++
		return &result{URL: "https://pay"}, nil
	}))
	wrapped := ChainCommands(bus, Idempotency(mapStore{}, nil))

	for i := 0; i < 2; i++ {
		res, err := commands.Dispatch[startCmd, *result](context.Background(), wrapped, startCmd{key: "k1"})
		if err != nil || res.URL != "https://pay" {
			t.Fatalf("dispatch %d: %+v %v", i, res, err)
		}
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times", calls)
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	bus := commands.NewInMemoryBus()
	calls := 0
	commands.RegisterHandler(bus, "test.start", commands.HandlerFunc[startCmd, *result](func(context.Context, startCmd) (*result, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("payment backend down")
		}
		return &result{URL: "https://pay"}, nil
	}))
	wrapped := ChainCommands(bus, Idempotency(mapStore{}, nil))

	if _, err := commands.Dispatch[startCmd, *result](context.Background(), wrapped, startCmd{key: "k1"}); err == nil {
		t.Fatalf("expected first attempt to fail")
	}
	res, err := commands.Dispatch[startCmd, *result](context.Background(), wrapped, startCmd{key: "k1"})
	if err != nil || res.URL != "https://pay" || calls != 2 {
		t.Fatalf("retry with same key: %+v %v calls=%d", res, err, calls)
	}
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	bus := commands.NewInMemoryBus()
	entered := make(chan struct{})
	release := make(chan struct{})
	commands.RegisterHandler(bus, "test.start", commands.HandlerFunc[startCmd, *result](func(context.Context, startCmd) (*result, error) {
		close(entered)
		<-release
		return &result{URL: "https://pay"}, nil
	}))
	wrapped := ChainCommands(bus, Idempotency(&lockedStore{m: mapStore{}}, nil))

	done := make(chan error, 1)
	go func() {
		_, err := commands.Dispatch[startCmd, *result](context.Background(), wrapped, startCmd{key: "k1"})
		done <- err
	}()
	<-entered
	if _, err := commands.Dispatch[startCmd, *result](context.Background(), wrapped, startCmd{key: "k1"}); !errors.Is(err, ErrRequestInFlight) {
		t.Fatalf("expected ErrRequestInFlight, got %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first dispatch: %v", err)
	}
}

type lockedStore struct {
	mu sync.Mutex
	m  mapStore
}

func (s *lockedStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Get(ctx, key)
}

func (s *lockedStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.Save(ctx, rec)
}

package commands

import (
	"context"
	"errors"
	"testing"
)

type openCmd struct{}

func (openCmd) Key() string { return "checkout.open_session" }

type unknownCmd struct{}

func (unknownCmd) Key() string { return "checkout.unknown" }

func TestDispatchTyped(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler(bus, openCmd{}.Key(), HandlerFunc[openCmd, string](func(context.Context, openCmd) (string, error) {
		return "cs-1", nil
	}))

	got, err := Dispatch[openCmd, string](context.Background(), bus, openCmd{})
	if err != nil || got != "cs-1" {
		t.Fatalf("Dispatch: %q %v", got, err)
	}
	if _, err := Dispatch[openCmd, int](context.Background(), bus, openCmd{}); !errors.Is(err, ErrResultType) {
		t.Fatalf("expected ErrResultType, got %v", err)
	}
	if _, err := Dispatch[unknownCmd, string](context.Background(), bus, unknownCmd{}); !errors.Is(err, ErrHandlerNotFound) {
		t.Fatalf("expected ErrHandlerNotFound, got %v", err)
	}
	if _, err := Dispatch[openCmd, string](context.Background(), nil, openCmd{}); !errors.Is(err, ErrNilBus) {
		t.Fatalf("expected ErrNilBus, got %v", err)
	}
	if keys := bus.Keys(); len(keys) != 1 || keys[0] != "checkout.open_session" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[openCmd, string](func(context.Context, openCmd) (string, error) { return "", nil })
	RegisterHandler(bus, openCmd{}.Key(), h)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	RegisterHandler(bus, openCmd{}.Key(), h)
}

package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"rentflow/internal/app/commands"
)

var (
	// ErrRequestInFlight is returned when a second request arrives with the key of one that
	// has not finished yet, e.g. a double tap on the book button.
	ErrRequestInFlight  = errors.New("middleware: request with this idempotency key is in progress")
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

// IdempotentCommand is implemented by commands whose successful result is replayed for a
// repeated key.
type IdempotentCommand interface {
	commands.Command
	IdempotencyKey() string
	ResultPrototype() any // must have the handler result type, which is a pointer
}

type IdempotencyRecord struct {
	Key        string
	Payload    []byte
	OccurredAt time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string) (IdempotencyRecord, bool, error)
	Save(ctx context.Context, rec IdempotencyRecord) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONResultCodec) Decode(data []byte, out any) error { return json.Unmarshal(data, out) }

// Idempotency replays the stored result of a command that already succeeded under the
// same key. Failures are not stored, so a failed booking attempt can be retried with its key.
// Concurrent requests with one key are serialized per process: the later one gets
// ErrRequestInFlight.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	var inflight sync.Map
	return OnCommands(func(ctx context.Context, _ string, message any, next Next) (any, error) {
		idCmd, ok := message.(IdempotentCommand)
		if !ok || idCmd.IdempotencyKey() == "" {
			return next(ctx)
		}
		key := idCmd.IdempotencyKey()
		if _, busy := inflight.LoadOrStore(key, struct{}{}); busy {
			return nil, ErrRequestInFlight
		}
		defer inflight.Delete(key)

		rec, found, err := store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			return replay(idCmd, rec, codec)
		}
		result, err := next(ctx)
		if err != nil {
			return nil, err
		}
		record := IdempotencyRecord{Key: key, OccurredAt: time.Now().UTC()}
		if result != nil {
			if record.Payload, err = codec.Encode(result); err != nil {
				return nil, err
			}
		}
		if err := store.Save(ctx, record); err != nil {
			return nil, err
		}
		return result, nil
	})
}

func replay(cmd IdempotentCommand, rec IdempotencyRecord, codec ResultCodec) (any, error) {
	proto := cmd.ResultPrototype()
	if proto == nil {
		return nil, errMissingPrototype
	}
	if len(rec.Payload) == 0 {
		return nil, nil
	}
	if err := codec.Decode(rec.Payload, proto); err != nil {
		return nil, err
	}
	return proto, nil
}

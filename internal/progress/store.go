package progress

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// KV is the expiring key-value store the progress layer runs on. Get
// reports absence via found=false; ScanMatch streams matching keys lazily
// and may observe an inconsistent snapshot of a concurrently-mutating
// keyspace.
type KV interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	ScanMatch(ctx context.Context, pattern string, fn func(key string) error) error
}

// Value is the stored state of one task. A nil field was never written,
// was deleted, or expired.
type Value struct {
	State   *string `json:"state"`
	Current *int64  `json:"current"`
	Max     *int64  `json:"max"`
}

// Store implements the update and read semantics on top of a KV backend.
// It holds no state of its own and is safe for concurrent use.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Apply issues the update's operations one by one. No retries, no
// rollback: a store fault mid-batch propagates immediately and leaves the
// task partially updated.
func (s *Store) Apply(ctx context.Context, u *Update) error {
	for _, op := range u.Ops() {
		var err error
		switch op.Kind {
		case OpSet:
			err = s.kv.Set(ctx, op.Key, op.Value, op.TTL)
		case OpDelete:
			err = s.kv.Delete(ctx, op.Key)
		}
		if err != nil {
			return fmt.Errorf("apply %s: %w", op.Key, err)
		}
	}
	return nil
}

// ReadState reads the three fields of one task. Any subset may be absent;
// a transport fault aborts the whole record instead of returning a
// partial one.
func (s *Store) ReadState(ctx context.Context, key Key) (Value, error) {
	var v Value

	state, found, err := s.kv.Get(ctx, key.fieldKey(fieldState))
	if err != nil {
		return Value{}, fmt.Errorf("read %s state: %w", key.Task, err)
	}
	if found {
		v.State = &state
	}

	if v.Current, err = s.readInt(ctx, key, fieldCurrent); err != nil {
		return Value{}, err
	}
	if v.Max, err = s.readInt(ctx, key, fieldMax); err != nil {
		return Value{}, err
	}
	return v, nil
}

func (s *Store) readInt(ctx context.Context, key Key, field string) (*int64, error) {
	raw, found, err := s.kv.Get(ctx, key.fieldKey(field))
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", key.Task, field, err)
	}
	if !found {
		return nil, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("stored %s %s=%q: %w", key.Task, field, raw, ErrInvalidNumber)
	}
	return &n, nil
}

// ListTasks enumerates the distinct tasks under namespace whose task
// string starts with taskPrefix. Keys that fail to decode are skipped:
// the keyspace may be shared with unrelated producers and enumeration is
// best-effort over a live store. Order is unspecified.
func (s *Store) ListTasks(ctx context.Context, namespace, taskPrefix string) ([]Key, error) {
	pattern, err := EncodePattern(namespace, taskPrefix)
	if err != nil {
		return nil, err
	}

	seen := make(map[Key]struct{})
	var keys []Key
	err = s.kv.ScanMatch(ctx, pattern, func(raw string) error {
		k, _, err := DecodeKey(raw)
		if err != nil {
			return nil
		}
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return keys, nil
}

package pending

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Store holds at most one pending command list. A nil value means nothing
// is pending.
type Store interface {
	// Set replaces the pending value. Setting nil or a JSON null clears it.
	Set(ctx context.Context, list json.RawMessage) error
	// Peek returns the pending value without clearing it.
	Peek(ctx context.Context) (json.RawMessage, error)
	// Drain returns the pending value and clears it in one step, so a value
	// is handed out at most once.
	Drain(ctx context.Context) (json.RawMessage, error)
}

// Probe returns a check reporting whether store holds a command list. A
// store error reads as nothing pending.
func Probe(store Store, timeout time.Duration) func() bool {
	return func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		list, err := store.Peek(ctx)
		return err == nil && list != nil
	}
}

// MemoryStore is a mutex-guarded single slot.
type MemoryStore struct {
	mu    sync.RWMutex
	value json.RawMessage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Set(_ context.Context, list json.RawMessage) error {
	value := normalize(list)

	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Peek(_ context.Context) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.value), nil
}

func (s *MemoryStore) Drain(_ context.Context) (json.RawMessage, error) {
	s.mu.Lock()
	value := s.value
	s.value = nil
	s.mu.Unlock()
	return value, nil
}

func normalize(list json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(list)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return clone(trimmed)
}

func clone(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}

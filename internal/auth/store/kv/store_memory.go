package kv

import (
	"context"
	"sync"
	"time"

	"sessiongate/pkg/platform/sentinel"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// InMemoryStore is a process-local key-value store with per-key expiry.
// Expired keys are dropped lazily on access.
type InMemoryStore struct {
	mu    sync.RWMutex
	data  map[string]entry
	clock func() time.Time
}

type MemoryOption func(*InMemoryStore)

// WithClock injects a clock so tests can move time forward.
func WithClock(clock func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func NewInMemory(opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		data:  make(map[string]entry),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !s.clock().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, still := s.data[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *InMemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = entry{value: value, expiresAt: s.clock().Add(ttl)}
	return nil
}

func (s *InMemoryStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// IsAlive is always true for the in-process store.
func (s *InMemoryStore) IsAlive(context.Context) bool {
	return true
}

// Len reports the number of stored keys, expired or not.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/matchboard/internal/platform/resilience"
)

// Entry is a cached value together with the time it was stored.
type Entry[V any] struct {
	Value    V
	StoredAt time.Time
}

type entry[V any] struct {
	value     V
	storedAt  time.Time
	expiresAt time.Time
}

// Store is an in-memory TTL cache. A ttl of zero keeps entries until they
// are deleted.
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	ttl     time.Duration
	flight  resilience.Group[Entry[V]]
	now     func() time.Time
}

func NewStore[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		entries: make(map[string]entry[V]),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store[V]) Get(ctx context.Context, key string) (V, bool) {
	e, ok := s.Lookup(ctx, key)
	return e.Value, ok
}

// Lookup is Get with the store time of the entry.
func (s *Store[V]) Lookup(_ context.Context, key string) (Entry[V], bool) {
	if key == "" {
		return Entry[V]{}, false
	}

	now := s.now()
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Entry[V]{}, false
	}
	if s.ttl > 0 && !e.expiresAt.After(now) {
		s.mu.Lock()
		if current, still := s.entries[key]; still && current.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return Entry[V]{}, false
	}

	return Entry[V]{Value: e.value, StoredAt: e.storedAt}, true
}

func (s *Store[V]) Set(_ context.Context, key string, value V) Entry[V] {
	now := s.now()
	if key == "" {
		return Entry[V]{Value: value, StoredAt: now}
	}

	expiresAt := time.Time{}
	if s.ttl > 0 {
		expiresAt = now.Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[key] = entry[V]{
		value:     value,
		storedAt:  now,
		expiresAt: expiresAt,
	}
	s.mu.Unlock()
	return Entry[V]{Value: value, StoredAt: now}
}

func (s *Store[V]) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}

	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Loading reports whether a GetOrLoad call for key is in progress.
func (s *Store[V]) Loading(key string) bool {
	return s.flight.InFlight(key)
}

// GetOrLoad returns the cached entry or runs loader once for all concurrent
// callers. Failed loads are not cached.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (Entry[V], error) {
	if loader == nil {
		return Entry[V]{}, fmt.Errorf("loader is required")
	}
	if key == "" {
		value, err := loader(ctx)
		if err != nil {
			return Entry[V]{}, err
		}
		return Entry[V]{Value: value, StoredAt: s.now()}, nil
	}

	if cached, ok := s.Lookup(ctx, key); ok {
		return cached, nil
	}

	loaded, err, _ := s.flight.Do(key, func() (Entry[V], error) {
		if cached, ok := s.Lookup(ctx, key); ok {
			return cached, nil
		}

		value, loadErr := loader(ctx)
		if loadErr != nil {
			return Entry[V]{}, loadErr
		}
		return s.Set(ctx, key, value), nil
	})
	if err != nil {
		return Entry[V]{}, err
	}

	return loaded, nil
}

package local

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"go.uber.org/zap"

	"goflare.io/strata/internal/models"
)

// LRUStore is a strict least-recently-used Store with a per-store TTL.
type LRUStore[V any] struct {
	mu             sync.Mutex
	cache          *simplelru.LRU[string, models.Entry[V]]
	max            int
	ttl            time.Duration
	updateAgeOnGet bool
	logger         *zap.Logger
}

// NewLRUStore creates a new LRUStore holding at most max entries.
func NewLRUStore[V any](max int, ttl time.Duration, updateAgeOnGet bool, logger *zap.Logger) (*LRUStore[V], error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	s := &LRUStore[V]{
		max:            max,
		ttl:            ttl,
		updateAgeOnGet: updateAgeOnGet,
		logger:         logger,
	}

	c, err := simplelru.NewLRU[string, models.Entry[V]](max, func(key string, _ models.Entry[V]) {
		s.logger.Debug("Local entry removed", zap.String("key", key))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	s.cache = c

	return s, nil
}

// Get returns a live entry. With updateAgeOnGet the entry becomes the most
// recently used and its age is reset; otherwise the read is a peek.
func (s *LRUStore[V]) Get(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	var (
		entry models.Entry[V]
		ok    bool
	)
	if s.updateAgeOnGet {
		entry, ok = s.cache.Get(key)
	} else {
		entry, ok = s.cache.Peek(key)
	}
	if !ok {
		return zero, false
	}

	if entry.IsExpired() {
		s.cache.Remove(key)
		return zero, false
	}

	if s.updateAgeOnGet {
		s.cache.Add(key, entry.Refreshed(s.ttl))
	}
	return entry.Value, true
}

// Has reports whether key holds a live entry without touching its recency.
func (s *LRUStore[V]) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache.Peek(key)
	return ok && !entry.IsExpired()
}

// Set stores value, evicting the least recently used entry when full.
func (s *LRUStore[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Add(key, models.NewEntry(value, s.ttl))
}

// Delete removes key.
func (s *LRUStore[V]) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Remove(key)
}

// Keys returns the live keys from oldest to newest, dropping expired ones.
func (s *LRUStore[V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := s.cache.Keys()
	live := keys[:0]
	for _, key := range keys {
		entry, ok := s.cache.Peek(key)
		if !ok {
			continue
		}
		if entry.IsExpired() {
			s.cache.Remove(key)
			continue
		}
		live = append(live, key)
	}
	return live
}

// Clear removes every entry.
func (s *LRUStore[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Purge()
}

// Len returns the number of stored entries, expired ones included until they are dropped.
func (s *LRUStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Len()
}

// Max returns the capacity.
func (s *LRUStore[V]) Max() int {
	return s.max
}

// Close is a no-op; the store holds no background resources.
func (s *LRUStore[V]) Close() {}

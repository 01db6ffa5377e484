package local

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"

	"goflare.io/strata/internal/models"
)

// RistrettoStore implements Store on Ristretto. Admission is TinyLFU, so under
// pressure a new key may be rejected instead of evicting an older one.
type RistrettoStore[V any] struct {
	cache          *ristretto.Cache
	tracker        *Tracker
	max            int
	ttl            time.Duration
	updateAgeOnGet bool
	logger         *zap.Logger
}

// NewRistrettoStore creates a new RistrettoStore holding at most max entries.
func NewRistrettoStore[V any](max int, ttl time.Duration, updateAgeOnGet bool, logger *zap.Logger) (*RistrettoStore[V], error) {
	if max <= 0 {
		return nil, fmt.Errorf("max must be positive, got %d", max)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive, got %s", ttl)
	}

	// Every entry costs 1, so MaxCost is the entry count.
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        int64(max) * 10,
		MaxCost:            int64(max),
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Ristretto cache: %w", err)
	}

	return &RistrettoStore[V]{
		cache:          c,
		tracker:        NewTracker(logger),
		max:            max,
		ttl:            ttl,
		updateAgeOnGet: updateAgeOnGet,
		logger:         logger,
	}, nil
}

// Set stores value and waits until it is visible to readers.
func (s *RistrettoStore[V]) Set(key string, value V) {
	if !s.cache.SetWithTTL(key, models.NewEntry(value, s.ttl), 1, s.ttl) {
		s.logger.Warn("Ristretto SetWithTTL dropped", zap.String("key", key))
		return
	}
	s.cache.Wait()
	s.tracker.Add(key)
}

// Get retrieves a live entry, refreshing its age when updateAgeOnGet is set.
func (s *RistrettoStore[V]) Get(key string) (V, bool) {
	var zero V

	entry, ok := s.load(key)
	if !ok {
		return zero, false
	}

	if s.updateAgeOnGet {
		s.cache.SetWithTTL(key, entry.Refreshed(s.ttl), 1, s.ttl)
	}
	return entry.Value, true
}

func (s *RistrettoStore[V]) load(key string) (models.Entry[V], bool) {
	value, found := s.cache.Get(key)
	if !found {
		s.tracker.Remove(key)
		return models.Entry[V]{}, false
	}

	entry, ok := value.(models.Entry[V])
	if !ok {
		s.logger.Error("Invalid cache entry type", zap.String("key", key))
		return models.Entry[V]{}, false
	}

	if entry.IsExpired() {
		s.Delete(key)
		return models.Entry[V]{}, false
	}
	return entry, true
}

// Has reports whether key holds a live entry.
func (s *RistrettoStore[V]) Has(key string) bool {
	_, ok := s.load(key)
	return ok
}

// Delete removes a cache entry.
func (s *RistrettoStore[V]) Delete(key string) {
	s.cache.Del(key)
	s.tracker.Remove(key)
}

// Keys returns the live tracked keys, forgetting the ones Ristretto evicted or expired.
func (s *RistrettoStore[V]) Keys() []string {
	var keys []string
	s.tracker.Range(func(key string) bool {
		if _, ok := s.load(key); ok {
			keys = append(keys, key)
		}
		return true
	})
	return keys
}

// Clear clears the entire cache.
func (s *RistrettoStore[V]) Clear() {
	s.cache.Clear()
	s.tracker.Clear()
}

// Len returns the number of live entries.
func (s *RistrettoStore[V]) Len() int {
	return len(s.Keys())
}

// Max returns the capacity.
func (s *RistrettoStore[V]) Max() int {
	return s.max
}

// Close stops Ristretto's background goroutines.
func (s *RistrettoStore[V]) Close() {
	s.cache.Close()
}

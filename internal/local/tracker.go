package local

import (
	"sync"

	"go.uber.org/zap"
)

// Tracker tracks the keys written to a store that cannot enumerate its own keys.
type Tracker struct {
	trackedKeys sync.Map
	logger      *zap.Logger
}

// NewTracker creates a new Tracker instance.
func NewTracker(logger *zap.Logger) *Tracker {
	return &Tracker{
		logger: logger,
	}
}

// Add adds a key to the tracker.
func (t *Tracker) Add(key string) {
	t.trackedKeys.Store(key, struct{}{})
}

// Remove removes a key from the tracker.
func (t *Tracker) Remove(key string) {
	t.trackedKeys.Delete(key)
}

// Range iterates over all tracked keys until f returns false.
func (t *Tracker) Range(f func(key string) bool) {
	t.trackedKeys.Range(func(k, _ any) bool {
		if strKey, ok := k.(string); ok {
			return f(strKey)
		}
		t.logger.Warn("Invalid key type in Tracker", zap.Any("key", k))
		return true
	})
}

// Clear forgets every key.
func (t *Tracker) Clear() {
	t.trackedKeys.Clear()
}

// Package local implements the bounded in-process tier.
package local

import (
	"fmt"

	"go.uber.org/zap"

	"goflare.io/strata/internal/config"
)

// Store defines the interface for Tier 1 operations.
// Implementations are safe for concurrent use, never hold more than Max
// entries, and never return an expired entry.
type Store[V any] interface {
	Get(key string) (V, bool)
	Has(key string) bool
	Set(key string, value V)
	Delete(key string)
	Keys() []string
	Clear()
	Len() int
	Max() int
	Close()
}

// New creates the Store selected by cfg.Engine.
func New[V any](cfg config.LocalConfig, logger *zap.Logger) (Store[V], error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Engine {
	case config.EngineLRU, "":
		return NewLRUStore[V](cfg.Max, cfg.TTL, cfg.UpdateAgeOnGet, logger)
	case config.EngineRistretto:
		return NewRistrettoStore[V](cfg.Max, cfg.TTL, cfg.UpdateAgeOnGet, logger)
	default:
		return nil, fmt.Errorf("unknown local engine %q", cfg.Engine)
	}
}

// Package strata implements a two-tier cache: a bounded in-process tier in
// front of an optional shared Redis tier that may come and go at any time.
package strata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"goflare.io/strata/internal/config"
	"goflare.io/strata/internal/local"
	"goflare.io/strata/internal/models"
	"goflare.io/strata/internal/remote"
	"goflare.io/strata/internal/utils"
	"goflare.io/strata/pkg/serialization"
)

// Fetcher produces a fresh value for GetOrSet on a miss.
type Fetcher[V any] func(ctx context.Context) (V, error)

// Manager 協調本地快取與遠端快取
//
// Tier 1 holds values by reference. Tier 2 holds their codec encoding, so a
// value that cannot be encoded lives in Tier 1 only. Every method except
// GetOrSet swallows tier errors after logging them.
type Manager[V any] struct {
	config  *config.Config
	store   local.Store[V]
	tier    remote.Tier
	codec   serialization.Codec
	metrics *models.Metrics
	tracer  trace.Tracer
	sf      *singleflight.Group
	logger  *zap.Logger

	disconnected   atomic.Bool
	disconnectOnce sync.Once
	closeOnce      sync.Once
}

// New 創建 Manager，遠端快取是否啟用只在此決定一次
func New[V any](ctx context.Context, opts ...Option) (*Manager[V], error) {
	_, span := otel.Tracer("strata").Start(ctx, "strata.New")
	defer span.End()

	cfg, err := config.NewConfig(opts...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create config: %w", err)
	}

	store, err := local.New[V](cfg.Local, cfg.Logger)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create local cache: %w", err)
	}

	tier := remote.Probe(cfg)
	span.SetAttributes(attribute.Bool("remote", tier.Available()))

	return newManager(cfg, store, tier), nil
}

func newManager[V any](cfg *config.Config, store local.Store[V], tier remote.Tier) *Manager[V] {
	m := &Manager[V]{
		config:  cfg,
		store:   store,
		tier:    tier,
		codec:   cfg.Serialization,
		metrics: models.NewMetrics(),
		tracer:  otel.Tracer("strata"),
		logger:  cfg.Logger,
	}
	if cfg.SingleFlight {
		m.sf = &singleflight.Group{}
	}
	return m
}

// Get 依序查詢本地與遠端快取，遠端命中時回填本地快取
func (m *Manager[V]) Get(ctx context.Context, key string) (V, bool) {
	ctx, span := m.tracer.Start(ctx, "Manager.Get", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	start := time.Now()
	defer func() { m.metrics.Observe(time.Since(start)) }()

	var zero V
	if key == "" {
		m.logger.Debug("Get called with empty key")
		m.metrics.L1Misses.Inc()
		m.metrics.L2Misses.Inc()
		return zero, false
	}

	if value, ok := m.store.Get(key); ok {
		m.metrics.L1Hits.Inc()
		span.SetAttributes(attribute.String("tier", "l1"))
		return value, true
	}
	m.metrics.L1Misses.Inc()

	if value, ok := m.getRemote(ctx, key); ok {
		m.metrics.L2Hits.Inc()
		span.SetAttributes(attribute.String("tier", "l2"))
		return value, true
	}
	m.metrics.L2Misses.Inc()

	return zero, false
}

func (m *Manager[V]) getRemote(ctx context.Context, key string) (V, bool) {
	var value V
	if !m.tier.Available() {
		return value, false
	}

	data, err := m.tier.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, models.ErrMiss) {
			m.logger.Warn("Failed to get from remote cache", zap.String("key", key), zap.Error(err))
		}
		return value, false
	}

	if err := m.codec.Unmarshal(data, &value); err != nil {
		m.logger.Warn("Failed to decode remote cache value", zap.String("key", key), zap.Error(err))
		return value, false
	}

	m.store.Set(key, value)
	return value, true
}

// Set 寫入本地快取，並盡力寫入遠端快取
//
// ttl 只作用於遠端快取，預設 DefaultRemoteTTL；本地快取一律使用其配置的 TTL。
func (m *Manager[V]) Set(ctx context.Context, key string, value V, ttl ...time.Duration) {
	ctx, span := m.tracer.Start(ctx, "Manager.Set", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	if key == "" {
		m.logger.Debug("Set called with empty key")
		return
	}

	m.store.Set(key, value)

	if !m.tier.Available() {
		return
	}

	// Encoding through a pointer keeps interface framing for gob when V is an interface type.
	data, err := m.codec.Marshal(&value)
	if err != nil {
		m.logger.Warn("Value not stored in remote cache", zap.String("key", key), zap.Error(err))
		return
	}

	expiration := utils.GetExpirationTime(m.config.DefaultRemoteTTL, ttl...)
	if err := m.tier.SetEx(ctx, key, data, expiration); err != nil {
		m.logger.Warn("Failed to set remote cache", zap.String("key", key), zap.Error(err))
	}
}

// Delete 從兩層快取移除單一 key
func (m *Manager[V]) Delete(ctx context.Context, key string) {
	ctx, span := m.tracer.Start(ctx, "Manager.Delete", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	if key == "" {
		m.logger.Debug("Delete called with empty key")
		return
	}

	m.store.Delete(key)

	if !m.tier.Available() {
		return
	}
	if err := m.tier.Del(ctx, key); err != nil {
		m.logger.Warn("Failed to delete from remote cache", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate 移除所有包含 pattern 子字串的 key
func (m *Manager[V]) Invalidate(ctx context.Context, pattern string) {
	ctx, span := m.tracer.Start(ctx, "Manager.Invalidate", trace.WithAttributes(attribute.String("pattern", pattern)))
	defer span.End()

	removed := 0
	for _, key := range m.store.Keys() {
		if strings.Contains(key, pattern) {
			m.store.Delete(key)
			removed++
		}
	}
	span.SetAttributes(attribute.Int("local.removed", removed))

	if !m.tier.Available() {
		return
	}

	keys, err := m.tier.Keys(ctx, utils.ContainsPattern(pattern))
	if err != nil {
		m.logger.Warn("Failed to list remote cache keys", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := m.tier.Del(ctx, keys...); err != nil {
		m.logger.Warn("Failed to invalidate remote cache", zap.String("pattern", pattern), zap.Int("keys", len(keys)), zap.Error(err))
		return
	}
	span.SetAttributes(attribute.Int("remote.removed", len(keys)))
}

// InvalidateAll 清空本地快取並清空遠端快取
func (m *Manager[V]) InvalidateAll(ctx context.Context) {
	ctx, span := m.tracer.Start(ctx, "Manager.InvalidateAll")
	defer span.End()

	m.store.Clear()

	if !m.tier.Available() {
		return
	}
	if err := m.tier.FlushAll(ctx); err != nil {
		m.logger.Warn("Failed to flush remote cache", zap.Error(err))
	}
}

// GetOrSet 命中時直接回傳，否則呼叫 fetch 並寫入快取
//
// fetch 的錯誤原樣回傳，且不寫入任何值。未啟用 WithSingleFlight 時，並發的
// 同 key 未命中會各自呼叫 fetch。
func (m *Manager[V]) GetOrSet(ctx context.Context, key string, fetch Fetcher[V], ttl ...time.Duration) (V, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.GetOrSet", trace.WithAttributes(attribute.String("key", key)))
	defer span.End()

	if value, ok := m.Get(ctx, key); ok {
		return value, nil
	}

	var (
		value V
		err   error
	)
	if m.sf == nil {
		value, err = m.fetchAndSet(ctx, key, fetch, ttl...)
	} else {
		var v any
		var shared bool
		// The shared fetch must not fail for every waiter when the leader's ctx is cancelled.
		fetchCtx := context.WithoutCancel(ctx)
		v, err, shared = m.sf.Do(key, func() (any, error) {
			return m.fetchAndSet(fetchCtx, key, fetch, ttl...)
		})
		span.SetAttributes(attribute.Bool("shared", shared))
		if err == nil {
			value, _ = v.(V)
		}
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		var zero V
		return zero, err
	}
	return value, nil
}

func (m *Manager[V]) fetchAndSet(ctx context.Context, key string, fetch Fetcher[V], ttl ...time.Duration) (V, error) {
	value, err := fetch(ctx)
	if err != nil {
		return value, err
	}
	m.Set(ctx, key, value, ttl...)
	return value, nil
}

// Metrics 回傳指標快照
func (m *Manager[V]) Metrics() models.Snapshot {
	return m.metrics.Snapshot()
}

// Status 回傳診斷快照，不產生副作用
func (m *Manager[V]) Status() models.Status {
	state := m.tier.State()
	if m.disconnected.Load() {
		state = remote.StateDisconnected
	}
	return models.Status{
		L1Size:      m.store.Len(),
		L1MaxSize:   m.store.Max(),
		L2Available: m.tier.Available(),
		L2State:     state.String(),
		Metrics:     m.metrics.Snapshot(),
	}
}

// Disconnect 關閉遠端連線，可重複呼叫；本地快取仍可使用
func (m *Manager[V]) Disconnect() {
	m.disconnectOnce.Do(func() {
		m.disconnected.Store(true)
		if err := m.tier.Close(); err != nil {
			m.logger.Warn("Failed to disconnect remote cache", zap.Error(err))
			return
		}
		m.logger.Info("Remote cache disconnected")
	})
}

// Close 斷開遠端連線並釋放本地快取，之後不可再使用 Manager
func (m *Manager[V]) Close() {
	m.Disconnect()
	m.closeOnce.Do(m.store.Close)
}

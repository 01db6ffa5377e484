package models

import (
	"math"
	"time"

	"go.uber.org/atomic"
)

// Metrics 定義指標統計
type Metrics struct {
	L1Hits   atomic.Int64
	L1Misses atomic.Int64
	L2Hits   atomic.Int64
	L2Misses atomic.Int64
	Requests atomic.Int64

	responseTime atomic.Duration
}

// NewMetrics 創建新的 Metrics 實例
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Observe counts one request that took elapsed.
func (m *Metrics) Observe(elapsed time.Duration) {
	m.responseTime.Add(elapsed)
	m.Requests.Inc()
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	L1Hits              int64         `json:"l1Hits"`
	L1Misses            int64         `json:"l1Misses"`
	L2Hits              int64         `json:"l2Hits"`
	L2Misses            int64         `json:"l2Misses"`
	TotalRequests       int64         `json:"totalRequests"`
	AverageResponseTime time.Duration `json:"averageResponseTime"`
	HitRate             float64       `json:"hitRate"`
}

// Snapshot reads the counters and derives the average response time and hit rate.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		L1Hits:        m.L1Hits.Load(),
		L1Misses:      m.L1Misses.Load(),
		L2Hits:        m.L2Hits.Load(),
		L2Misses:      m.L2Misses.Load(),
		TotalRequests: m.Requests.Load(),
	}
	if s.TotalRequests == 0 {
		return s
	}

	s.AverageResponseTime = m.responseTime.Load() / time.Duration(s.TotalRequests)
	s.HitRate = HitRate(s.L1Hits+s.L2Hits, s.TotalRequests)
	return s
}

// HitRate returns hits/total as a percentage rounded to two decimals, or 0 when total is 0.
func HitRate(hits, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(hits)/float64(total)*100*100) / 100
}

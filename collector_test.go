package strata

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, c prometheus.Collector) map[string]float64 {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, l := range m.GetLabel() {
				name += "{" + l.GetName() + "=" + l.GetValue() + "}"
			}
			values[name] = value(mf.GetType(), m)
		}
	}
	return values
}

func value(typ dto.MetricType, m *dto.Metric) float64 {
	if typ == dto.MetricType_COUNTER {
		return m.GetCounter().GetValue()
	}
	return m.GetGauge().GetValue()
}

func TestCollector(t *testing.T) {
	ctx := context.Background()
	m, err := New[string](ctx, WithMaxEntries(10))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	m.Set(ctx, "a", "1")
	m.Set(ctx, "b", "2")
	m.Get(ctx, "a")
	m.Get(ctx, "b")
	m.Get(ctx, "c")

	values := gather(t, NewCollector(m, "strata"))

	assert.Equal(t, 2.0, values["strata_cache_hits_total{tier=l1}"])
	assert.Equal(t, 0.0, values["strata_cache_hits_total{tier=l2}"])
	assert.Equal(t, 1.0, values["strata_cache_misses_total{tier=l1}"])
	assert.Equal(t, 1.0, values["strata_cache_misses_total{tier=l2}"])
	assert.Equal(t, 3.0, values["strata_cache_requests_total"])
	assert.Equal(t, 66.67, values["strata_cache_hit_rate_percent"])
	assert.Equal(t, 2.0, values["strata_cache_l1_entries"])
	assert.Equal(t, 10.0, values["strata_cache_l1_max_entries"])
	assert.Equal(t, 0.0, values["strata_cache_l2_available"])
	assert.Contains(t, values, "strata_cache_response_seconds_avg")
}

func TestCollector_RemoteAvailable(t *testing.T) {
	mr := setupTestRedis(t)
	m, _ := newRemoteManager[string](t, mr)

	values := gather(t, NewCollector(m, ""))

	assert.Equal(t, 1.0, values["cache_l2_available"])
}

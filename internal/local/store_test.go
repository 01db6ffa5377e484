package local

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/strata/internal/config"
)

type building struct {
	ID   int
	Name string
}

func newStore(t *testing.T, engine string, max int, ttl time.Duration, updateAgeOnGet bool) Store[building] {
	t.Helper()
	s, err := New[building](config.LocalConfig{
		Engine:         engine,
		Max:            max,
		TTL:            ttl,
		UpdateAgeOnGet: updateAgeOnGet,
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

var engines = []string{config.EngineLRU, config.EngineRistretto}

func TestStore_SetGet(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			s := newStore(t, engine, 10, time.Minute, true)

			s.Set("building:1", building{ID: 1, Name: "Les Tilleuls"})
			got, ok := s.Get("building:1")
			require.True(t, ok)
			assert.Equal(t, building{ID: 1, Name: "Les Tilleuls"}, got)
			assert.True(t, s.Has("building:1"))

			_, ok = s.Get("building:2")
			assert.False(t, ok)
			assert.False(t, s.Has("building:2"))
		})
	}
}

func TestStore_DeleteKeysClear(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			s := newStore(t, engine, 10, time.Minute, true)

			for i := 1; i <= 3; i++ {
				s.Set(fmt.Sprintf("lot:%d", i), building{ID: i})
			}
			assert.ElementsMatch(t, []string{"lot:1", "lot:2", "lot:3"}, s.Keys())
			assert.Equal(t, 3, s.Len())

			s.Delete("lot:2")
			assert.ElementsMatch(t, []string{"lot:1", "lot:3"}, s.Keys())

			s.Clear()
			assert.Empty(t, s.Keys())
			assert.Equal(t, 0, s.Len())
			_, ok := s.Get("lot:1")
			assert.False(t, ok)
		})
	}
}

func TestStore_Expiry(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			s := newStore(t, engine, 10, 50*time.Millisecond, false)

			s.Set("lease:1", building{ID: 1})
			_, ok := s.Get("lease:1")
			require.True(t, ok)

			time.Sleep(80 * time.Millisecond)
			_, ok = s.Get("lease:1")
			assert.False(t, ok)
			assert.NotContains(t, s.Keys(), "lease:1")
		})
	}
}

func TestLRUStore_UpdateAgeOnGet(t *testing.T) {
	refreshing := newStore(t, config.EngineLRU, 10, 200*time.Millisecond, true)
	fixed := newStore(t, config.EngineLRU, 10, 200*time.Millisecond, false)

	refreshing.Set("k", building{ID: 1})
	fixed.Set("k", building{ID: 1})

	time.Sleep(120 * time.Millisecond)
	_, ok := refreshing.Get("k")
	require.True(t, ok)
	_, ok = fixed.Get("k")
	require.True(t, ok)

	time.Sleep(140 * time.Millisecond)
	_, ok = refreshing.Get("k")
	assert.True(t, ok, "read reset the entry's age")
	_, ok = fixed.Get("k")
	assert.False(t, ok, "peek does not extend the entry")
}

func TestLRUStore_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Run("recency on get", func(t *testing.T) {
		s := newStore(t, config.EngineLRU, 2, time.Minute, true)
		s.Set("a", building{ID: 1})
		s.Set("b", building{ID: 2})
		_, _ = s.Get("a")
		s.Set("c", building{ID: 3})

		assert.True(t, s.Has("a"))
		assert.False(t, s.Has("b"))
		assert.True(t, s.Has("c"))
	})

	t.Run("peek on get", func(t *testing.T) {
		s := newStore(t, config.EngineLRU, 2, time.Minute, false)
		s.Set("a", building{ID: 1})
		s.Set("b", building{ID: 2})
		_, _ = s.Get("a")
		s.Set("c", building{ID: 3})

		assert.False(t, s.Has("a"))
		assert.True(t, s.Has("b"))
		assert.True(t, s.Has("c"))
	})
}

func TestStore_NeverExceedsMax(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine, func(t *testing.T) {
			s := newStore(t, engine, 10, time.Minute, true)
			for i := 0; i < 100; i++ {
				s.Set(fmt.Sprintf("contact:%d", i), building{ID: i})
				assert.LessOrEqual(t, s.Len(), s.Max())
			}
			assert.Equal(t, 10, s.Max())
		})
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := New[int](config.LocalConfig{Engine: "arc", Max: 1, TTL: time.Second}, nil)
	assert.Error(t, err)

	_, err = New[int](config.LocalConfig{Engine: config.EngineLRU, Max: 0, TTL: time.Second}, nil)
	assert.Error(t, err)

	_, err = New[int](config.LocalConfig{Engine: config.EngineRistretto, Max: 1, TTL: 0}, nil)
	assert.Error(t, err)
}

func TestTracker(t *testing.T) {
	tr := NewTracker(zap.NewNop())
	tr.Add("a")
	tr.Add("b")
	tr.Remove("a")

	var keys []string
	tr.Range(func(key string) bool {
		keys = append(keys, key)
		return true
	})
	assert.Equal(t, []string{"b"}, keys)

	tr.Clear()
	keys = nil
	tr.Range(func(key string) bool {
		keys = append(keys, key)
		return true
	})
	assert.Empty(t, keys)
}

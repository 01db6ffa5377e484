package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"goflare.io/strata/internal/retrier"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, EngineLRU, cfg.Local.Engine)
	assert.Equal(t, 500, cfg.Local.Max)
	assert.Equal(t, 5*time.Minute, cfg.Local.TTL)
	assert.True(t, cfg.Local.UpdateAgeOnGet)
	assert.Equal(t, "localhost", cfg.Remote.Host)
	assert.Equal(t, 6379, cfg.Remote.Port)
	assert.Equal(t, 3, cfg.Remote.MaxRetriesPerRequest)
	assert.True(t, cfg.Remote.LazyConnect)
	assert.Equal(t, 300*time.Second, cfg.DefaultRemoteTTL)
	assert.False(t, cfg.SingleFlight)
	assert.Equal(t, retrier.ExponentialBackoff, cfg.ResilienceConfig.ReconnectStrategy)
	assert.False(t, cfg.RemoteEnabled())
	assert.NotNil(t, cfg.Logger)
}

func TestNewConfig_OptionsMergeKeyByKey(t *testing.T) {
	cfg, err := NewConfig(WithMaxEntries(10), WithUpdateAgeOnGet(false))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Local.Max)
	assert.False(t, cfg.Local.UpdateAgeOnGet)
	assert.Equal(t, 5*time.Minute, cfg.Local.TTL, "untouched keys keep their defaults")
	assert.Equal(t, 6379, cfg.Remote.Port)
}

func TestNewConfig_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero max", WithMaxEntries(0)},
		{"negative ttl", WithLocalTTL(-time.Second)},
		{"unknown engine", WithLocalEngine("arc")},
		{"empty host", WithRemoteHost("")},
		{"port out of range", WithRemotePort(70000)},
		{"bad addr", WithRemoteAddr("no-port")},
		{"negative retries", WithMaxRetriesPerRequest(-1)},
		{"negative db", WithRemoteAuth("", -1)},
		{"unknown codec", WithSerialization("xml")},
		{"bad backoff", WithReconnectBackoff(0, time.Millisecond, time.Second)},
		{"unknown strategy", WithReconnectStrategy("random")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewConfig(tt.opt)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestRemoteEnabled(t *testing.T) {
	cfg, err := NewConfig(WithEnvironment(EnvProduction))
	require.NoError(t, err)
	assert.True(t, cfg.RemoteEnabled())

	cfg, err = NewConfig(WithRemoteAddr("10.0.0.5:6380"))
	require.NoError(t, err)
	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, "10.0.0.5:6380", cfg.Remote.Addr())
}

func TestWithLogger_IgnoresNil(t *testing.T) {
	logger := zap.NewExample()
	cfg, err := NewConfig(WithLogger(logger), WithLogger(nil))
	require.NoError(t, err)
	assert.Same(t, logger, cfg.Logger)
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", s.LogLevel)
	assert.Equal(t, ":8080", s.ListenAddr)

	cfg, err := NewConfig(s.Options...)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Local.Max)
	assert.False(t, cfg.RemoteEnabled())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("CACHE_MAX", "42")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("REDIS_LAZY_CONNECT", "false")
	t.Setenv("REDIS_RECONNECT_STRATEGY", "fibonacci")

	s, err := Load("")
	require.NoError(t, err)

	cfg, err := NewConfig(s.Options...)
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Local.Max)
	assert.Equal(t, 30*time.Second, cfg.Local.TTL)
	assert.Equal(t, "cache.internal", cfg.Remote.Host)
	assert.True(t, cfg.Remote.HostOverride)
	assert.False(t, cfg.Remote.LazyConnect)
	assert.Equal(t, retrier.FibonacciBackoff, cfg.ResilienceConfig.ReconnectStrategy)
	assert.Equal(t, 6379, cfg.Remote.Port)
	assert.True(t, cfg.RemoteEnabled())
}

func TestLoad_PartialFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "strata.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  env: production\ncache:\n  max: 64\n"), 0o600))

	s, err := Load(path)
	require.NoError(t, err)

	cfg, err := NewConfig(s.Options...)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Local.Max)
	assert.True(t, cfg.Local.UpdateAgeOnGet)
	assert.Equal(t, "localhost", cfg.Remote.Host)
	assert.False(t, cfg.Remote.HostOverride)
	assert.True(t, cfg.RemoteEnabled())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CACHE_SERIALIZATION=gob\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("CACHE_SERIALIZATION") })

	s, err := Load("", envFile)
	require.NoError(t, err)

	cfg, err := NewConfig(s.Options...)
	require.NoError(t, err)
	assert.Equal(t, "gob", cfg.Serialization.Type)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load("does-not-exist.yaml")
	assert.ErrorContains(t, err, "failed to read config file")
}

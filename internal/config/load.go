package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Settings is what Load resolves from files and the environment.
type Settings struct {
	LogLevel   string
	ListenAddr string
	Options    []Option
}

// envBindings maps each configuration key to the environment variable that overrides it.
var envBindings = map[string]string{
	"app.env":                       "APP_ENV",
	"log.level":                     "LOG_LEVEL",
	"server.addr":                   "STRATA_ADDR",
	"cache.engine":                  "CACHE_L1_ENGINE",
	"cache.max":                     "CACHE_MAX",
	"cache.ttl":                     "CACHE_TTL",
	"cache.update_age_on_get":       "CACHE_UPDATE_AGE_ON_GET",
	"cache.remote_ttl":              "CACHE_REMOTE_TTL",
	"cache.serialization":           "CACHE_SERIALIZATION",
	"cache.single_flight":           "CACHE_SINGLE_FLIGHT",
	"redis.host":                    "REDIS_HOST",
	"redis.port":                    "REDIS_PORT",
	"redis.password":                "REDIS_PASSWORD",
	"redis.db":                      "REDIS_DB",
	"redis.max_retries_per_request": "REDIS_MAX_RETRIES_PER_REQUEST",
	"redis.lazy_connect":            "REDIS_LAZY_CONNECT",
	"redis.reconnect_strategy":      "REDIS_RECONNECT_STRATEGY",
}

// Load reads an optional YAML file, .env files and environment variables.
// Every key has its own default, so a partial file or environment only
// overrides the keys it names. Without envFiles a .env in the working
// directory is loaded if present.
func Load(path string, envFiles ...string) (*Settings, error) {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else if err := godotenv.Load(envFiles...); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}

	v := viper.New()
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("cache.engine", EngineLRU)
	v.SetDefault("cache.max", 500)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.update_age_on_get", true)
	v.SetDefault("cache.remote_ttl", 300*time.Second)
	v.SetDefault("cache.serialization", "json")
	v.SetDefault("cache.single_flight", false)
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries_per_request", 3)
	v.SetDefault("redis.lazy_connect", true)
	v.SetDefault("redis.reconnect_strategy", "exponential")
	// redis.host has no default: setting it is the explicit override that enables Tier 2.

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	opts := []Option{
		WithEnvironment(v.GetString("app.env")),
		WithLocalEngine(v.GetString("cache.engine")),
		WithMaxEntries(v.GetInt("cache.max")),
		WithLocalTTL(v.GetDuration("cache.ttl")),
		WithUpdateAgeOnGet(v.GetBool("cache.update_age_on_get")),
		WithDefaultRemoteTTL(v.GetDuration("cache.remote_ttl")),
		WithSerialization(v.GetString("cache.serialization")),
		WithSingleFlight(v.GetBool("cache.single_flight")),
		WithRemotePort(v.GetInt("redis.port")),
		WithRemoteAuth(v.GetString("redis.password"), v.GetInt("redis.db")),
		WithMaxRetriesPerRequest(v.GetInt("redis.max_retries_per_request")),
		WithLazyConnect(v.GetBool("redis.lazy_connect")),
		WithReconnectStrategy(v.GetString("redis.reconnect_strategy")),
	}
	if host := v.GetString("redis.host"); host != "" {
		opts = append(opts, WithRemoteHost(host))
	}

	return &Settings{
		LogLevel:   v.GetString("log.level"),
		ListenAddr: v.GetString("server.addr"),
		Options:    opts,
	}, nil
}

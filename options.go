package strata

import (
	"goflare.io/strata/internal/config"
	"goflare.io/strata/internal/models"
)

// Option 定義初始化 Manager 的選項
type Option = config.Option

const (
	EnvProduction   = config.EnvProduction
	EngineLRU       = config.EngineLRU
	EngineRistretto = config.EngineRistretto
)

var (
	// ErrInvalidConfig is returned by New when an option is rejected.
	ErrInvalidConfig = config.ErrInvalidConfig
	// ErrMiss reports a key absent from the remote tier.
	ErrMiss = models.ErrMiss
	// ErrUnavailable reports a remote tier that cannot be used.
	ErrUnavailable = models.ErrUnavailable
)

// 選項皆逐項覆蓋預設值，未指定的鍵保持預設
var (
	WithLogger               = config.WithLogger
	WithEnvironment          = config.WithEnvironment
	WithLocalEngine          = config.WithLocalEngine
	WithMaxEntries           = config.WithMaxEntries
	WithLocalTTL             = config.WithLocalTTL
	WithUpdateAgeOnGet       = config.WithUpdateAgeOnGet
	WithDefaultRemoteTTL     = config.WithDefaultRemoteTTL
	WithRemoteHost           = config.WithRemoteHost
	WithRemotePort           = config.WithRemotePort
	WithRemoteAddr           = config.WithRemoteAddr
	WithRemoteAuth           = config.WithRemoteAuth
	WithMaxRetriesPerRequest = config.WithMaxRetriesPerRequest
	WithLazyConnect          = config.WithLazyConnect
	WithSerialization        = config.WithSerialization
	WithSingleFlight         = config.WithSingleFlight
	WithCircuitBreaker       = config.WithCircuitBreaker
	WithReconnectBackoff     = config.WithReconnectBackoff
	WithReconnectStrategy    = config.WithReconnectStrategy
)

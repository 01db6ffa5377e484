package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"goflare.io/strata/internal/retrier"
	"goflare.io/strata/pkg/serialization"
)

const (
	// EnvProduction 啟用遠端快取的部署環境
	EnvProduction = "production"

	// EngineLRU 嚴格的 LRU 本地快取
	EngineLRU = "lru"
	// EngineRistretto 以 TinyLFU 准入的本地快取
	EngineRistretto = "ristretto"
)

// Config 用於 Manager 的配置
type Config struct {
	Environment      string
	DefaultRemoteTTL time.Duration
	SingleFlight     bool

	Local            LocalConfig
	Remote           RemoteConfig
	ResilienceConfig ResilienceConfig
	Serialization    serialization.Codec
	Logger           *zap.Logger
}

// LocalConfig 本地快取 (Tier 1) 配置
type LocalConfig struct {
	Engine         string
	Max            int
	TTL            time.Duration
	UpdateAgeOnGet bool
}

// RemoteConfig 遠端快取 (Tier 2) 配置
type RemoteConfig struct {
	Host                 string
	Port                 int
	Password             string
	DB                   int
	MaxRetriesPerRequest int
	LazyConnect          bool

	// HostOverride is set when Host was chosen explicitly rather than defaulted.
	HostOverride bool
}

// Addr returns host:port.
func (r RemoteConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// ResilienceConfig 用於設置重連和熔斷器
type ResilienceConfig struct {
	CircuitBreaker     gobreaker.Settings
	ReconnectAttempts  int
	ReconnectBaseDelay time.Duration
	ReconnectMaxDelay  time.Duration
	ReconnectStrategy  retrier.BackoffStrategy
}

// Option 函數類型
type Option func(*Config) error

var (
	ErrInvalidConfig = errors.New("invalid cache config")
)

// NewConfig 創建一個默認的 Config，允許逐項覆蓋特定參數
func NewConfig(options ...Option) (*Config, error) {
	cfg := &Config{
		Environment:      "development",
		DefaultRemoteTTL: 300 * time.Second,
		Local: LocalConfig{
			Engine:         EngineLRU,
			Max:            500,
			TTL:            5 * time.Minute,
			UpdateAgeOnGet: true,
		},
		Remote: RemoteConfig{
			Host:                 "localhost",
			Port:                 6379,
			MaxRetriesPerRequest: 3,
			LazyConnect:          true,
		},
		ResilienceConfig: ResilienceConfig{
			CircuitBreaker: gobreaker.Settings{
				Name:        "RemoteCache",
				MaxRequests: 3,
				Interval:    60 * time.Second,
				Timeout:     30 * time.Second,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures > 5
				},
			},
			ReconnectAttempts:  10,
			ReconnectBaseDelay: 100 * time.Millisecond,
			ReconnectMaxDelay:  5 * time.Second,
		},
		Serialization: serialization.JSON,
		Logger:        zap.NewNop(),
	}

	// 應用所有選項
	for _, option := range options {
		if err := option(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// RemoteEnabled reports whether the deployment asks for a remote tier.
func (c *Config) RemoteEnabled() bool {
	return c.Environment == EnvProduction || c.Remote.HostOverride
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// WithLogger 設置自定義 Logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.Logger = logger
		}
		return nil
	}
}

// WithEnvironment 設置部署環境
func WithEnvironment(env string) Option {
	return func(c *Config) error {
		c.Environment = env
		return nil
	}
}

// WithLocalEngine 選擇本地快取實作
func WithLocalEngine(engine string) Option {
	return func(c *Config) error {
		switch engine {
		case EngineLRU, EngineRistretto:
			c.Local.Engine = engine
			return nil
		default:
			return invalid("unknown local engine %q", engine)
		}
	}
}

// WithMaxEntries 設置本地快取的最大項目數
func WithMaxEntries(max int) Option {
	return func(c *Config) error {
		if max <= 0 {
			return invalid("max entries must be greater than 0, got %d", max)
		}
		c.Local.Max = max
		return nil
	}
}

// WithLocalTTL 設置本地快取項目的存活時間
func WithLocalTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl <= 0 {
			return invalid("local ttl must be positive, got %s", ttl)
		}
		c.Local.TTL = ttl
		return nil
	}
}

// WithUpdateAgeOnGet 讀取時是否重置項目年齡
func WithUpdateAgeOnGet(update bool) Option {
	return func(c *Config) error {
		c.Local.UpdateAgeOnGet = update
		return nil
	}
}

// WithDefaultRemoteTTL 設置 Set 未指定 TTL 時的遠端存活時間
func WithDefaultRemoteTTL(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl <= 0 {
			return invalid("remote ttl must be positive, got %s", ttl)
		}
		c.DefaultRemoteTTL = ttl
		return nil
	}
}

// WithRemoteHost 明確指定遠端主機，同時啟用遠端快取
func WithRemoteHost(host string) Option {
	return func(c *Config) error {
		if host == "" {
			return invalid("remote host must not be empty")
		}
		c.Remote.Host = host
		c.Remote.HostOverride = true
		return nil
	}
}

// WithRemotePort 設置遠端埠號
func WithRemotePort(port int) Option {
	return func(c *Config) error {
		if port <= 0 || port > 65535 {
			return invalid("remote port out of range: %d", port)
		}
		c.Remote.Port = port
		return nil
	}
}

// WithRemoteAddr 以 host:port 設置遠端位址
func WithRemoteAddr(addr string) Option {
	return func(c *Config) error {
		host, portStr, err := net.SplitHostPort(addr)
		if err != nil {
			return invalid("remote addr %q: %v", addr, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return invalid("remote port %q: %v", portStr, err)
		}
		if err := WithRemoteHost(host)(c); err != nil {
			return err
		}
		return WithRemotePort(port)(c)
	}
}

// WithRemoteAuth 設置遠端密碼與資料庫編號
func WithRemoteAuth(password string, db int) Option {
	return func(c *Config) error {
		if db < 0 {
			return invalid("remote db must not be negative, got %d", db)
		}
		c.Remote.Password = password
		c.Remote.DB = db
		return nil
	}
}

// WithMaxRetriesPerRequest 設置每個請求的重試次數，0 表示不重試
func WithMaxRetriesPerRequest(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return invalid("max retries per request must not be negative, got %d", n)
		}
		c.Remote.MaxRetriesPerRequest = n
		return nil
	}
}

// WithLazyConnect 是否延遲到首次使用才連線
func WithLazyConnect(lazy bool) Option {
	return func(c *Config) error {
		c.Remote.LazyConnect = lazy
		return nil
	}
}

// WithSerialization 設置遠端序列化方式
//
// 使用 gob 且值型別為介面時，介面中的具體型別須先以 gob.Register 註冊。
func WithSerialization(name string) Option {
	return func(c *Config) error {
		codec, err := serialization.ByName(name)
		if err != nil {
			return invalid("%v", err)
		}
		c.Serialization = codec
		return nil
	}
}

// WithSingleFlight 合併同一 key 並發的 GetOrSet 回源
//
// 共享的回源以去除取消訊號的 ctx 執行，發起者的 ctx 被取消不會讓其他等待者失敗。
func WithSingleFlight(enabled bool) Option {
	return func(c *Config) error {
		c.SingleFlight = enabled
		return nil
	}
}

// WithCircuitBreaker 設置遠端熔斷器
func WithCircuitBreaker(settings gobreaker.Settings) Option {
	return func(c *Config) error {
		c.ResilienceConfig.CircuitBreaker = settings
		return nil
	}
}

// WithReconnectBackoff 設置斷線重連的退避參數
func WithReconnectBackoff(attempts int, base, max time.Duration) Option {
	return func(c *Config) error {
		if attempts < 1 || base < time.Millisecond || max < base {
			return invalid("reconnect backoff attempts=%d base=%s max=%s", attempts, base, max)
		}
		c.ResilienceConfig.ReconnectAttempts = attempts
		c.ResilienceConfig.ReconnectBaseDelay = base
		c.ResilienceConfig.ReconnectMaxDelay = max
		return nil
	}
}

// WithReconnectStrategy 設置重連退避策略：exponential、linear 或 fibonacci
func WithReconnectStrategy(name string) Option {
	return func(c *Config) error {
		strategy, err := retrier.ParseStrategy(name)
		if err != nil {
			return invalid("%v", err)
		}
		c.ResilienceConfig.ReconnectStrategy = strategy
		return nil
	}
}

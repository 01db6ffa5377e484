package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"goflare.io/strata/internal/config"
	"goflare.io/strata/internal/models"
	"goflare.io/strata/internal/retrier"
	"goflare.io/strata/internal/utils"
)

// Redis is the remote tier backed by a Redis server.
//
// Its State follows the client's own dial and command outcomes: a successful
// dial or reply marks it connected, a network failure marks it disconnected
// and starts a background reconnect loop. With lazy connect the state stays
// uninitialized, and usable, until the first command dials.
type Redis struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	retrier *retrier.Retrier
	pause   time.Duration
	logger  *zap.Logger

	state        atomic.Int32
	reconnecting atomic.Bool

	mu        sync.Mutex
	closed    bool
	closeOnce sync.Once
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var _ Tier = (*Redis)(nil)

// NewRedis creates the client. It does not block on the network.
func NewRedis(cfg config.RemoteConfig, res config.ResilienceConfig, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	r, err := retrier.NewRetrier(
		res.ReconnectAttempts,
		res.ReconnectBaseDelay,
		res.ReconnectMaxDelay,
		2,
		0.1,
		res.ReconnectStrategy,
		unreachable,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create retrier: %w", err)
	}

	// go-redis treats 0 as "use the default", -1 as "no retries".
	maxRetries := cfg.MaxRetriesPerRequest
	if maxRetries == 0 {
		maxRetries = -1
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:       cfg.Addr(),
			Password:   cfg.Password,
			DB:         cfg.DB,
			MaxRetries: maxRetries,
		}),
		retrier: r,
		pause:   res.ReconnectMaxDelay,
		logger:  logger.With(zap.String("addr", cfg.Addr())),
		ctx:     ctx,
		cancel:  cancel,
	}

	settings := res.CircuitBreaker
	settings.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, redis.Nil)
	}
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			t.logger.Warn("Remote cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		}
	}
	t.breaker = gobreaker.NewCircuitBreaker(settings)

	t.client.AddHook(connectivityHook{tier: t})

	if !cfg.LazyConnect {
		t.startReconnect()
	}

	return t, nil
}

// Available reports whether commands should be attempted.
func (t *Redis) Available() bool {
	switch t.State() {
	case StateConnected, StateUninitialized:
		return !t.isClosed()
	default:
		return false
	}
}

// State returns the current connectivity state.
func (t *Redis) State() State {
	return State(t.state.Load())
}

// Get returns the stored bytes, or models.ErrMiss when the key is absent.
func (t *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := t.execute(func() error {
		var err error
		data, err = t.client.Get(ctx, key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

// SetEx stores data with a TTL rounded up to whole seconds.
func (t *Redis) SetEx(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := t.execute(func() error {
		return t.client.SetEx(ctx, key, data, utils.WholeSeconds(ttl)).Err()
	}); err != nil {
		return fmt.Errorf("redis setex failed: %w", err)
	}
	return nil
}

// Del removes keys in one command.
func (t *Redis) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := t.execute(func() error {
		return t.client.Del(ctx, keys...).Err()
	}); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}

// Keys returns the keys matching a glob pattern.
func (t *Redis) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	if err := t.execute(func() error {
		var err error
		keys, err = t.client.Keys(ctx, pattern).Result()
		return err
	}); err != nil {
		return nil, fmt.Errorf("redis keys failed: %w", err)
	}
	return keys, nil
}

// FlushAll removes every key on the server.
func (t *Redis) FlushAll(ctx context.Context) error {
	if err := t.execute(func() error {
		return t.client.FlushAll(ctx).Err()
	}); err != nil {
		return fmt.Errorf("redis flushall failed: %w", err)
	}
	return nil
}

// Close stops reconnecting and closes the client. Calls after the first return nil.
func (t *Redis) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		t.mu.Unlock()

		t.cancel()
		t.wg.Wait()
		t.state.Store(int32(StateDisconnected))
		err = t.client.Close()
	})
	return err
}

func (t *Redis) execute(fn func() error) error {
	_, err := t.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

func (t *Redis) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Redis) markUp() {
	if t.isClosed() {
		return
	}
	if old := State(t.state.Swap(int32(StateConnected))); old != StateConnected {
		t.logger.Info("Remote cache connected", zap.Stringer("previous", old))
	}
}

func (t *Redis) markDown(err error) {
	if t.isClosed() {
		return
	}
	old := State(t.state.Swap(int32(StateDisconnected)))
	if old == StateConnected || old == StateUninitialized {
		t.logger.Warn("Remote cache unreachable, serving from local cache only", zap.Error(err))
	}
	t.startReconnect()
}

// startReconnect pings with backoff until the server answers or the tier is closed.
func (t *Redis) startReconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.reconnecting.CompareAndSwap(false, true) {
		return
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			t.reconnecting.Store(false)
			// A failure that raced with the last successful ping needs a new loop.
			if t.State() == StateDisconnected {
				t.startReconnect()
			}
		}()

		for {
			err := t.retrier.Run(t.ctx, func() error {
				t.state.Store(int32(StateConnecting))
				return t.client.Ping(t.ctx).Err()
			})
			// An error reply still proves the server is reachable.
			if err == nil || t.ctx.Err() != nil || t.State() == StateConnected {
				return
			}
			t.logger.Debug("Remote cache still unreachable", zap.Error(err))

			timer := time.NewTimer(t.pause)
			select {
			case <-t.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// unreachable reports whether err means the server could not be reached.
// A server error reply (NOAUTH, LOADING, ...) is an answer, not an outage.
func unreachable(err error) bool {
	var replyErr redis.Error
	return !errors.As(err, &replyErr)
}

// connectivityHook feeds dial and command outcomes into the tier's state.
type connectivityHook struct {
	tier *Redis
}

func (h connectivityHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		if err != nil {
			h.tier.markDown(err)
			return nil, err
		}
		h.tier.markUp()
		return conn, nil
	}
}

func (h connectivityHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		h.observe(err)
		return err
	}
}

func (h connectivityHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		h.observe(err)
		return err
	}
}

func (h connectivityHook) observe(err error) {
	var replyErr redis.Error
	switch {
	case err == nil, errors.As(err, &replyErr):
		// The server answered, even if with an error reply.
		h.tier.markUp()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The caller gave up; that says nothing about the server.
	default:
		h.tier.markDown(err)
	}
}

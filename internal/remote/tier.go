// Package remote implements the optional shared tier and its connectivity tracking.
package remote

import (
	"context"
	"time"

	"goflare.io/strata/internal/models"
)

// State is the connectivity of the remote tier as reported by its client.
type State int32

const (
	StateUninitialized State = iota
	StateConnecting
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Tier is the shared out-of-process cache. Every call may fail; callers
// check Available before issuing one.
type Tier interface {
	Available() bool
	State() State
	Get(ctx context.Context, key string) ([]byte, error)
	SetEx(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
	FlushAll(ctx context.Context) error
	Close() error
}

// Nop is the tier used when no remote store is configured.
type Nop struct{}

var _ Tier = Nop{}

func (Nop) Available() bool { return false }
func (Nop) State() State    { return StateUninitialized }

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, models.ErrUnavailable }

func (Nop) SetEx(context.Context, string, []byte, time.Duration) error {
	return models.ErrUnavailable
}

func (Nop) Del(context.Context, ...string) error           { return models.ErrUnavailable }
func (Nop) Keys(context.Context, string) ([]string, error) { return nil, models.ErrUnavailable }
func (Nop) FlushAll(context.Context) error                 { return models.ErrUnavailable }
func (Nop) Close() error                                   { return nil }

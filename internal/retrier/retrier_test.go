package retrier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func onlyTransient(err error) bool { return errors.Is(err, errTransient) }

func TestNewRetrier_Validation(t *testing.T) {
	_, err := NewRetrier(0, time.Millisecond, time.Second, 2, 0, ExponentialBackoff, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = NewRetrier(1, time.Microsecond, time.Second, 2, 0, ExponentialBackoff, nil)
	assert.ErrorIs(t, err, ErrInvalidBaseDelay)

	_, err = NewRetrier(1, time.Millisecond, time.Second, 0.5, 0, ExponentialBackoff, nil)
	assert.ErrorIs(t, err, ErrInvalidFactor)

	_, err = NewRetrier(1, time.Millisecond, time.Second, 2, 2, ExponentialBackoff, nil)
	assert.ErrorIs(t, err, ErrInvalidJitter)
}

func TestRun_SucceedsAfterTransientErrors(t *testing.T) {
	r, err := NewRetrier(5, time.Millisecond, 5*time.Millisecond, 2, 0.1, ExponentialBackoff, onlyTransient)
	require.NoError(t, err)

	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRun_StopsOnPermanentError(t *testing.T) {
	r, err := NewRetrier(5, time.Millisecond, time.Millisecond, 1, 0, LinearBackoff, onlyTransient)
	require.NoError(t, err)

	boom := errors.New("boom")
	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRun_ExhaustsAttempts(t *testing.T) {
	r, err := NewRetrier(3, time.Millisecond, time.Millisecond, 1, 0, FibonacciBackoff, nil)
	require.NoError(t, err)

	calls := 0
	err = r.Run(context.Background(), func() error {
		calls++
		return errors.New("down")
	})
	assert.ErrorContains(t, err, "max retry attempts reached")
	assert.Equal(t, 3, calls)
}

func TestRun_ContextCancelled(t *testing.T) {
	r, err := NewRetrier(10, time.Second, time.Second, 1, 0, LinearBackoff, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = r.Run(ctx, func() error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelay_Capped(t *testing.T) {
	r, err := NewRetrier(10, 10*time.Millisecond, 50*time.Millisecond, 2, 0, ExponentialBackoff, nil)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(0))
	assert.Equal(t, 20*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 50*time.Millisecond, r.calculateDelay(5))
}

func TestFibonacciDelay(t *testing.T) {
	r, err := NewRetrier(10, 10*time.Millisecond, 45*time.Millisecond, 1, 0, FibonacciBackoff, nil)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(0))
	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 20*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 30*time.Millisecond, r.calculateDelay(3))
	assert.Equal(t, 45*time.Millisecond, r.calculateDelay(4))
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []BackoffStrategy{ExponentialBackoff, LinearBackoff, FibonacciBackoff} {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStrategy("random")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, "unknown", BackoffStrategy(9).String())
}

func TestCalculateDelay_Linear(t *testing.T) {
	r, err := NewRetrier(10, 10*time.Millisecond, 25*time.Millisecond, 1, 0, LinearBackoff, nil)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Millisecond, r.calculateDelay(0))
	assert.Equal(t, 20*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 25*time.Millisecond, r.calculateDelay(2))
}

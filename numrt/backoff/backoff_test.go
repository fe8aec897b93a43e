//go:build unit

package backoff

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponential(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		base     time.Duration
		attempt  int
		expected time.Duration
	}{
		{name: "first attempt is base", base: 10 * time.Millisecond, attempt: 0, expected: 10 * time.Millisecond},
		{name: "doubles", base: 10 * time.Millisecond, attempt: 3, expected: 80 * time.Millisecond},
		{name: "negative attempt", base: 10 * time.Millisecond, attempt: -2, expected: 10 * time.Millisecond},
		{name: "zero base", base: 0, attempt: 5, expected: 0},
		{name: "saturates", base: time.Hour, attempt: 100, expected: time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, Exponential(tt.base, tt.attempt))
		})
	}
}

func TestFullJitter_StaysInRange(t *testing.T) {
	t.Parallel()

	assert.Zero(t, FullJitter(0))
	assert.Zero(t, FullJitter(-time.Second))

	for range 100 {
		d := FullJitter(time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, time.Millisecond)
	}
}

func TestPolicy_DelayRespectsCap(t *testing.T) {
	t.Parallel()

	p := Policy{Base: time.Millisecond, Cap: 4 * time.Millisecond}

	for attempt := range 20 {
		assert.Less(t, p.Delay(attempt), 4*time.Millisecond)
	}
}

func TestSleepWithContext_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := SleepWithContext(ctx, time.Hour)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoError(t, SleepWithContext(ctx, 0))
}

func TestRetry(t *testing.T) {
	t.Parallel()

	fast := Policy{Base: time.Microsecond, Cap: time.Microsecond, Attempts: 5}
	boom := errors.New("boom")

	t.Run("done on third call", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := Retry(context.Background(), fast, func(context.Context) (bool, error) {
			calls++
			return calls == 3, nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("error stops immediately", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := Retry(context.Background(), fast, func(context.Context) (bool, error) {
			calls++
			return false, boom
		})

		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausted", func(t *testing.T) {
		t.Parallel()

		calls := 0
		err := Retry(context.Background(), fast, func(context.Context) (bool, error) {
			calls++
			return false, nil
		})

		require.ErrorIs(t, err, ErrExhausted)
		assert.Equal(t, 5, calls)
	})

	t.Run("context ends unlimited policy", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		err := Retry(ctx, Policy{Base: time.Millisecond}, func(context.Context) (bool, error) {
			return false, nil
		})

		require.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

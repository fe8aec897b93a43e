//go:build unit

package multicore

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/LerianStudio/lib-numrt/numrt/errgroup"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCore_Lifecycle(t *testing.T) {
	t.Parallel()

	core := New(nil)
	assert.False(t, core.IsInitialised())

	require.NoError(t, core.Configure(3))
	assert.True(t, core.IsInitialised())
	assert.Equal(t, 3, core.Workers())
	assert.ErrorIs(t, core.Configure(2), ErrAlreadyConfigured)

	core.ShutDown()
	core.ShutDown()

	assert.False(t, core.IsInitialised())
	assert.ErrorIs(t, core.Configure(2), ErrShutDown)
}

func TestCore_ConfigureDefaultsToGOMAXPROCS(t *testing.T) {
	t.Parallel()

	core := New(nil)
	require.NoError(t, core.Configure(0))
	assert.Positive(t, core.Workers())

	core.ShutDown()
}

func TestCore_ShutDownWithoutConfigure(t *testing.T) {
	t.Parallel()

	core := New(nil)
	assert.NotPanics(t, core.ShutDown)
}

func TestCore_ParallelForVisitsEveryIndexOnce(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		workers int
		n       int
	}{
		{name: "more items than workers", workers: 4, n: 103},
		{name: "fewer items than workers", workers: 8, n: 3},
		{name: "single worker", workers: 1, n: 10},
		{name: "empty range", workers: 2, n: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core := New(nil)
			require.NoError(t, core.Configure(tt.workers))
			defer core.ShutDown()

			hits := make([]atomic.Int32, tt.n)

			err := core.ParallelFor(context.Background(), tt.n, func(_ context.Context, i int) error {
				hits[i].Add(1)
				return nil
			})
			require.NoError(t, err)

			for i := range hits {
				assert.Equal(t, int32(1), hits[i].Load(), "index %d", i)
			}
		})
	}
}

func TestCore_ParallelForErrors(t *testing.T) {
	t.Parallel()

	core := New(nil)

	err := core.ParallelFor(context.Background(), 1, func(context.Context, int) error { return nil })
	require.ErrorIs(t, err, ErrNotInitialised)

	require.NoError(t, core.Configure(2))
	defer core.ShutDown()

	boom := errors.New("boom")

	err = core.ParallelFor(context.Background(), 50, func(_ context.Context, i int) error {
		if i == 7 {
			return boom
		}

		return nil
	})
	require.ErrorIs(t, err, boom)

	err = core.ParallelFor(context.Background(), 4, func(_ context.Context, i int) error {
		panic("cell out of range")
	})
	require.ErrorIs(t, err, errgroup.ErrPanicRecovered)
}

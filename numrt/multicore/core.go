package multicore

import (
	"context"
	"errors"
	"fmt"
	goruntime "runtime"
	"sync"

	"github.com/LerianStudio/lib-numrt/numrt/errgroup"
	"github.com/LerianStudio/lib-numrt/numrt/log"
)

var (
	// ErrNotInitialised is returned by ParallelFor before Configure or after ShutDown.
	ErrNotInitialised = errors.New("multicore: core not initialised")
	// ErrAlreadyConfigured is returned when Configure runs on a live core.
	ErrAlreadyConfigured = errors.New("multicore: core already configured")
	// ErrShutDown is returned when Configure runs after ShutDown.
	ErrShutDown = errors.New("multicore: core shut down")
)

// Core owns the worker budget for one process.
type Core struct {
	mu          sync.RWMutex
	logger      log.Logger
	workers     int
	initialised bool
	closed      bool
	wg          sync.WaitGroup
}

// New returns an unconfigured core.
func New(logger log.Logger) *Core {
	return &Core{logger: log.OrNop(logger)}
}

// Configure sets the number of workers. workers <= 0 uses GOMAXPROCS.
func (c *Core) Configure(workers int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrShutDown
	case c.initialised:
		return ErrAlreadyConfigured
	}

	if workers <= 0 {
		workers = goruntime.GOMAXPROCS(0)
	}

	c.workers = workers
	c.initialised = true

	c.logger.Log(context.Background(), log.LevelInfo, "multicore configured", log.Int("workers", workers))

	return nil
}

// IsInitialised reports whether Configure succeeded and ShutDown has not run.
func (c *Core) IsInitialised() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.initialised
}

// Workers returns the configured worker count, or 0.
func (c *Core) Workers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.workers
}

// ShutDown waits for running loops and refuses new ones. Safe without
// Configure and safe to repeat.
func (c *Core) ShutDown() {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return
	}

	wasLive := c.initialised
	c.closed = true
	c.initialised = false
	c.mu.Unlock()

	c.wg.Wait()

	if wasLive {
		c.logger.Log(context.Background(), log.LevelInfo, "multicore shut down")
	}
}

// ParallelFor calls fn for every i in [0, n), split into at most Workers
// contiguous chunks. The first error or panic cancels the remaining chunks
// and is returned.
func (c *Core) ParallelFor(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	c.mu.RLock()
	if !c.initialised {
		c.mu.RUnlock()
		return ErrNotInitialised
	}

	workers := c.workers
	c.wg.Add(1)
	c.mu.RUnlock()

	defer c.wg.Done()

	if n <= 0 {
		return nil
	}

	chunks := min(workers, n)
	size := (n + chunks - 1) / chunks

	group, gctx := errgroup.WithContext(ctx)
	group.SetLogger(c.logger)
	group.SetLimit(workers)

	for start := 0; start < n; start += size {
		end := min(start+size, n)

		group.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return fmt.Errorf("multicore: cancelled at %d: %w", i, err)
				}

				if err := fn(gctx, i); err != nil {
					return err
				}
			}

			return nil
		})
	}

	return group.Wait()
}

package errgroup

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/LerianStudio/lib-numrt/numrt/log"
)

// ErrPanicRecovered is returned when a goroutine in the group panics.
var ErrPanicRecovered = errors.New("errgroup: panic recovered")

// Group manages goroutines that share a cancellation context. The first error
// cancels the context and is returned by Wait.
type Group struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	sem     chan struct{}
	errOnce sync.Once
	err     error
	logger  log.Logger
}

// WithContext returns a Group and a context derived from ctx that is
// cancelled on the first error or when Wait returns.
func WithContext(ctx context.Context) (*Group, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	return &Group{ctx: ctx, cancel: cancel}, ctx
}

// SetLogger logs recovered panics before they surface from Wait.
func (grp *Group) SetLogger(logger log.Logger) {
	if grp == nil {
		return
	}

	grp.logger = logger
}

// SetLimit bounds the number of goroutines running at once. It must be called
// before the first Go. n <= 0 removes the limit.
func (grp *Group) SetLimit(n int) {
	if n <= 0 {
		grp.sem = nil
		return
	}

	grp.sem = make(chan struct{}, n)
}

func (grp *Group) effectiveCtx() context.Context {
	if grp.ctx != nil {
		return grp.ctx
	}

	return context.Background()
}

// Go runs fn in a new goroutine, blocking first while the limit is reached.
func (grp *Group) Go(fn func() error) {
	if grp.sem != nil {
		grp.sem <- struct{}{}
	}

	grp.wg.Add(1)

	go func() {
		defer grp.wg.Done()
		defer func() {
			if grp.sem != nil {
				<-grp.sem
			}
		}()
		defer func() {
			if recovered := recover(); recovered != nil {
				grp.record(grp.panicError(recovered))
			}
		}()

		if err := fn(); err != nil {
			grp.record(err)
		}
	}()
}

func (grp *Group) record(err error) {
	grp.errOnce.Do(func() {
		grp.err = err
		if grp.cancel != nil {
			grp.cancel()
		}
	})
}

// panicError keeps error panic values in the chain so callers can match them
// with errors.Is.
func (grp *Group) panicError(recovered any) error {
	log.OrNop(grp.logger).Log(grp.effectiveCtx(), log.LevelError, "goroutine panic recovered",
		log.Any("panic", recovered),
		log.String("stack", string(debug.Stack())),
	)

	if err, ok := recovered.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanicRecovered, err)
	}

	return fmt.Errorf("%w: %v", ErrPanicRecovered, recovered)
}

// Wait blocks until every goroutine finishes and returns the first error.
func (grp *Group) Wait() error {
	grp.wg.Wait()

	if grp.cancel != nil {
		grp.cancel()
	}

	return grp.err
}

package bootstrap

import (
	"context"
	"time"

	constant "github.com/LerianStudio/lib-numrt/numrt/constants"
	"github.com/LerianStudio/lib-numrt/numrt/log"
)

const logSyncTimeout = 2 * time.Second

// ShutdownDistributed stops the work distributor and then the distributed
// runtime. It runs at most once and does nothing when the stage is not built in.
func (e *Environment) ShutdownDistributed() {
	if !e.features.Distributed {
		return
	}

	e.distributedDown.Do(func() {
		e.distributor.Shutdown()
		e.runtime.Shutdown()
		e.setDistributed(stagePending)

		e.logger.Log(context.Background(), log.LevelInfo, "distributed runtime shut down")
	})
}

// ShutdownSharedMemory stops the shared-memory runtime. It runs at most once
// and does nothing when the stage is not built in.
func (e *Environment) ShutdownSharedMemory() {
	if !e.features.SharedMemory {
		return
	}

	e.sharedDown.Do(func() {
		e.shared.ShutDown()

		e.logger.Log(context.Background(), log.LevelInfo, "shared-memory runtime shut down")
	})
}

// Shutdown tears down the shared-memory runtime and then the distributed
// runtime, closes registered resources, and flushes the logger. It is best effort with no error channel,
// and safe to call without Init or more than once.
func (e *Environment) Shutdown() {
	e.shutdownOnce.Do(func() {
		_, span := e.tracer.Start(context.Background(), constant.SpanShutdown)
		defer span.End()

		e.ShutdownSharedMemory()
		e.ShutdownDistributed()

		for i := len(e.closers) - 1; i >= 0; i-- {
			if err := e.closers[i].Close(); err != nil {
				e.logger.Log(context.Background(), log.LevelWarn, "close resource", log.Err(err))
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), logSyncTimeout)
		defer cancel()

		_ = e.logger.Sync(ctx)
	})
}

package bootstrap

import "context"

// DistributedRuntime is the message-passing layer. Init may consume entries
// from args and reports whether the runtime is usable. It owns the cleanup of
// its own failed initialisation.
type DistributedRuntime interface {
	Init(args *[]string) bool
	Shutdown()
}

// WorkDistributor spreads work across distributed ranks.
type WorkDistributor interface {
	Init()
	Shutdown()
}

// SharedMemoryRuntime is the in-process worker pool.
type SharedMemoryRuntime interface {
	IsInitialised() bool
	ShutDown()
}

// ClaimController releases exclusive resource claims made by a prior run.
type ClaimController interface {
	Cleanup(ctx context.Context) error
}

// Barrier blocks until every distributed peer has reached it.
type Barrier interface {
	Barrier(ctx context.Context) error
}

// CacheReleaser drops precomputed data to relieve memory pressure.
type CacheReleaser interface {
	ReleaseCachedData()
}

// LookupTables precomputes the tables the engine reads.
type LookupTables interface {
	Fill()
}

// disabledDistributed stands in when no distributed runtime is supplied.
type disabledDistributed struct{}

func (disabledDistributed) Init(*[]string) bool { return true }
func (disabledDistributed) Shutdown()           {}

type disabledDistributor struct{}

func (disabledDistributor) Init()     {}
func (disabledDistributor) Shutdown() {}

type disabledSharedMemory struct{}

func (disabledSharedMemory) IsInitialised() bool { return true }
func (disabledSharedMemory) ShutDown()           {}

type disabledClaims struct{}

func (disabledClaims) Cleanup(context.Context) error { return nil }

type disabledBarrier struct{}

func (disabledBarrier) Barrier(ctx context.Context) error { return ctx.Err() }

// Disabled variants for callers that build their own wiring.
var (
	DisabledDistributedRuntime  DistributedRuntime  = disabledDistributed{}
	DisabledWorkDistributor     WorkDistributor     = disabledDistributor{}
	DisabledSharedMemoryRuntime SharedMemoryRuntime = disabledSharedMemory{}
	DisabledClaimController     ClaimController     = disabledClaims{}
	DisabledBarrier             Barrier             = disabledBarrier{}
)

// CacheReleaserFunc adapts a function to CacheReleaser.
type CacheReleaserFunc func()

// ReleaseCachedData calls f.
func (f CacheReleaserFunc) ReleaseCachedData() { f() }

// LookupTablesFunc adapts a function to LookupTables.
type LookupTablesFunc func()

// Fill calls f.
func (f LookupTablesFunc) Fill() { f() }

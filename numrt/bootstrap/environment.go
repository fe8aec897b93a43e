package bootstrap

import (
	"context"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	constant "github.com/LerianStudio/lib-numrt/numrt/constants"
	"github.com/LerianStudio/lib-numrt/numrt/log"
)

type stageState int

const (
	stagePending stageState = iota
	stageReady
	stageFailed
)

// Environment drives the collaborators through start-up and teardown.
type Environment struct {
	features Features

	runtime     DistributedRuntime
	distributor WorkDistributor
	shared      SharedMemoryRuntime
	claims      ClaimController
	barrier     Barrier
	caches      []CacheReleaser
	closers     []io.Closer
	tables      LookupTables

	logger log.Logger
	tracer trace.Tracer

	mu          sync.Mutex
	distributed stageState

	tablesOnce      sync.Once
	distributedDown sync.Once
	sharedDown      sync.Once
	shutdownOnce    sync.Once
}

// Option configures an Environment.
type Option func(*Environment)

// WithFeatures overrides BuildFeatures.
func WithFeatures(f Features) Option {
	return func(e *Environment) {
		e.features = f
	}
}

// WithDistributed sets the distributed runtime and its work distributor.
func WithDistributed(rt DistributedRuntime, distributor WorkDistributor) Option {
	return func(e *Environment) {
		if rt != nil {
			e.runtime = rt
		}

		if distributor != nil {
			e.distributor = distributor
		}
	}
}

// WithSharedMemory sets the shared-memory runtime.
func WithSharedMemory(rt SharedMemoryRuntime) Option {
	return func(e *Environment) {
		if rt != nil {
			e.shared = rt
		}
	}
}

// WithResourceClaims sets the claim controller and the barrier used before
// evaluating claims.
func WithResourceClaims(ctrl ClaimController, barrier Barrier) Option {
	return func(e *Environment) {
		if ctrl != nil {
			e.claims = ctrl
		}

		if barrier != nil {
			e.barrier = barrier
		}
	}
}

// WithCacheReleaser registers an owner of cached precomputed data.
func WithCacheReleaser(c CacheReleaser) Option {
	return func(e *Environment) {
		if c != nil {
			e.caches = append(e.caches, c)
		}
	}
}

// WithCloser registers a resource closed by Shutdown after both runtimes are
// down. Closers run in reverse registration order.
func WithCloser(c io.Closer) Option {
	return func(e *Environment) {
		if c != nil {
			e.closers = append(e.closers, c)
		}
	}
}

// WithLookupTables sets the precomputation run by FillLookupTables.
func WithLookupTables(t LookupTables) Option {
	return func(e *Environment) {
		e.tables = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(e *Environment) {
		e.logger = log.OrNop(logger)
	}
}

// WithTracer sets the tracer for stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(e *Environment) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// New returns an Environment with disabled collaborators for anything not
// supplied.
func New(opts ...Option) *Environment {
	e := &Environment{
		features:    BuildFeatures(),
		runtime:     DisabledDistributedRuntime,
		distributor: DisabledWorkDistributor,
		shared:      DisabledSharedMemoryRuntime,
		claims:      DisabledClaimController,
		barrier:     DisabledBarrier,
		logger:      log.NewNop(),
		tracer:      otel.Tracer(constant.TelemetrySDKName),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Features returns the stages this environment runs.
func (e *Environment) Features() Features {
	return e.features
}

// InitDistributed initialises the distributed runtime and then the work
// distributor. When the runtime fails the distributor is left alone and
// DistributedFailed is returned.
func (e *Environment) InitDistributed(ctx context.Context, args *[]string) Outcome {
	if !e.features.Distributed {
		return Success
	}

	ctx, span := e.tracer.Start(ctx, constant.SpanBootstrapDistributed)
	defer span.End()

	if !e.runtime.Init(args) {
		e.setDistributed(stageFailed)
		e.logger.Log(ctx, log.LevelError, "distributed runtime initialisation failed")

		return endStage(span, DistributedFailed)
	}

	e.distributor.Init()
	e.setDistributed(stageReady)

	e.logger.Log(ctx, log.LevelInfo, "distributed runtime initialised")

	return endStage(span, Success)
}

// InitSharedMemory clears stale resource claims, synchronises with peers and
// checks that the shared-memory runtime is ready. When the distributed stage
// is built in it must have succeeded first; otherwise SharedMemoryFailed is
// returned without touching any collaborator.
func (e *Environment) InitSharedMemory(ctx context.Context) Outcome {
	if !e.features.SharedMemory {
		return Success
	}

	ctx, span := e.tracer.Start(ctx, constant.SpanBootstrapSharedMemory)
	defer span.End()

	if e.features.Distributed && e.distributedState() != stageReady {
		e.logger.Log(ctx, log.LevelError, "shared-memory stage requires a ready distributed runtime")

		return endStage(span, SharedMemoryFailed)
	}

	if e.features.ResourceClaiming {
		if err := e.claims.Cleanup(ctx); err != nil {
			e.logger.Log(ctx, log.LevelWarn, "resource claim cleanup failed", log.Err(err))
			span.RecordError(err)
		}

		if e.features.Distributed {
			if err := e.barrier.Barrier(ctx); err != nil {
				e.logger.Log(ctx, log.LevelError, "barrier after claim cleanup failed", log.Err(err))
				span.RecordError(err)

				return endStage(span, SharedMemoryFailed)
			}
		}
	}

	if !e.shared.IsInitialised() {
		e.logger.Log(ctx, log.LevelError, "shared-memory runtime is not initialised")

		return endStage(span, SharedMemoryFailed)
	}

	e.logger.Log(ctx, log.LevelInfo, "shared-memory runtime ready")

	return endStage(span, Success)
}

// Init runs the distributed stage and then the shared-memory stage, stopping
// at the first failure.
func (e *Environment) Init(ctx context.Context, args *[]string) Outcome {
	e.logger.Log(ctx, log.LevelDebug, "bootstrapping environment", log.String("features", e.features.String()))

	if out := e.InitDistributed(ctx, args); out != Success {
		return out
	}

	return e.InitSharedMemory(ctx)
}

// FillLookupTables runs the lookup-table precomputation once.
func (e *Environment) FillLookupTables() {
	e.tablesOnce.Do(func() {
		if e.tables != nil {
			e.tables.Fill()
		}
	})
}

// ReleaseCachedData forwards to every registered cache owner.
func (e *Environment) ReleaseCachedData() {
	for _, c := range e.caches {
		c.ReleaseCachedData()
	}
}

func (e *Environment) setDistributed(s stageState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.distributed = s
}

func (e *Environment) distributedState() stageState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.distributed
}

func endStage(span trace.Span, out Outcome) Outcome {
	span.SetAttributes(
		attribute.Int(constant.AttrPrefixBootstrap+"outcome", int(out)),
		attribute.String(constant.AttrPrefixBootstrap+"status", out.String()),
	)

	if out != Success {
		span.SetStatus(codes.Error, out.String())
	}

	return out
}

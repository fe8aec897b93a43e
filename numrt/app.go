package numrt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LerianStudio/lib-numrt/numrt/assert"
	"github.com/LerianStudio/lib-numrt/numrt/bootstrap"
	"github.com/LerianStudio/lib-numrt/numrt/log"
	"github.com/LerianStudio/lib-numrt/numrt/mode"
)

// Exit statuses returned by Launcher.Run. assert.ExitCode is reserved for
// failed checks and never returned here.
const (
	ExitOK                 = 0
	ExitEngineFailed       = 1
	ExitDistributedFailed  = 2
	ExitSharedMemoryFailed = 3
)

const logSyncTimeout = 2 * time.Second

var (
	// ErrNilLauncher is returned when a launcher method is called on a nil receiver.
	ErrNilLauncher = errors.New("launcher is nil")
	// ErrNilEngine is returned when Run receives no engine.
	ErrNilEngine = errors.New("engine is nil")
)

// Runtime is what an engine receives once the environment is ready.
type Runtime struct {
	Mode   *mode.Mode
	Assert *assert.Reporter
	Env    *bootstrap.Environment
	Logger log.Logger
	// Args is argv with the arguments consumed by the distributed runtime removed.
	Args []string
}

// Engine is the numerical work run between bootstrap and shutdown.
type Engine interface {
	Run(ctx context.Context, rt *Runtime) error
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, rt *Runtime) error

// Run calls f.
func (f EngineFunc) Run(ctx context.Context, rt *Runtime) error {
	return f(ctx, rt)
}

// LauncherOption configures a Launcher.
type LauncherOption func(l *Launcher)

// WithLogger sets the launcher logger. It is also handed to the reporter and,
// when no environment is supplied, to the default environment. Without it the
// launcher builds one with NewDefaultLogger.
func WithLogger(logger log.Logger) LauncherOption {
	return func(l *Launcher) {
		l.Logger = logger
	}
}

// WithEnvironment supplies a preassembled environment.
func WithEnvironment(env *bootstrap.Environment) LauncherOption {
	return func(l *Launcher) {
		l.env = env
	}
}

// WithMode uses m instead of resolving the process-wide mode.
func WithMode(m *mode.Mode) LauncherOption {
	return func(l *Launcher) {
		l.mode = m
	}
}

// WithAssertOptions passes extra options to the reporter.
func WithAssertOptions(opts ...assert.Option) LauncherOption {
	return func(l *Launcher) {
		l.assertOpts = append(l.assertOpts, opts...)
	}
}

// Launcher runs the fixed sequence: resolve mode, bootstrap, fill lookup
// tables, run the engine, shut down.
type Launcher struct {
	Logger     log.Logger
	env        *bootstrap.Environment
	mode       *mode.Mode
	assertOpts []assert.Option
}

// NewLauncher creates a Launcher.
func NewLauncher(opts ...LauncherOption) *Launcher {
	l := &Launcher{}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run executes engine inside a bootstrapped environment and returns the exit
// status for the process. Shutdown always runs once bootstrap was attempted.
func (l *Launcher) Run(ctx context.Context, args []string, engine Engine) int {
	if l == nil {
		return ExitEngineFailed
	}

	logger, owned := l.resolveLogger(ctx)
	if owned {
		defer syncLogger(logger)
	}

	status, err := l.run(ctx, args, engine, logger)
	if err != nil {
		logger.Log(ctx, log.LevelError, "launcher error", log.Err(err))
	}

	return status
}

// RunWithError is Run with the cause of a non-zero status.
func (l *Launcher) RunWithError(ctx context.Context, args []string, engine Engine) (int, error) {
	if l == nil {
		return ExitEngineFailed, ErrNilLauncher
	}

	logger, owned := l.resolveLogger(ctx)
	if owned {
		defer syncLogger(logger)
	}

	return l.run(ctx, args, engine, logger)
}

// resolveLogger returns the configured logger or, when none was set, the
// default one built from the environment. owned reports the latter.
func (l *Launcher) resolveLogger(ctx context.Context) (logger log.Logger, owned bool) {
	if l.Logger != nil {
		return l.Logger, false
	}

	return defaultLogger(ctx), true
}

func syncLogger(logger log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), logSyncTimeout)
	defer cancel()

	_ = logger.Sync(ctx)
}

func (l *Launcher) run(ctx context.Context, args []string, engine Engine, logger log.Logger) (int, error) {
	if engine == nil {
		return ExitEngineFailed, ErrNilEngine
	}

	m := l.mode
	if m == nil {
		m = mode.Init(mode.WithLogger(logger))
	}

	reporter := assert.New(m, append([]assert.Option{assert.WithLogger(logger), assert.WithContext(ctx)}, l.assertOpts...)...)

	env := l.env
	if env == nil {
		var err error

		env, err = DefaultEnvironment(ctx, logger)
		if err != nil {
			return ExitEngineFailed, fmt.Errorf("assemble environment: %w", err)
		}
	}

	defer env.Shutdown()

	argv := append([]string(nil), args...)

	if out := env.Init(ctx, &argv); out != bootstrap.Success {
		return ExitStatus(out), fmt.Errorf("bootstrap: %w", out.Err())
	}

	env.FillLookupTables()

	rt := &Runtime{Mode: m, Assert: reporter, Env: env, Logger: logger, Args: argv}

	started := time.Now()

	logger.Log(ctx, log.LevelInfo, "engine starting", log.Bool("asserts", m.AssertionsActive()))

	if err := engine.Run(ctx, rt); err != nil {
		return ExitEngineFailed, fmt.Errorf("engine: %w", err)
	}

	logger.Log(ctx, log.LevelInfo, "engine finished", log.String("elapsed", time.Since(started).String()))

	return ExitOK, nil
}

// ExitStatus maps a bootstrap outcome to a process exit status.
func ExitStatus(out bootstrap.Outcome) int {
	switch out {
	case bootstrap.Success:
		return ExitOK
	case bootstrap.DistributedFailed:
		return ExitDistributedFailed
	case bootstrap.SharedMemoryFailed:
		return ExitSharedMemoryFailed
	default:
		return ExitEngineFailed
	}
}

//go:build unit

package numrt

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	numassert "github.com/LerianStudio/lib-numrt/numrt/assert"
	"github.com/LerianStudio/lib-numrt/numrt/bootstrap"
	constant "github.com/LerianStudio/lib-numrt/numrt/constants"
	"github.com/LerianStudio/lib-numrt/numrt/log"
	"github.com/LerianStudio/lib-numrt/numrt/mode"
	"github.com/LerianStudio/lib-numrt/numrt/multicore"
	"github.com/LerianStudio/lib-numrt/numrt/redis"
	"github.com/LerianStudio/lib-numrt/numrt/zap"
)

type stubRuntime struct {
	ok       bool
	shutdown int
}

func (s *stubRuntime) Init(*[]string) bool { return s.ok }
func (s *stubRuntime) Shutdown()           { s.shutdown++ }

func newTestEnv(t *testing.T, distributedOK bool) (*bootstrap.Environment, *stubRuntime, *multicore.Core) {
	t.Helper()

	rt := &stubRuntime{ok: distributedOK}
	core := multicore.New(nil)
	require.NoError(t, core.Configure(2))

	env := bootstrap.New(
		bootstrap.WithFeatures(bootstrap.Features{Distributed: true, SharedMemory: true}),
		bootstrap.WithDistributed(rt, nil),
		bootstrap.WithSharedMemory(core),
	)

	return env, rt, core
}

func TestLauncher_RunSuccess(t *testing.T) {
	t.Parallel()

	env, rt, core := newTestEnv(t, true)

	var seen *Runtime

	status := NewLauncher(WithMode(mode.New(true)), WithEnvironment(env)).Run(context.Background(),
		[]string{"solver", "grid.vtk"},
		EngineFunc(func(ctx context.Context, r *Runtime) error {
			seen = r
			return core.ParallelFor(ctx, 16, func(context.Context, int) error { return nil })
		}))

	assert.Equal(t, ExitOK, status)
	require.NotNil(t, seen)
	assert.Equal(t, []string{"solver", "grid.vtk"}, seen.Args)
	assert.True(t, seen.Assert.Active())
	assert.Equal(t, 1, rt.shutdown)
	assert.False(t, core.IsInitialised(), "shutdown must stop the core")
}

func TestLauncher_RunStatuses(t *testing.T) {
	t.Parallel()

	engineErr := errors.New("diverged")

	tests := []struct {
		name          string
		distributedOK bool
		engineErr     error
		wantStatus    int
		wantErr       error
		engineCalled  bool
	}{
		{name: "engine error", distributedOK: true, engineErr: engineErr, wantStatus: ExitEngineFailed, wantErr: engineErr, engineCalled: true},
		{name: "distributed failure", distributedOK: false, wantStatus: ExitDistributedFailed, wantErr: bootstrap.ErrDistributedInit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, rt, _ := newTestEnv(t, tt.distributedOK)
			called := false

			status, err := NewLauncher(WithMode(mode.New(false)), WithEnvironment(env)).RunWithError(context.Background(), nil,
				EngineFunc(func(context.Context, *Runtime) error {
					called = true
					return tt.engineErr
				}))

			assert.Equal(t, tt.wantStatus, status)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.engineCalled, called)
			assert.Equal(t, 1, rt.shutdown, "shutdown runs on every path")
		})
	}
}

func TestLauncher_SharedMemoryFailure(t *testing.T) {
	t.Parallel()

	env := bootstrap.New(
		bootstrap.WithFeatures(bootstrap.Features{SharedMemory: true}),
		bootstrap.WithSharedMemory(multicore.New(nil)),
	)

	status, err := NewLauncher(WithMode(mode.New(false)), WithEnvironment(env)).RunWithError(context.Background(), nil,
		EngineFunc(func(context.Context, *Runtime) error { return nil }))

	assert.Equal(t, ExitSharedMemoryFailed, status)
	assert.ErrorIs(t, err, bootstrap.ErrSharedMemoryInit)
}

// With the real os.Exit the process ends inside the failed check and the
// deferred shutdown never runs. An exit that returns unwinds through it.
func TestLauncher_FailedCheckWithReturningExitStillShutsDown(t *testing.T) {
	t.Parallel()

	env, rt, _ := newTestEnv(t, true)

	var (
		out  bytes.Buffer
		code int
	)

	launcher := NewLauncher(
		WithMode(mode.New(true)),
		WithEnvironment(env),
		WithAssertOptions(numassert.WithOutput(&out), numassert.WithExit(func(c int) { code = c })),
	)

	assert.Panics(t, func() {
		launcher.Run(context.Background(), nil, EngineFunc(func(_ context.Context, r *Runtime) error {
			r.Assert.That(false, "mass conserved")
			return nil
		}))
	})

	assert.Equal(t, numassert.ExitCode, code)
	assert.Contains(t, out.String(), "failed: mass conserved")
	assert.Equal(t, 1, rt.shutdown)
}

func TestLauncher_NilGuards(t *testing.T) {
	t.Parallel()

	var l *Launcher

	status, err := l.RunWithError(context.Background(), nil, EngineFunc(func(context.Context, *Runtime) error { return nil }))
	assert.Equal(t, ExitEngineFailed, status)
	assert.ErrorIs(t, err, ErrNilLauncher)

	_, err = NewLauncher().RunWithError(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNilEngine)
}

func TestExitStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ExitOK, ExitStatus(bootstrap.Success))
	assert.Equal(t, ExitDistributedFailed, ExitStatus(bootstrap.DistributedFailed))
	assert.Equal(t, ExitSharedMemoryFailed, ExitStatus(bootstrap.SharedMemoryFailed))
	assert.Equal(t, ExitEngineFailed, ExitStatus(bootstrap.Outcome(9)))
	assert.NotEqual(t, numassert.ExitCode, ExitStatus(bootstrap.Outcome(9)))
}

func TestDefaultEnvironment_UsesWorkerEnv(t *testing.T) {
	t.Setenv(constant.EnvWorkers, "3")
	t.Setenv(constant.EnvRedisAddr, "")

	env, err := DefaultEnvironment(context.Background(), nil)
	require.NoError(t, err)

	args := []string{"solver", "--numrt-size=1"}
	require.Equal(t, bootstrap.Success, env.Init(context.Background(), &args))

	if env.Features().Distributed {
		assert.Equal(t, []string{"solver"}, args)
	}

	env.Shutdown()
}

func TestNewDefaultLogger(t *testing.T) {
	t.Setenv("NUMRT_ENV", "Local")
	t.Setenv("NUMRT_LOG_LEVEL", "warn")

	logger, err := NewDefaultLogger()
	require.NoError(t, err)
	assert.Equal(t, "warn", logger.Level().Level().String())
	assert.True(t, logger.Enabled(log.LevelError))

	t.Setenv("NUMRT_LOG_LEVEL", "warning")

	logger, err = NewDefaultLogger()
	require.NoError(t, err)
	assert.Equal(t, "warn", logger.Level().Level().String())

	t.Setenv("NUMRT_LOG_LEVEL", "loud")

	_, err = NewDefaultLogger()
	assert.ErrorContains(t, err, constant.EnvLogLevel)

	t.Setenv("NUMRT_LOG_LEVEL", "")
	t.Setenv("NUMRT_ENV", "staging")

	_, err = NewDefaultLogger()
	assert.Error(t, err)
}

func TestDefaultLogger(t *testing.T) {
	t.Setenv(constant.EnvEnvironment, "local")
	t.Setenv(constant.EnvLogLevel, "debug")

	_, isZap := defaultLogger(context.Background()).(*zap.Logger)
	assert.True(t, isZap)

	t.Setenv(constant.EnvEnvironment, "staging")
	t.Setenv(constant.EnvLogLevel, "error")

	fallback, ok := defaultLogger(context.Background()).(*log.GoLogger)
	require.True(t, ok, "unusable zap settings fall back to the standard logger")
	assert.Equal(t, log.LevelError, fallback.Level)

	t.Setenv(constant.EnvLogLevel, "loud")

	fallback, ok = defaultLogger(context.Background()).(*log.GoLogger)
	require.True(t, ok)
	assert.Equal(t, log.LevelInfo, fallback.Level)
}

func TestLauncher_BuildsLoggerWhenUnset(t *testing.T) {
	t.Setenv(constant.EnvEnvironment, "local")
	t.Setenv(constant.EnvLogLevel, "")

	logger, owned := NewLauncher().resolveLogger(context.Background())
	assert.True(t, owned)
	assert.IsType(t, &zap.Logger{}, logger)

	given := log.NewNop()

	logger, owned = NewLauncher(WithLogger(given)).resolveLogger(context.Background())
	assert.False(t, owned)
	assert.Same(t, given, logger)
}

func TestRedisConfig_AddressTagMatchesConstant(t *testing.T) {
	t.Parallel()

	field, ok := reflect.TypeOf(redis.Config{}).FieldByName("Address")
	require.True(t, ok)
	assert.Equal(t, constant.EnvRedisAddr, field.Tag.Get("env"))
}

func TestLauncher_ShutdownClosesRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	t.Setenv(constant.EnvRedisAddr, mr.Addr())
	t.Setenv(constant.EnvWorkers, "2")

	features := bootstrap.Features{SharedMemory: true, ResourceClaiming: true}

	env, err := assembleEnvironment(context.Background(), log.NewNop(), features)
	require.NoError(t, err)
	assert.Positive(t, mr.CurrentConnectionCount())

	status := NewLauncher(WithMode(mode.New(false)), WithEnvironment(env), WithLogger(log.NewNop())).Run(
		context.Background(), nil, EngineFunc(func(context.Context, *Runtime) error { return nil }))
	require.Equal(t, ExitOK, status)

	assert.Eventually(t, func() bool { return mr.CurrentConnectionCount() == 0 },
		time.Second, 10*time.Millisecond, "shutdown must close the redis client")
}

func TestClaimsCloser_ReleasesThenCloses(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := redis.Connect(ctx, redis.Config{Address: mr.Addr()})
	require.NoError(t, err)

	ctrl, err := redis.NewClaimController(client, redis.WithNode("node-a"))
	require.NoError(t, err)
	require.NoError(t, ctrl.Claim(ctx, "core-0"))
	require.True(t, mr.Exists(redis.DefaultKeyPrefix+"claim:core-0"))

	require.NoError(t, (&claimsCloser{ctrl: ctrl, client: client}).Close())

	assert.False(t, mr.Exists(redis.DefaultKeyPrefix+"claim:core-0"))
	assert.Error(t, client.Ping(ctx).Err())
}

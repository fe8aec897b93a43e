package numrt

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/LerianStudio/lib-numrt/numrt/bootstrap"
	constant "github.com/LerianStudio/lib-numrt/numrt/constants"
	"github.com/LerianStudio/lib-numrt/numrt/log"
	"github.com/LerianStudio/lib-numrt/numrt/multicore"
	"github.com/LerianStudio/lib-numrt/numrt/parallel"
	"github.com/LerianStudio/lib-numrt/numrt/redis"
	"github.com/LerianStudio/lib-numrt/numrt/zap"
)

// ClaimsBarrierName is the barrier peers meet at after clearing resource claims.
const ClaimsBarrierName = "claims-cleanup"

const claimsReleaseTimeout = 5 * time.Second

// NewDefaultLogger builds a zap logger from NUMRT_ENV and NUMRT_LOG_LEVEL.
func NewDefaultLogger() (*zap.Logger, error) {
	level := GetenvOrDefault(constant.EnvLogLevel, "")
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", constant.EnvLogLevel, err)
		}

		level = parsed.String()
	}

	return zap.New(zap.Config{
		Environment:     zap.Environment(strings.ToLower(GetenvOrDefault(constant.EnvEnvironment, string(zap.EnvironmentProduction)))),
		Level:           level,
		OTelLibraryName: constant.TelemetrySDKName,
	})
}

// defaultLogger is NewDefaultLogger, or a stderr GoLogger when the zap
// settings are unusable.
func defaultLogger(ctx context.Context) log.Logger {
	logger, err := NewDefaultLogger()
	if err == nil {
		return logger
	}

	level, lerr := log.ParseLevel(GetenvOrDefault(constant.EnvLogLevel, "info"))
	if lerr != nil {
		level = log.LevelInfo
	}

	fallback := log.NewGoLogger(level, stdlog.New(os.Stderr, "", stdlog.LstdFlags))
	fallback.Log(ctx, log.LevelWarn, "structured logger unavailable, using standard logger", log.Err(err))

	return fallback
}

// DefaultEnvironment assembles the reference collaborators for the stages
// compiled in: a parallel.Node with its pool, a multicore.Core sized by
// NUMRT_WORKERS and, when NUMRT_REDIS_ADDR (constant.EnvRedisAddr) is set,
// Redis-backed claims and barrier. The Redis client is closed, and the
// claims it took are released, by Environment.Shutdown.
func DefaultEnvironment(ctx context.Context, logger log.Logger) (*bootstrap.Environment, error) {
	return assembleEnvironment(ctx, logger, bootstrap.BuildFeatures())
}

func assembleEnvironment(ctx context.Context, logger log.Logger, features bootstrap.Features) (*bootstrap.Environment, error) {
	logger = log.OrNop(logger)

	node := parallel.NewNode(logger)

	core := multicore.New(logger)
	if err := core.Configure(int(GetenvIntOrDefault(constant.EnvWorkers, 0))); err != nil {
		return nil, fmt.Errorf("configure multicore: %w", err)
	}

	opts := []bootstrap.Option{
		bootstrap.WithFeatures(features),
		bootstrap.WithLogger(logger),
		bootstrap.WithDistributed(node, parallel.NewNodePool(node, logger)),
		bootstrap.WithSharedMemory(core),
	}

	if features.ResourceClaiming {
		cfg := redis.Config{}
		if err := SetConfigFromEnvVars(&cfg); err != nil {
			return nil, err
		}

		if cfg.Address != "" {
			claimOpts, err := redisClaims(ctx, cfg, node, logger)
			if err != nil {
				return nil, err
			}

			opts = append(opts, claimOpts...)
		}
	}

	return bootstrap.New(opts...), nil
}

func redisClaims(ctx context.Context, cfg redis.Config, node *parallel.Node, logger log.Logger) ([]bootstrap.Option, error) {
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ctrl, err := redis.NewClaimController(client, redis.WithClaimLogger(logger))
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return []bootstrap.Option{
		bootstrap.WithResourceClaims(ctrl, &nodeBarrier{client: client, node: node, logger: logger}),
		bootstrap.WithCloser(&claimsCloser{ctrl: ctrl, client: client}),
	}, nil
}

// claimsCloser gives back this run's claims and then closes the client.
type claimsCloser struct {
	ctrl   *redis.ClaimController
	client io.Closer
}

func (c *claimsCloser) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), claimsReleaseTimeout)
	defer cancel()

	releaseErr := c.ctrl.Release(ctx)
	if err := c.client.Close(); err != nil {
		return errors.Join(releaseErr, fmt.Errorf("close redis client: %w", err))
	}

	return releaseErr
}

// nodeBarrier sizes the Redis barrier from the node topology, which is only
// known after the distributed stage ran.
type nodeBarrier struct {
	client goredis.UniversalClient
	node   *parallel.Node
	logger log.Logger
}

func (b *nodeBarrier) Barrier(ctx context.Context) error {
	barrier, err := redis.NewBarrier(b.client, ClaimsBarrierName, b.node.Size(), redis.WithBarrierLogger(b.logger))
	if err != nil {
		return err
	}

	return barrier.Barrier(ctx)
}

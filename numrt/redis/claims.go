package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	constant "github.com/LerianStudio/lib-numrt/numrt/constants"
	"github.com/LerianStudio/lib-numrt/numrt/log"
)

// DefaultClaimExpiry bounds how long a claim survives a crashed owner.
const DefaultClaimExpiry = 10 * time.Minute

var (
	// ErrEmptyResource is returned when a claim names no resource.
	ErrEmptyResource = errors.New("claim resource cannot be empty")
	// ErrResourceTaken is returned when another owner holds the resource.
	ErrResourceTaken = errors.New("resource already claimed")
)

// ClaimController reserves resources exclusively across the cluster.
type ClaimController struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
	logger log.Logger
	tracer trace.Tracer
	node   string
	owner  string
	prefix string
	expiry time.Duration

	mu   sync.Mutex
	held map[string]*redsync.Mutex
}

// ClaimOption configures a ClaimController.
type ClaimOption func(*ClaimController)

// WithNode sets the node identity claims are recorded under. Defaults to the hostname.
func WithNode(node string) ClaimOption {
	return func(c *ClaimController) {
		if node != "" {
			c.node = node
		}
	}
}

// WithKeyPrefix replaces DefaultKeyPrefix.
func WithKeyPrefix(prefix string) ClaimOption {
	return func(c *ClaimController) {
		c.prefix = prefix
	}
}

// WithClaimExpiry sets how long a claim lives without renewal.
func WithClaimExpiry(d time.Duration) ClaimOption {
	return func(c *ClaimController) {
		if d > 0 {
			c.expiry = d
		}
	}
}

// WithClaimLogger sets the logger.
func WithClaimLogger(logger log.Logger) ClaimOption {
	return func(c *ClaimController) {
		c.logger = log.OrNop(logger)
	}
}

// NewClaimController returns a controller with a fresh owner token.
func NewClaimController(client redis.UniversalClient, opts ...ClaimOption) (*ClaimController, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	node, err := os.Hostname()
	if err != nil || node == "" {
		node = "localhost"
	}

	c := &ClaimController{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
		logger: log.NewNop(),
		tracer: otel.Tracer(constant.TelemetrySDKName),
		node:   node,
		owner:  uuid.NewString(),
		prefix: DefaultKeyPrefix,
		expiry: DefaultClaimExpiry,
		held:   make(map[string]*redsync.Mutex),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Owner returns the token identifying this controller's claims.
func (c *ClaimController) Owner() string {
	return c.owner
}

func (c *ClaimController) claimKey(resource string) string {
	return c.prefix + "claim:" + resource
}

func (c *ClaimController) nodeKey() string {
	return c.prefix + "node:" + c.node + ":claims"
}

// Claim reserves resource for this owner without waiting. It returns
// ErrResourceTaken when another owner holds it.
func (c *ClaimController) Claim(ctx context.Context, resource string) error {
	if strings.TrimSpace(resource) == "" {
		return ErrEmptyResource
	}

	ctx, span := c.tracer.Start(ctx, "redis.claims.claim",
		trace.WithAttributes(attribute.String("claim.resource", resource)))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.held[resource]; ok {
		return nil
	}

	mutex := c.rs.NewMutex(c.claimKey(resource),
		redsync.WithExpiry(c.expiry),
		redsync.WithTries(1),
		redsync.WithGenValueFunc(func() (string, error) { return c.owner, nil }),
	)

	if err := mutex.LockContext(ctx); err != nil {
		var taken *redsync.ErrTaken
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, &taken) ||
			strings.Contains(err.Error(), "lock already taken") {
			span.SetStatus(codes.Error, "resource taken")

			return fmt.Errorf("%w: %s", ErrResourceTaken, resource)
		}

		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")

		return fmt.Errorf("claim %s: %w", resource, err)
	}

	if err := c.client.SAdd(ctx, c.nodeKey(), resource).Err(); err != nil {
		_, _ = mutex.UnlockContext(ctx)

		return fmt.Errorf("record claim %s: %w", resource, err)
	}

	c.held[resource] = mutex

	c.logger.Log(ctx, log.LevelDebug, "resource claimed",
		log.String("resource", resource), log.String("node", c.node))

	return nil
}

// Claims lists the resources recorded for this node, including those left by
// earlier runs.
func (c *ClaimController) Claims(ctx context.Context) ([]string, error) {
	members, err := c.client.SMembers(ctx, c.nodeKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}

	return members, nil
}

// Release gives back every claim this controller holds.
func (c *ClaimController) Release(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	for resource, mutex := range c.held {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("release %s: %w", resource, err))
		}

		if err := c.client.SRem(ctx, c.nodeKey(), resource).Err(); err != nil {
			errs = append(errs, fmt.Errorf("forget %s: %w", resource, err))
		}

		delete(c.held, resource)
	}

	return errors.Join(errs...)
}

// Cleanup removes every claim recorded for this node, whoever owns it. It is
// meant to run at start-up, before any claim is made, to clear what a previous
// run on the same node left behind.
func (c *ClaimController) Cleanup(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "redis.claims.cleanup",
		trace.WithAttributes(attribute.String("claim.node", c.node)))
	defer span.End()

	stale, err := c.Claims(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cleanup failed")

		return err
	}

	keys := make([]string, 0, len(stale)+1)
	for _, resource := range stale {
		keys = append(keys, c.claimKey(resource))
	}

	keys = append(keys, c.nodeKey())

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cleanup failed")

		return fmt.Errorf("delete stale claims: %w", err)
	}

	c.mu.Lock()
	clear(c.held)
	c.mu.Unlock()

	span.SetAttributes(attribute.Int("claim.stale", len(stale)))

	c.logger.Log(ctx, log.LevelInfo, "stale resource claims removed",
		log.String("node", c.node), log.Int("count", len(stale)))

	return nil
}

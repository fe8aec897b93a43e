package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/LerianStudio/lib-numrt/numrt/backoff"
	"github.com/LerianStudio/lib-numrt/numrt/log"
)

var (
	// ErrInvalidParties is returned when a barrier is sized below one.
	ErrInvalidParties = errors.New("barrier parties must be at least 1")
	// ErrEmptyBarrierName is returned when a barrier has no name.
	ErrEmptyBarrierName = errors.New("barrier name cannot be empty")
)

// arrive registers or refreshes one waiter. KEYS[1] is the generation,
// KEYS[2] the arrival set scored by expiry in milliseconds. ARGV holds the
// party count, the waiter id, the current time, the arrival TTL and the
// generation the waiter joined (-1 on first arrival). It returns the joined
// generation and 1 once that generation has been released.
var arrive = redis.NewScript(`
local gen = tonumber(redis.call('GET', KEYS[1]) or '0')
local joined = tonumber(ARGV[5])
if joined >= 0 and gen > joined then
  return {joined, 1}
end
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
redis.call('ZREMRANGEBYSCORE', KEYS[2], '-inf', now)
redis.call('ZADD', KEYS[2], now + ttl, ARGV[2])
redis.call('PEXPIRE', KEYS[2], 2 * ttl)
if redis.call('ZCARD', KEYS[2]) >= tonumber(ARGV[1]) then
  redis.call('DEL', KEYS[2])
  redis.call('INCR', KEYS[1])
  return {gen, 1}
end
return {gen, 0}
`)

// DefaultArrivalTTL is how long an arrival counts without being refreshed.
const DefaultArrivalTTL = 10 * time.Second

const leaveTimeout = time.Second

// Barrier blocks each caller until parties callers are waiting at the same
// time. It can be reused: each release starts a new generation. Waiters
// refresh their arrival on every poll, so an arrival left by a cancelled or
// dead caller expires after the arrival TTL and is never counted toward a
// later release.
type Barrier struct {
	client  redis.UniversalClient
	genKey  string
	arrKey  string
	parties int
	ttl     time.Duration
	policy  backoff.Policy
	logger  log.Logger
}

// BarrierOption configures a Barrier.
type BarrierOption func(*Barrier)

// WithPolicy sets how waiting parties poll for release.
func WithPolicy(p backoff.Policy) BarrierOption {
	return func(b *Barrier) {
		b.policy = p
	}
}

// WithBarrierLogger sets the logger.
func WithBarrierLogger(logger log.Logger) BarrierOption {
	return func(b *Barrier) {
		b.logger = log.OrNop(logger)
	}
}

// WithBarrierKeyPrefix replaces DefaultKeyPrefix.
func WithBarrierKeyPrefix(prefix string) BarrierOption {
	return func(b *Barrier) {
		b.genKey = prefix + strings.TrimPrefix(b.genKey, DefaultKeyPrefix)
		b.arrKey = prefix + strings.TrimPrefix(b.arrKey, DefaultKeyPrefix)
	}
}

// WithArrivalTTL sets how long an unrefreshed arrival stays counted. It is
// raised to twice the polling cap when shorter, so live waiters never lapse.
func WithArrivalTTL(d time.Duration) BarrierOption {
	return func(b *Barrier) {
		if d > 0 {
			b.ttl = d
		}
	}
}

// NewBarrier returns a barrier for parties peers sharing name.
func NewBarrier(client redis.UniversalClient, name string, parties int, opts ...BarrierOption) (*Barrier, error) {
	switch {
	case client == nil:
		return nil, ErrNilClient
	case strings.TrimSpace(name) == "":
		return nil, ErrEmptyBarrierName
	case parties < 1:
		return nil, ErrInvalidParties
	}

	b := &Barrier{
		client:  client,
		genKey:  DefaultKeyPrefix + "barrier:" + name + ":gen",
		arrKey:  DefaultKeyPrefix + "barrier:" + name + ":arrivals",
		parties: parties,
		ttl:     DefaultArrivalTTL,
		policy:  backoff.DefaultPolicy,
		logger:  log.NewNop(),
	}

	for _, opt := range opts {
		opt(b)
	}

	if b.policy.Cap > 0 && b.ttl < 2*b.policy.Cap {
		b.ttl = 2 * b.policy.Cap
	}

	return b, nil
}

// Barrier arrives and waits until every party has arrived or ctx ends. On
// cancellation the caller's arrival is withdrawn.
func (b *Barrier) Barrier(ctx context.Context) error {
	member := uuid.NewString()

	gen, released, err := b.arrive(ctx, member, -1)
	if err != nil {
		return err
	}

	if released {
		b.logger.Log(ctx, log.LevelDebug, "barrier released", log.Any("generation", gen))
		return nil
	}

	err = backoff.Retry(ctx, b.policy, func(ctx context.Context) (bool, error) {
		_, released, err := b.arrive(ctx, member, gen)
		return released, err
	})
	if err != nil {
		b.leave(ctx, member)
		return fmt.Errorf("barrier wait: %w", err)
	}

	return nil
}

func (b *Barrier) arrive(ctx context.Context, member string, joined int64) (int64, bool, error) {
	res, err := arrive.Run(ctx, b.client, []string{b.genKey, b.arrKey},
		b.parties, member, time.Now().UnixMilli(), b.ttl.Milliseconds(), joined).Int64Slice()
	if err != nil {
		return 0, false, fmt.Errorf("barrier arrive: %w", err)
	}

	return res[0], res[1] == 1, nil
}

func (b *Barrier) leave(ctx context.Context, member string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), leaveTimeout)
	defer cancel()

	if err := b.client.ZRem(ctx, b.arrKey, member).Err(); err != nil {
		b.logger.Log(ctx, log.LevelWarn, "barrier arrival not withdrawn", log.Err(err))
	}
}

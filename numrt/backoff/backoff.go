package backoff

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
	mrand "math/rand/v2"
	"time"
)

const maxShift = 62

// ErrExhausted is returned by Retry when the policy runs out of attempts.
var ErrExhausted = errors.New("backoff: attempts exhausted")

// Exponential returns base * 2^attempt, saturating at math.MaxInt64.
// Negative attempts count as 0.
func Exponential(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	attempt = min(max(attempt, 0), maxShift)
	multiplier := int64(1) << attempt

	if int64(base) > math.MaxInt64/multiplier {
		return time.Duration(math.MaxInt64)
	}

	return base * time.Duration(multiplier)
}

// FullJitter returns a random duration in [0, delay).
func FullJitter(delay time.Duration) time.Duration {
	if delay <= 0 {
		return 0
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(delay)))
	if err != nil {
		return time.Duration(fallbackRand(int64(delay)))
	}

	return time.Duration(n.Int64())
}

// fallbackRand is used when crypto/rand.Int fails. If seeding fails too it
// returns the midpoint so callers never stall.
func fallbackRand(upper int64) int64 {
	var seed [8]byte

	if _, err := rand.Read(seed[:]); err != nil {
		return upper / 2
	}

	rng := mrand.New(mrand.NewPCG(binary.LittleEndian.Uint64(seed[:]), 0)) // #nosec G404

	return rng.Int64N(upper)
}

// SleepWithContext sleeps for d or until ctx is done.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context done: %w", ctx.Err())
	}
}

// Policy bounds a retry loop.
type Policy struct {
	// Base is the delay before the second attempt.
	Base time.Duration
	// Cap limits any single delay. Zero means no cap.
	Cap time.Duration
	// Attempts is the maximum number of calls. Zero means unlimited, bounded
	// only by the context.
	Attempts int
}

// DefaultPolicy polls quickly at first and settles at half a second.
var DefaultPolicy = Policy{Base: 5 * time.Millisecond, Cap: 500 * time.Millisecond}

// Delay returns the jittered wait before the given retry.
func (p Policy) Delay(attempt int) time.Duration {
	d := Exponential(p.Base, attempt)
	if p.Cap > 0 && d > p.Cap {
		d = p.Cap
	}

	return FullJitter(d)
}

// Retry calls fn until it reports done, returns an error, the context ends,
// or the policy runs out of attempts.
func Retry(ctx context.Context, p Policy, fn func(ctx context.Context) (done bool, err error)) error {
	for attempt := 0; p.Attempts <= 0 || attempt < p.Attempts; attempt++ {
		done, err := fn(ctx)
		if err != nil {
			return err
		}

		if done {
			return nil
		}

		if err := SleepWithContext(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts", ErrExhausted, p.Attempts)
}

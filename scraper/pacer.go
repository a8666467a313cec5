package scraper

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

// Pacer decides how long to pause before an outbound request.
type Pacer interface {
	Wait(ctx context.Context) error
}

// JitterPacer sleeps for a uniformly random duration in [Min, Max] on every
// call. Unlike a last-action limiter it always waits the full delay, so each
// attempt is preceded by at least Min.
type JitterPacer struct {
	Min time.Duration
	Max time.Duration
}

// NewJitterPacer returns a pacer for the range [lo, hi]. A hi below lo is
// treated as a fixed delay of lo.
func NewJitterPacer(lo, hi time.Duration) *JitterPacer {
	if hi < lo {
		hi = lo
	}
	return &JitterPacer{Min: lo, Max: hi}
}

// Wait blocks for the next delay or until ctx is done.
func (p *JitterPacer) Wait(ctx context.Context) error {
	return sleep(ctx, p.next())
}

func (p *JitterPacer) next() time.Duration {
	if p.Max <= p.Min {
		return p.Min
	}
	return p.Min + time.Duration(rand.Int63n(int64(p.Max-p.Min+1)))
}

// TokenBucketPacer spaces requests with a token bucket instead of a random
// sleep.
type TokenBucketPacer struct {
	limiter *rate.Limiter
}

// NewTokenBucketPacer allows perSecond requests per second with a burst of one.
func NewTokenBucketPacer(perSecond float64) *TokenBucketPacer {
	return &TokenBucketPacer{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (p *TokenBucketPacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NoDelay never waits. Only the context is checked.
type NoDelay struct{}

func (NoDelay) Wait(ctx context.Context) error {
	return ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

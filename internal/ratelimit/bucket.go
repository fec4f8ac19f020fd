// Package ratelimit provides a token bucket owned by whoever constructs it.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Bucket implements token bucket rate limiting
type Bucket struct {
	tokens         int
	maxTokens      int
	refillRate     time.Duration
	lastRefillTime time.Time
	now            func() time.Time
	mu             sync.Mutex
}

// New creates a bucket holding up to maxTokens, adding one every refillRate.
func New(maxTokens int, refillRate time.Duration) *Bucket {
	return newWithClock(maxTokens, refillRate, time.Now)
}

// PerMinute builds a bucket allowing rate tokens per minute with the given burst.
func PerMinute(rate float64, burst int) *Bucket {
	if burst < 1 {
		burst = 1
	}
	if rate <= 0 {
		return New(burst, 0)
	}
	return New(burst, time.Duration(float64(time.Minute)/rate))
}

func newWithClock(maxTokens int, refillRate time.Duration, now func() time.Time) *Bucket {
	return &Bucket{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: now(),
		now:            now,
	}
}

// Wait blocks until a token is available or ctx is done.
func (b *Bucket) Wait(ctx context.Context) error {
	for {
		if b.Allow() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

// Allow takes a token if one is available without blocking.
func (b *Bucket) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	// A zero refill rate never refills
	if b.refillRate > 0 {
		now := b.now()
		tokensToAdd := int(now.Sub(b.lastRefillTime) / b.refillRate)
		if tokensToAdd > 0 {
			b.tokens += tokensToAdd
			if b.tokens > b.maxTokens {
				b.tokens = b.maxTokens
			}
			b.lastRefillTime = b.lastRefillTime.Add(time.Duration(tokensToAdd) * b.refillRate)
		}
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

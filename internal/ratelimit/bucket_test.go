package ratelimit

import (
	"context"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestBucketBurstThenRefill(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	b := newWithClock(2, 20*time.Second, clk.now)

	if !b.Allow() || !b.Allow() {
		t.Fatal("Expected burst of 2 tokens")
	}
	if b.Allow() {
		t.Error("Expected bucket to be empty after burst")
	}

	clk.t = clk.t.Add(19 * time.Second)
	if b.Allow() {
		t.Error("Expected no token before refill interval")
	}
	clk.t = clk.t.Add(time.Second)
	if !b.Allow() {
		t.Error("Expected one token after refill interval")
	}
}

func TestBucketCapsAtMax(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	b := newWithClock(1, time.Second, clk.now)
	b.Allow()

	clk.t = clk.t.Add(time.Hour)
	if !b.Allow() {
		t.Fatal("Expected a token after a long idle period")
	}
	if b.Allow() {
		t.Error("Expected tokens to be capped at max")
	}
}

func TestPerMinute(t *testing.T) {
	b := PerMinute(3, 1)
	if b.refillRate != 20*time.Second {
		t.Errorf("Expected refill every 20s, got %v", b.refillRate)
	}
	if b.maxTokens != 1 {
		t.Errorf("Expected burst 1, got %d", b.maxTokens)
	}
}

func TestWaitHonoursContext(t *testing.T) {
	b := New(1, time.Hour)
	b.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := b.Wait(ctx); err == nil {
		t.Error("Expected Wait to fail when context expires")
	}
}

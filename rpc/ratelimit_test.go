package rpc

import (
	"testing"
	"time"
)

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 2})
	limiter.now = func() time.Time { return now }

	if !limiter.allow("10.0.0.1") || !limiter.allow("10.0.0.1") {
		t.Fatalf("burst requests should pass")
	}
	if limiter.allow("10.0.0.1") {
		t.Fatalf("third request within the same instant should be throttled")
	}
	if !limiter.allow("10.0.0.2") {
		t.Fatalf("other clients keep their own budget")
	}
	now = now.Add(time.Second)
	if !limiter.allow("10.0.0.1") {
		t.Fatalf("token should refill after a second")
	}
}

func TestRateLimiterSweepsIdleVisitorsOncePerTTL(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	limiter := newRateLimiter(RateLimit{RequestsPerMinute: 60, Burst: 1})
	limiter.now = func() time.Time { return now }

	limiter.allow("idle")
	now = now.Add(limiter.idleTTL / 2)
	limiter.allow("active")

	now = now.Add(limiter.idleTTL/2 + time.Second)
	limiter.allow("active")
	if _, ok := limiter.visitors["idle"]; ok {
		t.Fatalf("idle visitor should be evicted once the sweep interval elapsed")
	}

	limiter.allow("fresh")
	now = now.Add(limiter.idleTTL / 2)
	limiter.allow("active")
	if len(limiter.visitors) != 2 {
		t.Fatalf("no sweep expected before another idleTTL, got %d visitors", len(limiter.visitors))
	}

	now = now.Add(limiter.idleTTL/2 + 2*time.Second)
	limiter.allow("active")
	if _, ok := limiter.visitors["fresh"]; ok {
		t.Fatalf("fresh visitor idle past idleTTL should be swept")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := newRateLimiter(RateLimit{})
	for i := 0; i < 100; i++ {
		if !limiter.allow("10.0.0.1") {
			t.Fatalf("disabled limiter must not throttle")
		}
	}
	if len(limiter.visitors) != 0 {
		t.Fatalf("disabled limiter must not track visitors")
	}
}

package service

import (
	"context"
	"sync"
	"time"
)

const memoryLimiterCleanupPeriod = 5 * time.Minute

type memoryBucket struct {
	count       int
	windowStart time.Time
	window      time.Duration
}

func (b *memoryBucket) expired(now time.Time) bool {
	return now.Sub(b.windowStart) >= b.window
}

// MemoryRateLimiter is a fixed-window limiter for single-instance deployments
// without Redis.
type MemoryRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*memoryBucket
	lastCleanup time.Time
	now         func() time.Time
}

func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		buckets:     make(map[string]*memoryBucket),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// cleanup evicts buckets past their own window. Keys with different windows
// share the map.
func (l *MemoryRateLimiter) cleanup(now time.Time) {
	if now.Sub(l.lastCleanup) < memoryLimiterCleanupPeriod {
		return
	}
	l.lastCleanup = now

	for key, b := range l.buckets {
		if b.expired(now) {
			delete(l.buckets, key)
		}
	}
}

// CheckLimit has the same contract as RateLimiter.CheckLimit.
func (l *MemoryRateLimiter) CheckLimit(
	ctx context.Context,
	key string,
	limit int,
	window time.Duration,
) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.cleanup(now)

	b, exists := l.buckets[key]
	if !exists || b.expired(now) {
		l.buckets[key] = &memoryBucket{count: 1, windowStart: now, window: window}
		return true, now.Add(window)
	}

	resetAt := b.windowStart.Add(window)
	if b.count >= limit {
		return false, resetAt
	}

	b.count++
	return true, resetAt
}

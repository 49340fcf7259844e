package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the in-process counterpart of RedisLimiter.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	hits   map[string]window
	now    func() time.Time
}

type window struct {
	start time.Time
	count int
}

func NewMemoryLimiter(limit int, win time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, window: win, hits: map[string]window{}, now: time.Now}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	w := l.hits[key]
	if w.start.IsZero() || now.Sub(w.start) >= l.window {
		w = window{start: now}
	}
	w.count++
	l.hits[key] = w
	return w.count <= l.limit, nil
}

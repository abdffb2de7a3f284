package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const idleEviction = 10 * time.Minute

// MemoryBucket limits within a single process. It is used when no redis is
// configured.
type MemoryBucket struct {
	mu       sync.Mutex
	limiters map[string]*memoryEntry
	now      func() time.Time
	lastGC   time.Time
}

type memoryEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{limiters: map[string]*memoryEntry{}, now: time.Now}
}

func (m *MemoryBucket) Allow(_ context.Context, key string, perSecond float64, burst int) (*Result, error) {
	if err := validate(key, perSecond, burst); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.evict(now)

	entry, ok := m.limiters[key]
	if !ok || entry.limiter.Limit() != rate.Limit(perSecond) || entry.limiter.Burst() != burst {
		entry = &memoryEntry{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		m.limiters[key] = entry
	}
	entry.lastSeen = now

	allowed := entry.limiter.AllowN(now, 1)
	tokens := entry.limiter.TokensAt(now)
	return &Result{
		Allowed:    allowed,
		Limit:      burst,
		Remaining:  int(math.Max(0, math.Floor(tokens))),
		RetryAfter: retryAfter(allowed, tokens, perSecond),
	}, nil
}

func (m *MemoryBucket) evict(now time.Time) {
	if now.Sub(m.lastGC) < idleEviction {
		return
	}
	m.lastGC = now
	for key, entry := range m.limiters {
		if now.Sub(entry.lastSeen) > idleEviction {
			delete(m.limiters, key)
		}
	}
}

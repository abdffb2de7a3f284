package service

import (
	"sync/atomic"
	"time"

	"github.com/smallbiznis/jewelbill/internal/config"
	"github.com/smallbiznis/jewelbill/internal/metalrate/domain"
)

const defaultStaleAfter = 12 * time.Hour

// Cache holds the process-wide rate table. Readers never see a partial swap.
type Cache struct {
	entry      atomic.Pointer[cacheEntry]
	staleAfter time.Duration
}

type cacheEntry struct {
	rates       []domain.MetalRate
	refreshedAt time.Time
}

func NewCache(staleAfter time.Duration) *Cache {
	if staleAfter <= 0 {
		staleAfter = defaultStaleAfter
	}
	return &Cache{staleAfter: staleAfter}
}

func NewCacheFromConfig(cfg config.Config) *Cache {
	return NewCache(cfg.MetalRate.StaleAfter)
}

// Store replaces the table. rates must not be mutated afterwards.
func (c *Cache) Store(rates []domain.MetalRate, refreshedAt time.Time) {
	c.entry.Store(&cacheEntry{rates: rates, refreshedAt: refreshedAt})
}

func (c *Cache) Load() ([]domain.MetalRate, time.Time, bool) {
	e := c.entry.Load()
	if e == nil {
		return nil, time.Time{}, false
	}
	return e.rates, e.refreshedAt, true
}

func (c *Cache) RefreshedAt() time.Time {
	_, at, _ := c.Load()
	return at
}

// Stale reports whether the table is missing or older than the threshold.
func (c *Cache) Stale(now time.Time) bool {
	_, at, ok := c.Load()
	if !ok {
		return true
	}
	return now.Sub(at) > c.staleAfter
}

package data

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"ade-pricer/internal/ade"
	"ade-pricer/internal/model"
)

type cacheEntry struct {
	Quote     Quote
	ExpiresAt time.Time
}

// QuoteCache keeps solved quotes in memory. Solves are deterministic, so the
// same instrument and options always produce the same bits; the TTL only bounds
// memory. A nil *QuoteCache is a valid, disabled cache.
type QuoteCache struct {
	mu    sync.RWMutex
	store map[string]*cacheEntry
	ttl   time.Duration
	now   func() time.Time

	stop chan struct{}
	once sync.Once
}

// NewQuoteCache returns nil (caching disabled) when ttl <= 0.
func NewQuoteCache(ttl time.Duration) *QuoteCache {
	if ttl <= 0 {
		return nil
	}
	return &QuoteCache{
		store: make(map[string]*cacheEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
}

// Get retrieves a cached quote if available and not expired.
func (c *QuoteCache) Get(key string) (Quote, bool) {
	if c == nil {
		return Quote{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.store[key]
	if !exists || c.now().After(entry.ExpiresAt) {
		return Quote{}, false
	}
	return entry.Quote, true
}

// Set stores a successful quote. Failed quotes are not cached.
func (c *QuoteCache) Set(key string, q Quote) {
	if c == nil || q.Err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = &cacheEntry{
		Quote:     q,
		ExpiresAt: c.now().Add(c.ttl),
	}
}

func (c *QuoteCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Clear removes all entries from the cache
func (c *QuoteCache) Clear() {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.store = make(map[string]*cacheEntry)
}

// Prune removes expired entries and reports how many were dropped.
func (c *QuoteCache) Prune() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	n := 0
	for key, entry := range c.store {
		if now.After(entry.ExpiresAt) {
			delete(c.store, key)
			n++
		}
	}
	return n
}

// StartCleanup prunes every interval until Close is called.
func (c *QuoteCache) StartCleanup(interval time.Duration) {
	if c == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Prune()
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *QuoteCache) Close() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
}

// QuoteKey hashes everything that determines a solve's output.
func QuoteKey(inst model.Instrument, opts ade.Options) string {
	f := opts.Formulation
	keyStr := fmt.Sprintf("%s|%s|%g|%g|%g|%g|%g|%g|%s|%d|%d|%d|%d|%d|%d|%g|%g|%g",
		inst.Name, inst.Style,
		inst.Spot, inst.Strike, inst.Maturity, inst.DomesticRate, inst.ForeignRate, inst.Volatility,
		f.Name, f.Coupling, f.Boundary, f.Weighting, f.Snap,
		opts.SpaceSteps, opts.TimeSteps,
		opts.Domain.PriceCeilingMultiplier, opts.Domain.PriceFloor, opts.Domain.SigmaSqrtTMultiplier,
	)

	// Hash the key to keep it reasonably sized
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}

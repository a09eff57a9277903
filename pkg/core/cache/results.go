package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// Outcome is the cached result of one evaluation. Err is set for
// expressions that were rejected; such outcomes are as stable as values.
type Outcome struct {
	Value int
	Err   error
}

// ResultCache memoizes evaluation outcomes per expression and evaluator
// settings.
type ResultCache struct {
	cache *Cache
}

// NewResultCache creates a result cache
func NewResultCache(cfg Config) *ResultCache {
	return &ResultCache{cache: New(cfg)}
}

// ResultKey generates a cache key for an expression evaluated with the
// given settings.
func ResultKey(strict bool, maxDepth int, expression string) string {
	mode := "lenient"
	if strict {
		mode = "strict"
	}
	hash := sha256.Sum256([]byte(mode + "|" + strconv.Itoa(maxDepth) + "|" + expression))
	return "eval:" + hex.EncodeToString(hash[:16])
}

// Get retrieves a cached outcome
func (c *ResultCache) Get(strict bool, maxDepth int, expression string) (Outcome, bool) {
	if val, ok := c.cache.Get(ResultKey(strict, maxDepth, expression)); ok {
		if outcome, ok := val.(Outcome); ok {
			return outcome, true
		}
	}
	return Outcome{}, false
}

// Set caches an outcome
func (c *ResultCache) Set(strict bool, maxDepth int, expression string, outcome Outcome) {
	c.cache.Set(ResultKey(strict, maxDepth, expression), outcome)
}

// Stats returns cache statistics
func (c *ResultCache) Stats() Stats {
	return c.cache.Stats()
}

// Clear clears the cache
func (c *ResultCache) Clear() {
	c.cache.Clear()
}

// Close stops background cleanup
func (c *ResultCache) Close() {
	c.cache.Close()
}

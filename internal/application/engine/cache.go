package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/alejandrodnm/agrisim/internal/domain"
)

// DefaultCacheBucket is the time bucket folded into cache keys.
const DefaultCacheBucket = 15 * time.Minute

// resultCache guarda resultados por (parámetros, bucket de tiempo) con TTL.
// Only seeded requests are cached: unseeded runs are not reproducible.
type resultCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	bucket  time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	result  domain.AnalysisResult
	expires time.Time
}

func newResultCache(ttl, bucket time.Duration) *resultCache {
	if bucket <= 0 {
		bucket = DefaultCacheBucket
	}
	return &resultCache{ttl: ttl, bucket: bucket, entries: make(map[string]cacheEntry)}
}

// key hashes the canonical JSON of the request plus the bucket index of now.
// AnalysisID is left out so callers naming their runs still share entries.
func (c *resultCache) key(req domain.OptimizationRequest, now time.Time) (string, error) {
	req.AnalysisID = ""
	raw, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%d", hex.EncodeToString(sum[:]), now.UnixNano()/int64(c.bucket)), nil
}

func (c *resultCache) get(key string, now time.Time) (domain.AnalysisResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return domain.AnalysisResult{}, false
	}
	if now.After(e.expires) {
		delete(c.entries, key)
		return domain.AnalysisResult{}, false
	}
	return clone(e.result), true
}

func (c *resultCache) put(key string, r domain.AnalysisResult, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = cacheEntry{result: clone(r), expires: now.Add(c.ttl)}
}

func (c *resultCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// clone copia los slices de primer nivel para que la entrada de cache y el
// resultado devuelto no compartan backing arrays.
func clone(r domain.AnalysisResult) domain.AnalysisResult {
	r.Scenarios = slices.Clone(r.Scenarios)
	r.MonteCarlo.Scenarios = slices.Clone(r.MonteCarlo.Scenarios)
	r.Stochastic.Scenarios = slices.Clone(r.Stochastic.Scenarios)
	r.Sensitivity.Variations = slices.Clone(r.Sensitivity.Variations)
	r.Sensitivity.Scenarios = slices.Clone(r.Sensitivity.Scenarios)
	r.Sensitivity.CriticalParameters = slices.Clone(r.Sensitivity.CriticalParameters)
	r.Sensitivity.Recommendations = slices.Clone(r.Sensitivity.Recommendations)
	r.Optimizations = slices.Clone(r.Optimizations)
	r.Risks = slices.Clone(r.Risks)
	r.Budgets = slices.Clone(r.Budgets)
	r.Priorities = slices.Clone(r.Priorities)
	r.Recommendations = slices.Clone(r.Recommendations)
	r.Errors = slices.Clone(r.Errors)
	return r
}

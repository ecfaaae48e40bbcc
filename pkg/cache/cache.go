// Package cache is the content-addressed, TTL-based response cache shared
// by every pipeline stage.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/zen-systems/boardroom/pkg/metrics"
)

// Category groups cache entries and fixes their TTL.
type Category string

const (
	CategoryResearch  Category = "research"
	CategorySimple    Category = "simple"
	CategoryRouting   Category = "routing"
	CategoryWorker    Category = "worker"
	CategorySynthesis Category = "synthesis"
)

// TTLs per category.
const (
	TTLLong  = 7 * 24 * time.Hour
	TTLShort = 24 * time.Hour
)

// TTL returns the fixed lifetime of entries in c.
func (c Category) TTL() time.Duration {
	switch c {
	case CategoryWorker, CategorySynthesis:
		return TTLShort
	default:
		return TTLLong
	}
}

const keySeparator = "::"

// Key derives the storage key for category and parts. A non-empty clientID
// scopes the key to that client.
func Key(clientID string, category Category, parts ...string) string {
	content := string(category) + keySeparator + strings.Join(parts, keySeparator)
	sum := sha256.Sum256([]byte(content))
	key := string(category) + ":" + hex.EncodeToString(sum[:])[:16]
	if clientID != "" {
		return "client:" + clientID + ":" + key
	}
	return key
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Enabled        bool    `json:"enabled"`
	Backend        string  `json:"backend"`
	Hits           int64   `json:"hits"`
	Misses         int64   `json:"misses"`
	Saves          int64   `json:"saves"`
	TotalRequests  int64   `json:"total_requests"`
	HitRatePercent float64 `json:"hit_rate_percent"`
}

// Cache fronts a Backend with key derivation, TTLs and hit/miss counters.
// A Cache with no backend is disabled: every Get misses without counting
// and every Set is a no-op. It is safe for concurrent use.
type Cache struct {
	backend  Backend
	clientID string
	logger   zerolog.Logger

	hits   atomic.Int64
	misses atomic.Int64
	saves  atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithClientID scopes every key to a client.
func WithClientID(id string) Option {
	return func(c *Cache) {
		c.clientID = id
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New wraps backend. A nil backend yields a disabled cache.
func New(backend Backend, opts ...Option) *Cache {
	c := &Cache{backend: backend, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Disabled returns a cache that never stores anything.
func Disabled() *Cache {
	return New(nil)
}

// Enabled reports whether a backend is attached.
func (c *Cache) Enabled() bool {
	return c != nil && c.backend != nil
}

// Backend returns the backend name, or "none" when disabled.
func (c *Cache) Backend() string {
	if !c.Enabled() {
		return "none"
	}
	return c.backend.Name()
}

// Key derives the key for category and parts under this cache's client.
func (c *Cache) Key(category Category, parts ...string) string {
	return Key(c.clientID, category, parts...)
}

// Get looks up category/parts. Backend errors count as misses.
func (c *Cache) Get(ctx context.Context, category Category, parts ...string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	key := c.Key(category, parts...)
	value, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Warn().Err(err).Str("cache_category", string(category)).Msg("cache get failed")
		metrics.CacheOperations.WithLabelValues(string(category), metrics.OutcomeError).Inc()
		ok = false
	}
	if !ok {
		c.misses.Add(1)
		metrics.CacheOperations.WithLabelValues(string(category), metrics.OutcomeMiss).Inc()
		return nil, false
	}
	c.hits.Add(1)
	metrics.CacheOperations.WithLabelValues(string(category), metrics.OutcomeHit).Inc()
	c.logger.Debug().Str("cache_category", string(category)).Str("key", key).Msg("cache hit")
	return value, true
}

// Set stores value under category/parts with the category TTL. Backend
// errors are logged and otherwise ignored.
func (c *Cache) Set(ctx context.Context, category Category, value []byte, parts ...string) {
	if !c.Enabled() {
		return
	}
	if err := c.backend.Set(ctx, c.Key(category, parts...), value, category.TTL()); err != nil {
		c.logger.Warn().Err(err).Str("cache_category", string(category)).Msg("cache set failed")
		metrics.CacheOperations.WithLabelValues(string(category), metrics.OutcomeError).Inc()
		return
	}
	c.saves.Add(1)
	metrics.CacheOperations.WithLabelValues(string(category), metrics.OutcomeSave).Inc()
}

// GetString is Get for text values.
func (c *Cache) GetString(ctx context.Context, category Category, parts ...string) (string, bool) {
	b, ok := c.Get(ctx, category, parts...)
	if !ok {
		return "", false
	}
	return string(b), true
}

// SetString is Set for text values.
func (c *Cache) SetString(ctx context.Context, category Category, value string, parts ...string) {
	c.Set(ctx, category, []byte(value), parts...)
}

// GetJSON decodes a cached JSON value into v. A value that fails to decode
// is reported absent.
func (c *Cache) GetJSON(ctx context.Context, category Category, v any, parts ...string) bool {
	b, ok := c.Get(ctx, category, parts...)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, v); err != nil {
		c.logger.Warn().Err(err).Str("cache_category", string(category)).Msg("cached value undecodable")
		return false
	}
	return true
}

// SetJSON encodes v and stores it.
func (c *Cache) SetJSON(ctx context.Context, category Category, v any, parts ...string) {
	if !c.Enabled() {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn().Err(err).Str("cache_category", string(category)).Msg("cache value not encodable")
		return
	}
	c.Set(ctx, category, b, parts...)
}

// GetWorker returns a cached worker response.
func (c *Cache) GetWorker(ctx context.Context, workerID, query string, hasResearch bool) (string, bool) {
	return c.GetString(ctx, CategoryWorker, workerID, query, strconv.FormatBool(hasResearch))
}

// SetWorker caches a worker response.
func (c *Cache) SetWorker(ctx context.Context, workerID, query string, hasResearch bool, response string) {
	c.SetString(ctx, CategoryWorker, response, workerID, query, strconv.FormatBool(hasResearch))
}

// GetSynthesis returns a cached synthesis for query and a worker set. The
// order of workers does not matter.
func (c *Cache) GetSynthesis(ctx context.Context, query string, workers []string) (string, bool) {
	return c.GetString(ctx, CategorySynthesis, query, workerSetKey(workers))
}

// SetSynthesis caches a synthesis for query and a worker set.
func (c *Cache) SetSynthesis(ctx context.Context, query string, workers []string, synthesis string) {
	c.SetString(ctx, CategorySynthesis, synthesis, query, workerSetKey(workers))
}

// GetSimple returns a cached direct answer.
func (c *Cache) GetSimple(ctx context.Context, query string) (string, bool) {
	return c.GetString(ctx, CategorySimple, query)
}

// SetSimple caches a direct answer.
func (c *Cache) SetSimple(ctx context.Context, query, answer string) {
	c.SetString(ctx, CategorySimple, answer, query)
}

// GetRouting returns a cached routing decision.
func (c *Cache) GetRouting(ctx context.Context, query string) ([]string, bool) {
	var workers []string
	if !c.GetJSON(ctx, CategoryRouting, &workers, query) {
		return nil, false
	}
	return workers, true
}

// SetRouting caches a routing decision.
func (c *Cache) SetRouting(ctx context.Context, query string, workers []string) {
	c.SetJSON(ctx, CategoryRouting, workers, query)
}

// GetResearch decodes cached research findings into v.
func (c *Cache) GetResearch(ctx context.Context, query string, v any) bool {
	return c.GetJSON(ctx, CategoryResearch, v, query)
}

// SetResearch caches research findings.
func (c *Cache) SetResearch(ctx context.Context, query string, v any) {
	c.SetJSON(ctx, CategoryResearch, v, query)
}

func workerSetKey(workers []string) string {
	sorted := make([]string, len(workers))
	copy(sorted, workers)
	sort.Strings(sorted)
	return strings.Join(sorted, ":")
}

// HitRate returns hits / (hits + misses), or 0 with no lookups.
func (c *Cache) HitRate() float64 {
	hits, misses := c.hits.Load(), c.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	return Stats{
		Enabled:        c.Enabled(),
		Backend:        c.Backend(),
		Hits:           hits,
		Misses:         misses,
		Saves:          c.saves.Load(),
		TotalRequests:  hits + misses,
		HitRatePercent: math.Round(c.HitRate()*1000) / 10,
	}
}

// Clear empties the backend and resets the counters.
func (c *Cache) Clear(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	if err := c.backend.Clear(ctx); err != nil {
		return err
	}
	c.hits.Store(0)
	c.misses.Store(0)
	c.saves.Store(0)
	c.logger.Info().Msg("cache cleared")
	return nil
}

// Close releases the backend.
func (c *Cache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.backend.Close()
}

// Package statcache is a TTL cache in front of the statistics aggregator.
// Entries are dropped lazily on read, swept on write, and invalidated by
// name whenever an answer or review update changes the underlying data.
package statcache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/boki/internal/answer"
)

// Well-known cache keys.
const (
	KeyOverall  = "overall_stats"
	KeyCategory = "category_stats"
	KeyGoals    = "learning_goals"
	KeyTrends   = "learning_trends"

	dailyPrefix    = "daily_stats_"
	categoryPrefix = "category_"
	categorySuffix = "_stats"
)

// DailyKey returns the key for daily statistics over the last days days.
func DailyKey(days int) string {
	return fmt.Sprintf("%s%d", dailyPrefix, days)
}

// CategoryKey returns the key for the statistics of a single category.
func CategoryKey(id answer.Category) string {
	return categoryPrefix + string(id) + categorySuffix
}

// Config holds TTLs and size limits.
type Config struct {
	OverallTTL          time.Duration
	CategoryTTL         time.Duration
	GoalsTTL            time.Duration
	DailyTTL            time.Duration
	CategorySpecificTTL time.Duration
	DefaultTTL          time.Duration

	// MaxEntries is the size above which EvictBatch of the oldest entries
	// are dropped regardless of TTL.
	MaxEntries int
	EvictBatch int
}

// DefaultMaintenanceInterval is how often a long-lived host should call
// PerformMaintenance.
const DefaultMaintenanceInterval = 5 * time.Minute

// DefaultConfig returns the standard TTL table.
func DefaultConfig() Config {
	return Config{
		OverallTTL:          5 * time.Minute,
		CategoryTTL:         5 * time.Minute,
		GoalsTTL:            1 * time.Minute,
		DailyTTL:            10 * time.Minute,
		CategorySpecificTTL: 5 * time.Minute,
		DefaultTTL:          5 * time.Minute,
		MaxEntries:          50,
		EvictBatch:          10,
	}
}

// ttlFor picks the TTL of key from its name.
func (c Config) ttlFor(key string) time.Duration {
	switch {
	case key == KeyOverall:
		return c.OverallTTL
	case key == KeyCategory:
		return c.CategoryTTL
	case key == KeyGoals:
		return c.GoalsTTL
	case strings.HasPrefix(key, dailyPrefix):
		return c.DailyTTL
	case strings.HasPrefix(key, categoryPrefix) && strings.HasSuffix(key, categorySuffix):
		return c.CategorySpecificTTL
	default:
		return c.DefaultTTL
	}
}

// Entry is a cached value with its insertion and expiry times.
type Entry struct {
	Data      any
	Timestamp time.Time
	ExpiresAt time.Time

	order uint64
}

// Valid reports whether the entry may still be served at now.
func (e *Entry) Valid(now time.Time) bool {
	return !now.After(e.ExpiresAt)
}

// Info summarizes the cache state.
type Info struct {
	TotalEntries   int
	ValidEntries   int
	ExpiredEntries int
	Hits           uint64
	Misses         uint64
	HitRate        float64
	Keys           []string
}

// Cache is safe for concurrent use.
type Cache struct {
	cfg     Config
	now     func() time.Time
	logger  *zap.Logger
	metrics *metrics

	mu      sync.Mutex
	entries map[string]*Entry
	order   uint64
	gen     uint64
	hits    uint64
	misses  uint64
}

// New creates a cache with cfg. Zero-valued fields in cfg fall back to
// DefaultConfig.
func New(cfg Config, opts ...Option) *Cache {
	c := &Cache{
		cfg:     withDefaults(cfg),
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = newMetrics(nil)
	}
	return c
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	durations := []struct{ got, def *time.Duration }{
		{&cfg.OverallTTL, &def.OverallTTL},
		{&cfg.CategoryTTL, &def.CategoryTTL},
		{&cfg.GoalsTTL, &def.GoalsTTL},
		{&cfg.DailyTTL, &def.DailyTTL},
		{&cfg.CategorySpecificTTL, &def.CategorySpecificTTL},
		{&cfg.DefaultTTL, &def.DefaultTTL},
	}
	for _, d := range durations {
		if *d.got <= 0 {
			*d.got = *d.def
		}
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.EvictBatch <= 0 {
		cfg.EvictBatch = def.EvictBatch
	}
	return cfg
}

// Get returns the cached value for key. An expired entry is deleted and
// reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && !e.Valid(c.now()) {
		delete(c.entries, key)
		ok = false
	}
	if !ok {
		c.misses++
		c.metrics.misses.Inc()
		return nil, false
	}
	c.hits++
	c.metrics.hits.Inc()
	return e.Data, true
}

// Lookup is a typed Get. A value of another type is treated as a miss.
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// Set stores data under key with the TTL chosen by the key's name.
func (c *Cache) Set(key string, data any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, data)
}

// Generation returns a counter that every invalidation advances. A value
// computed from data read after Generation returned g may be stored with
// SetIfGeneration(key, v, g).
func (c *Cache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// SetIfGeneration stores data only if no invalidation has happened since
// gen was read, so a computation that raced a write cannot outlive it.
func (c *Cache) SetIfGeneration(key string, data any, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		c.logger.Debug("cache store skipped after invalidation", zap.String("key", key))
		return false
	}
	c.setLocked(key, data)
	return true
}

func (c *Cache) setLocked(key string, data any) {
	now := c.now()
	c.sweepExpiredLocked(now)

	c.order++
	c.entries[key] = &Entry{
		Data:      data,
		Timestamp: now,
		ExpiresAt: now.Add(c.cfg.ttlFor(key)),
		order:     c.order,
	}
	c.enforceSizeLocked()
}

// InvalidateOnAnswerSubmit drops everything an answer can change: overall,
// per-category overview, goals, trends and every daily window (each
// includes today).
// Per-category detail entries are left to InvalidateCategory.
func (c *Cache) InvalidateOnAnswerSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.deleteLocked(KeyOverall, KeyCategory, KeyGoals, KeyTrends)
	for key := range c.entries {
		if strings.HasPrefix(key, dailyPrefix) {
			delete(c.entries, key)
		}
	}
}

// InvalidateOnReviewUpdate drops the entries that include review counts.
func (c *Cache) InvalidateOnReviewUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.deleteLocked(KeyOverall, KeyCategory)
}

// InvalidateCategory drops the detail entry of one category along with the
// overviews that include it.
func (c *Cache) InvalidateCategory(id answer.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.deleteLocked(CategoryKey(id), KeyCategory, KeyOverall)
}

// ClearAll drops every entry and resets hit/miss counts.
func (c *Cache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[string]*Entry)
	c.hits, c.misses = 0, 0
}

// Info reports entry and hit statistics.
func (c *Cache) Info() Info {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	info := Info{
		TotalEntries: len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
	}
	for key, e := range c.entries {
		if e.Valid(now) {
			info.ValidEntries++
		} else {
			info.ExpiredEntries++
		}
		info.Keys = append(info.Keys, key)
	}
	sort.Strings(info.Keys)
	if total := c.hits + c.misses; total > 0 {
		info.HitRate = float64(c.hits) / float64(total)
	}
	return info
}

// PerformMaintenance sweeps expired entries and applies the size guard.
func (c *Cache) PerformMaintenance() {
	c.mu.Lock()
	defer c.mu.Unlock()

	before := len(c.entries)
	c.sweepExpiredLocked(c.now())
	c.enforceSizeLocked()
	if removed := before - len(c.entries); removed > 0 {
		c.logger.Debug("cache maintenance", zap.Int("removed", removed), zap.Int("remaining", len(c.entries)))
	}
}

// Run performs maintenance every interval until ctx is done.
func (c *Cache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.PerformMaintenance()
		}
	}
}

func (c *Cache) deleteLocked(keys ...string) {
	for _, k := range keys {
		delete(c.entries, k)
	}
}

func (c *Cache) sweepExpiredLocked(now time.Time) {
	for key, e := range c.entries {
		if !e.Valid(now) {
			delete(c.entries, key)
		}
	}
}

// enforceSizeLocked evicts the EvictBatch oldest entries once the cache
// holds more than MaxEntries.
func (c *Cache) enforceSizeLocked() {
	if len(c.entries) <= c.cfg.MaxEntries {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := c.entries[keys[i]], c.entries[keys[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		return a.order < b.order
	})

	n := c.cfg.EvictBatch
	if n > len(keys) {
		n = len(keys)
	}
	for _, k := range keys[:n] {
		delete(c.entries, k)
	}
	c.metrics.evictions.Add(float64(n))
	c.logger.Debug("cache size guard evicted entries", zap.Int("evicted", n), zap.Int("remaining", len(c.entries)))
}

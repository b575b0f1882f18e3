package statcache

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
}

// newMetrics creates the cache counters and registers them with reg when
// reg is non-nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boki_statcache_hits_total",
			Help: "Total number of statistics cache hits",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boki_statcache_misses_total",
			Help: "Total number of statistics cache misses, including expired entries",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boki_statcache_evictions_total",
			Help: "Total number of entries dropped by the size guard",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.hits, m.misses, m.evictions)
	}
	return m
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger used for maintenance messages.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRegisterer registers the cache counters with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) { c.metrics = newMetrics(reg) }
}

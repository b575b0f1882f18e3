// Package stats computes study statistics from the answer history. Results
// are cached in a statcache.Cache and concurrent recomputations of the same
// key are coalesced.
package stats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/abhisek/boki/internal/review"
	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/store"
)

// ReviewSummary provides review queue totals.
type ReviewSummary interface {
	Statistics(ctx context.Context) (*review.Statistics, error)
}

// GoalConfig holds the study targets.
type GoalConfig struct {
	Daily       int
	Weekly      int
	Monthly     int
	Accuracy    float64
	CloseMargin float64
}

// DefaultGoalConfig returns the standard targets.
func DefaultGoalConfig() GoalConfig {
	return GoalConfig{
		Daily:       10,
		Weekly:      50,
		Monthly:     200,
		Accuracy:    0.8,
		CloseMargin: 0.1,
	}
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCache serves results from c and stores them there.
func WithCache(c *statcache.Cache) Option {
	return func(a *Aggregator) { a.cache = c }
}

// WithDedupRule selects how repeated answers to one question are counted.
func WithDedupRule(r DedupRule) Option {
	return func(a *Aggregator) { a.rule = r }
}

// WithGoals replaces the default study targets.
func WithGoals(g GoalConfig) Option {
	return func(a *Aggregator) { a.goals = g }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// Aggregator computes statistics. Returned values may be shared with the
// cache and other callers and must not be modified.
type Aggregator struct {
	history   store.HistoryRepo
	questions store.QuestionRepo
	reviews   ReviewSummary

	cache  *statcache.Cache
	group  singleflight.Group
	rule   DedupRule
	goals  GoalConfig
	now    func() time.Time
	logger *zap.Logger
}

// NewAggregator creates an aggregator. reviews may be nil, in which case
// review counts are reported as zero.
func NewAggregator(history store.HistoryRepo, questions store.QuestionRepo, reviews ReviewSummary, opts ...Option) *Aggregator {
	a := &Aggregator{
		history:   history,
		questions: questions,
		reviews:   reviews,
		rule:      AnyCorrect,
		goals:     DefaultGoalConfig(),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// cached returns the value under key, computing and storing it on a miss.
// Misses within one cache generation share a computation. A result that
// raced an invalidation is returned to its callers but not stored.
func cached[T any](ctx context.Context, a *Aggregator, key string, compute func(context.Context) (T, error)) (T, error) {
	var gen uint64
	if a.cache != nil {
		if v, ok := statcache.Lookup[T](a.cache, key); ok {
			return v, nil
		}
		gen = a.cache.Generation()
	}

	v, err, shared := a.group.Do(flightKey(key, gen), func() (any, error) {
		start := a.now()
		r, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		if a.cache != nil {
			a.cache.SetIfGeneration(key, r, gen)
		}
		a.logger.Debug("statistics computed", zap.String("key", key), zap.Duration("took", a.now().Sub(start)))
		return r, nil
	})
	if err != nil {
		var zero T
		return zero, fmt.Errorf("compute %s: %w", key, err)
	}
	if shared {
		a.logger.Debug("statistics computation shared", zap.String("key", key))
	}
	return v.(T), nil
}

func flightKey(key string, gen uint64) string {
	return key + "@" + strconv.FormatUint(gen, 10)
}

// today returns the start of the current UTC day.
func (a *Aggregator) today() time.Time {
	return startOfDay(a.now())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const dateLayout = "2006-01-02"

func (a *Aggregator) reviewStats(ctx context.Context) (*review.Statistics, error) {
	if a.reviews == nil {
		return &review.Statistics{}, nil
	}
	st, err := a.reviews.Statistics(ctx)
	if err != nil {
		return nil, fmt.Errorf("review statistics: %w", err)
	}
	return st, nil
}

// Package app wires the store, the statistics cache and the study services
// together for the command line.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/abhisek/boki/internal/config"
	"github.com/abhisek/boki/internal/review"
	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/stats"
	"github.com/abhisek/boki/internal/store"
	"github.com/abhisek/boki/internal/submission"
)

// App holds the open store and the services built on it.
type App struct {
	Config      config.Config
	Logger      *zap.Logger
	Store       *store.Store
	Cache       *statcache.Cache
	Reviews     *review.Service
	Stats       *stats.Aggregator
	Submissions *submission.Coordinator
	Registry    *prometheus.Registry

	stopMaintenance context.CancelFunc
	maintenanceDone chan struct{}
}

// Options overrides parts of the wiring, mostly for tests.
type Options struct {
	Logger *zap.Logger
	Clock  func() time.Time
}

// New opens the database named by cfg and builds the services.
func New(cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	dbPath, err := ResolveDBPath(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	cache := statcache.New(cfg.StatCache(),
		statcache.WithClock(clock),
		statcache.WithLogger(logger.Named("statcache")),
		statcache.WithRegisterer(reg))

	reviews := review.NewService(st.ReviewItems(), st.Questions(), st.History(),
		review.WithConfig(cfg.ReviewEngine()),
		review.WithClock(clock),
		review.WithLogger(logger.Named("review")),
		review.WithInvalidator(cache))

	agg := stats.NewAggregator(st.History(), st.Questions(), reviews,
		stats.WithCache(cache),
		stats.WithDedupRule(cfg.DedupRule()),
		stats.WithGoals(cfg.StudyGoals()),
		stats.WithClock(clock),
		stats.WithLogger(logger.Named("stats")))

	coord := submission.NewCoordinator(st.Questions(), st.History(), reviews,
		submission.WithCache(cache),
		submission.WithClock(clock),
		submission.WithLogger(logger.Named("submission")))

	a := &App{
		Config:      cfg,
		Logger:      logger,
		Store:       st,
		Cache:       cache,
		Reviews:     reviews,
		Stats:       agg,
		Submissions: coord,
		Registry:    reg,
	}
	if interval := cfg.Cache.MaintenanceInterval; interval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopMaintenance = cancel
		a.maintenanceDone = make(chan struct{})
		go func() {
			defer close(a.maintenanceDone)
			cache.Run(ctx, interval)
		}()
	}

	logger.Debug("app ready", zap.String("db", dbPath), zap.Duration("cache_maintenance", cfg.Cache.MaintenanceInterval))
	return a, nil
}

// Close stops cache maintenance, flushes the logger and closes the database.
func (a *App) Close() error {
	if a.stopMaintenance != nil {
		a.stopMaintenance()
		<-a.maintenanceDone
	}
	_ = a.Logger.Sync()
	return a.Store.Close()
}

// Reset deletes all answer history and review items and empties the cache.
func (a *App) Reset(ctx context.Context) error {
	if err := a.Store.Reset(ctx); err != nil {
		return err
	}
	a.Cache.ClearAll()
	a.Logger.Info("learner data reset")
	return nil
}

// ResolveDBPath returns p after creating its directory, or the default data
// path when p is empty.
func ResolveDBPath(p string) (string, error) {
	if p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}

package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/stats"
)

const cacheMetricPrefix = "boki_statcache_"

// CacheReport is the statistics cache state together with its counters as
// gathered from the registry.
type CacheReport struct {
	Info     statcache.Info
	Counters map[string]float64
}

// WarmStats loads every statistics view, filling the cache.
func (a *App) WarmStats(ctx context.Context) error {
	if _, err := a.Stats.GetOverallStatistics(ctx); err != nil {
		return err
	}
	if _, err := a.Stats.GetCategoryStatistics(ctx); err != nil {
		return err
	}
	if _, err := a.Stats.GetDailyStatistics(ctx, stats.DefaultDailyWindow); err != nil {
		return err
	}
	if _, err := a.Stats.GetLearningGoals(ctx); err != nil {
		return err
	}
	if _, err := a.Stats.GetLearningTrends(ctx); err != nil {
		return err
	}
	return nil
}

// CacheReport sweeps the cache and reports what is left in it.
func (a *App) CacheReport() (*CacheReport, error) {
	a.Cache.PerformMaintenance()

	families, err := a.Registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather cache metrics: %w", err)
	}
	rep := &CacheReport{Info: a.Cache.Info(), Counters: make(map[string]float64)}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), cacheMetricPrefix) {
			continue
		}
		for _, m := range mf.GetMetric() {
			rep.Counters[mf.GetName()] += m.GetCounter().GetValue()
		}
	}
	return rep, nil
}

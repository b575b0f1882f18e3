package app

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/boki/internal/config"
	"github.com/abhisek/boki/internal/statcache"
)

func TestCacheReport(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	_, err := a.ImportQuestions(ctx, strings.NewReader(bank))
	require.NoError(t, err)

	require.NoError(t, a.WarmStats(ctx))
	first, err := a.CacheReport()
	require.NoError(t, err)
	assert.Equal(t, float64(first.Info.Hits), first.Counters["boki_statcache_hits_total"])
	assert.Equal(t, float64(first.Info.Misses), first.Counters["boki_statcache_misses_total"])
	assert.Zero(t, first.Counters["boki_statcache_evictions_total"])
	assert.Contains(t, first.Info.Keys, statcache.KeyOverall)
	assert.Contains(t, first.Info.Keys, statcache.KeyTrends)
	assert.Equal(t, first.Info.TotalEntries, first.Info.ValidEntries)

	// Every view is served from the cache the second time.
	require.NoError(t, a.WarmStats(ctx))
	second, err := a.CacheReport()
	require.NoError(t, err)
	assert.Equal(t, first.Counters["boki_statcache_misses_total"], second.Counters["boki_statcache_misses_total"])
	assert.Equal(t, first.Counters["boki_statcache_hits_total"]+5, second.Counters["boki_statcache_hits_total"])
}

func TestCacheMaintenanceRunsInBackground(t *testing.T) {
	var (
		mu  sync.Mutex
		now = testNow
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "boki.db")
	cfg.Cache.MaintenanceInterval = 10 * time.Millisecond
	a, err := New(cfg, Options{Clock: clock})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Stats.GetOverallStatistics(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, a.Cache.Info().TotalEntries)

	mu.Lock()
	now = now.Add(cfg.Cache.OverallTTL + time.Second)
	mu.Unlock()

	assert.Eventually(t, func() bool {
		return a.Cache.Info().TotalEntries == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseWithoutMaintenance(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Database.Path = filepath.Join(t.TempDir(), "boki.db")
	cfg.Cache.MaintenanceInterval = 0
	a, err := New(cfg, Options{})
	require.NoError(t, err)
	assert.Nil(t, a.stopMaintenance)
	assert.NoError(t, a.Close())
}

// Package config loads boki settings from defaults, an optional boki.yaml
// and BOKI_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/review"
	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/stats"
)

// EnvPrefix is prepended to every environment override, e.g.
// BOKI_REVIEW_MASTERY_STREAK.
const EnvPrefix = "BOKI"

// Config is the full application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
	Review   ReviewConfig   `mapstructure:"review"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Goals    GoalsConfig    `mapstructure:"goals"`
	Stats    StatsConfig    `mapstructure:"stats"`
}

// DatabaseConfig locates the SQLite file. An empty path means the default
// data directory.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// ReviewConfig holds the priority weights and review queue thresholds.
type ReviewConfig struct {
	IncorrectWeight    float64 `mapstructure:"incorrect_weight"`
	DecayPerDay        float64 `mapstructure:"decay_per_day"`
	MaxDecay           float64 `mapstructure:"max_decay"`
	MinScore           float64 `mapstructure:"min_score"`
	ConsecutivePenalty float64 `mapstructure:"consecutive_penalty"`
	JournalBonus       float64 `mapstructure:"journal_bonus"`
	LedgerBonus        float64 `mapstructure:"ledger_bonus"`
	TrialBalanceBonus  float64 `mapstructure:"trial_balance_bonus"`

	MasteryStreak    int           `mapstructure:"mastery_streak"`
	PriorityReviewAt int           `mapstructure:"priority_review_at"`
	MaxCount         int           `mapstructure:"max_count"`
	RecentHours      int           `mapstructure:"recent_hours"`
	HistoryRetention time.Duration `mapstructure:"history_retention"`
}

// CacheConfig holds statistics cache TTLs and limits.
type CacheConfig struct {
	OverallTTL          time.Duration `mapstructure:"overall_ttl"`
	CategoryTTL         time.Duration `mapstructure:"category_ttl"`
	GoalsTTL            time.Duration `mapstructure:"goals_ttl"`
	DailyTTL            time.Duration `mapstructure:"daily_ttl"`
	CategorySpecificTTL time.Duration `mapstructure:"category_specific_ttl"`
	DefaultTTL          time.Duration `mapstructure:"default_ttl"`
	MaxEntries          int           `mapstructure:"max_entries"`
	EvictBatch          int           `mapstructure:"evict_batch"`

	// MaintenanceInterval is the period of the background sweep; 0 disables it.
	MaintenanceInterval time.Duration `mapstructure:"maintenance_interval"`
}

// GoalsConfig holds the study targets.
type GoalsConfig struct {
	Daily    int     `mapstructure:"daily"`
	Weekly   int     `mapstructure:"weekly"`
	Monthly  int     `mapstructure:"monthly"`
	Accuracy float64 `mapstructure:"accuracy"`
}

// StatsConfig selects how statistics are computed.
type StatsConfig struct {
	DedupRule string `mapstructure:"dedup_rule"`
}

// DefaultConfig returns a Config populated with default values.
func DefaultConfig() Config {
	rc := review.DefaultConfig()
	cc := statcache.DefaultConfig()
	gc := stats.DefaultGoalConfig()
	return Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Review: ReviewConfig{
			IncorrectWeight:    rc.IncorrectWeight,
			DecayPerDay:        rc.DecayPerDay,
			MaxDecay:           rc.MaxDecay,
			MinScore:           rc.MinScore,
			ConsecutivePenalty: rc.ConsecutivePenalty,
			JournalBonus:       rc.CategoryBonus[answer.CategoryJournal],
			LedgerBonus:        rc.CategoryBonus[answer.CategoryLedger],
			TrialBalanceBonus:  rc.CategoryBonus[answer.CategoryTrialBalance],
			MasteryStreak:      rc.MasteryStreak,
			PriorityReviewAt:   rc.PriorityReviewAt,
			MaxCount:           rc.MaxCount,
			RecentHours:        int(rc.RecentWindow / time.Hour),
			HistoryRetention:   rc.HistoryRetention,
		},
		Cache: CacheConfig{
			OverallTTL:          cc.OverallTTL,
			CategoryTTL:         cc.CategoryTTL,
			GoalsTTL:            cc.GoalsTTL,
			DailyTTL:            cc.DailyTTL,
			CategorySpecificTTL: cc.CategorySpecificTTL,
			DefaultTTL:          cc.DefaultTTL,
			MaxEntries:          cc.MaxEntries,
			EvictBatch:          cc.EvictBatch,
			MaintenanceInterval: statcache.DefaultMaintenanceInterval,
		},
		Goals: GoalsConfig{
			Daily:    gc.Daily,
			Weekly:   gc.Weekly,
			Monthly:  gc.Monthly,
			Accuracy: gc.Accuracy,
		},
		Stats: StatsConfig{DedupRule: stats.AnyCorrect.String()},
	}
}

// Load reads the configuration. When path is empty, boki.yaml is looked up
// in the user config directory and the working directory and may be absent;
// an explicit path must exist. Environment variables override the file.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("boki")
		v.SetConfigType("yaml")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "boki"))
		}
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)

	v.SetDefault("review.incorrect_weight", d.Review.IncorrectWeight)
	v.SetDefault("review.decay_per_day", d.Review.DecayPerDay)
	v.SetDefault("review.max_decay", d.Review.MaxDecay)
	v.SetDefault("review.min_score", d.Review.MinScore)
	v.SetDefault("review.consecutive_penalty", d.Review.ConsecutivePenalty)
	v.SetDefault("review.journal_bonus", d.Review.JournalBonus)
	v.SetDefault("review.ledger_bonus", d.Review.LedgerBonus)
	v.SetDefault("review.trial_balance_bonus", d.Review.TrialBalanceBonus)
	v.SetDefault("review.mastery_streak", d.Review.MasteryStreak)
	v.SetDefault("review.priority_review_at", d.Review.PriorityReviewAt)
	v.SetDefault("review.max_count", d.Review.MaxCount)
	v.SetDefault("review.recent_hours", d.Review.RecentHours)
	v.SetDefault("review.history_retention", d.Review.HistoryRetention)

	v.SetDefault("cache.overall_ttl", d.Cache.OverallTTL)
	v.SetDefault("cache.category_ttl", d.Cache.CategoryTTL)
	v.SetDefault("cache.goals_ttl", d.Cache.GoalsTTL)
	v.SetDefault("cache.daily_ttl", d.Cache.DailyTTL)
	v.SetDefault("cache.category_specific_ttl", d.Cache.CategorySpecificTTL)
	v.SetDefault("cache.default_ttl", d.Cache.DefaultTTL)
	v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	v.SetDefault("cache.evict_batch", d.Cache.EvictBatch)
	v.SetDefault("cache.maintenance_interval", d.Cache.MaintenanceInterval)

	v.SetDefault("goals.daily", d.Goals.Daily)
	v.SetDefault("goals.weekly", d.Goals.Weekly)
	v.SetDefault("goals.monthly", d.Goals.Monthly)
	v.SetDefault("goals.accuracy", d.Goals.Accuracy)

	v.SetDefault("stats.dedup_rule", d.Stats.DedupRule)
}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if !logLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	if c.Review.MasteryStreak < 1 {
		return fmt.Errorf("review.mastery_streak must be at least 1, got %d", c.Review.MasteryStreak)
	}
	if c.Review.PriorityReviewAt < 1 {
		return fmt.Errorf("review.priority_review_at must be at least 1, got %d", c.Review.PriorityReviewAt)
	}
	if c.Review.MaxCount < 1 {
		return fmt.Errorf("review.max_count must be at least 1, got %d", c.Review.MaxCount)
	}
	if c.Review.RecentHours < 0 {
		return fmt.Errorf("review.recent_hours must not be negative, got %d", c.Review.RecentHours)
	}
	if c.Cache.MaxEntries < 1 || c.Cache.EvictBatch < 1 {
		return fmt.Errorf("cache.max_entries and cache.evict_batch must be positive")
	}
	for name, ttl := range map[string]time.Duration{
		"overall_ttl":           c.Cache.OverallTTL,
		"category_ttl":          c.Cache.CategoryTTL,
		"goals_ttl":             c.Cache.GoalsTTL,
		"daily_ttl":             c.Cache.DailyTTL,
		"category_specific_ttl": c.Cache.CategorySpecificTTL,
		"default_ttl":           c.Cache.DefaultTTL,
	} {
		if ttl <= 0 {
			return fmt.Errorf("cache.%s must be positive, got %s", name, ttl)
		}
	}
	if c.Cache.MaintenanceInterval < 0 {
		return fmt.Errorf("cache.maintenance_interval must not be negative, got %s", c.Cache.MaintenanceInterval)
	}
	if c.Goals.Daily < 0 || c.Goals.Weekly < 0 || c.Goals.Monthly < 0 {
		return fmt.Errorf("goals must not be negative")
	}
	if c.Goals.Accuracy < 0 || c.Goals.Accuracy > 1 {
		return fmt.Errorf("goals.accuracy must be between 0 and 1, got %g", c.Goals.Accuracy)
	}
	if _, err := stats.ParseDedupRule(c.Stats.DedupRule); err != nil {
		return fmt.Errorf("stats.dedup_rule: %w", err)
	}
	return nil
}

// ReviewEngine converts the review section for review.NewService.
func (c Config) ReviewEngine() review.Config {
	rc := review.DefaultConfig()
	rc.IncorrectWeight = c.Review.IncorrectWeight
	rc.DecayPerDay = c.Review.DecayPerDay
	rc.MaxDecay = c.Review.MaxDecay
	rc.MinScore = c.Review.MinScore
	rc.ConsecutivePenalty = c.Review.ConsecutivePenalty
	rc.CategoryBonus = map[answer.Category]float64{
		answer.CategoryJournal:      c.Review.JournalBonus,
		answer.CategoryLedger:       c.Review.LedgerBonus,
		answer.CategoryTrialBalance: c.Review.TrialBalanceBonus,
	}
	rc.MasteryStreak = c.Review.MasteryStreak
	rc.PriorityReviewAt = c.Review.PriorityReviewAt
	rc.MaxCount = c.Review.MaxCount
	rc.RecentWindow = time.Duration(c.Review.RecentHours) * time.Hour
	rc.HistoryRetention = c.Review.HistoryRetention
	return rc
}

// StatCache converts the cache section for statcache.New.
func (c Config) StatCache() statcache.Config {
	return statcache.Config{
		OverallTTL:          c.Cache.OverallTTL,
		CategoryTTL:         c.Cache.CategoryTTL,
		GoalsTTL:            c.Cache.GoalsTTL,
		DailyTTL:            c.Cache.DailyTTL,
		CategorySpecificTTL: c.Cache.CategorySpecificTTL,
		DefaultTTL:          c.Cache.DefaultTTL,
		MaxEntries:          c.Cache.MaxEntries,
		EvictBatch:          c.Cache.EvictBatch,
	}
}

// StudyGoals converts the goals section for stats.WithGoals.
func (c Config) StudyGoals() stats.GoalConfig {
	g := stats.DefaultGoalConfig()
	g.Daily = c.Goals.Daily
	g.Weekly = c.Goals.Weekly
	g.Monthly = c.Goals.Monthly
	g.Accuracy = c.Goals.Accuracy
	return g
}

// DedupRule returns the configured dedup rule, AnyCorrect when invalid.
func (c Config) DedupRule() stats.DedupRule {
	r, _ := stats.ParseDedupRule(c.Stats.DedupRule)
	return r
}

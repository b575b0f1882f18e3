package review

import (
	"fmt"
	"math"
	"time"

	"github.com/abhisek/boki/internal/answer"
)

const (
	// DefaultMasteryStreak is the number of consecutive correct answers that
	// removes a question from review.
	DefaultMasteryStreak = 2

	// DefaultPriorityReviewAt is the incorrect count at which an item is
	// promoted to priority review.
	DefaultPriorityReviewAt = 2

	// DefaultMaxCount is the review list size when none is given.
	DefaultMaxCount = 20

	// DefaultRecentWindow is how long an answered item is held back when
	// recently reviewed items are excluded.
	DefaultRecentWindow = 4 * time.Hour

	// MaxPriority is the upper bound of a priority score.
	MaxPriority = 100
)

// Config holds the priority weights and review thresholds.
type Config struct {
	IncorrectWeight    float64
	DecayPerDay        float64
	MaxDecay           float64
	MinScore           float64
	ConsecutivePenalty float64

	// CategoryBonus is added after decay and penalty. Categories without an
	// entry use the journal bonus.
	CategoryBonus map[answer.Category]float64

	MasteryStreak    int
	PriorityReviewAt int
	MaxCount         int
	RecentWindow     time.Duration

	HistoryRetention time.Duration
}

// DefaultConfig returns the standard weights.
func DefaultConfig() Config {
	return Config{
		IncorrectWeight:    20,
		DecayPerDay:        0.1,
		MaxDecay:           20,
		MinScore:           10,
		ConsecutivePenalty: 15,
		CategoryBonus: map[answer.Category]float64{
			answer.CategoryJournal:      5,
			answer.CategoryLedger:       3,
			answer.CategoryTrialBalance: 8,
		},
		MasteryStreak:    DefaultMasteryStreak,
		PriorityReviewAt: DefaultPriorityReviewAt,
		MaxCount:         DefaultMaxCount,
		RecentWindow:     DefaultRecentWindow,
		HistoryRetention: 365 * 24 * time.Hour,
	}
}

// withDefaults fills the thresholds left at zero. Weights are taken as
// given so a deployment can zero one out.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.CategoryBonus == nil {
		c.CategoryBonus = def.CategoryBonus
	}
	if c.MasteryStreak <= 0 {
		c.MasteryStreak = def.MasteryStreak
	}
	if c.PriorityReviewAt <= 0 {
		c.PriorityReviewAt = def.PriorityReviewAt
	}
	if c.MaxCount <= 0 {
		c.MaxCount = def.MaxCount
	}
	if c.RecentWindow <= 0 {
		c.RecentWindow = def.RecentWindow
	}
	if c.HistoryRetention <= 0 {
		c.HistoryRetention = def.HistoryRetention
	}
	return c
}

func (c Config) bonus(category answer.Category) float64 {
	if b, ok := c.CategoryBonus[category]; ok {
		return b
	}
	return c.CategoryBonus[answer.CategoryJournal]
}

// Score computes the priority of an item answered daysSince whole days ago.
func (c Config) Score(incorrect, consecutive, daysSince int, category answer.Category) int {
	base := float64(incorrect) * c.IncorrectWeight
	decay := math.Min(float64(daysSince)*c.DecayPerDay, c.MaxDecay)
	afterDecay := math.Max(base-decay, c.MinScore)
	afterPenalty := math.Max(afterDecay-float64(consecutive)*c.ConsecutivePenalty, 0)

	score := int(math.Round(afterPenalty + c.bonus(category)))
	return clamp(score, 0, MaxPriority)
}

// DaysSince returns the number of whole days between last and now, never
// negative.
func DaysSince(last, now time.Time) int {
	if last.IsZero() || !now.After(last) {
		return 0
	}
	return int(now.Sub(last) / (24 * time.Hour))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Level is a named priority band.
type Level string

const (
	LevelCritical Level = "critical"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
)

// Levels lists the bands from highest to lowest.
var Levels = []Level{LevelCritical, LevelHigh, LevelMedium, LevelLow}

// ParseLevel converts a level name.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelCritical, LevelHigh, LevelMedium, LevelLow:
		return Level(s), nil
	default:
		return "", fmt.Errorf("unknown priority level %q", s)
	}
}

// Range returns the inclusive score bounds of the level.
func (l Level) Range() (lo, hi int) {
	switch l {
	case LevelCritical:
		return 80, 100
	case LevelHigh:
		return 60, 79
	case LevelMedium:
		return 40, 59
	default:
		return 0, 39
	}
}

// Contains reports whether score falls in the level.
func (l Level) Contains(score int) bool {
	lo, hi := l.Range()
	return score >= lo && score <= hi
}

// LevelOf returns the band a score belongs to.
func LevelOf(score int) Level {
	for _, l := range Levels {
		if l.Contains(score) {
			return l
		}
	}
	return LevelLow
}

package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/boki/internal/app"
	"github.com/abhisek/boki/internal/review"
	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/stats"
	"github.com/abhisek/boki/internal/submission"
)

const testBank = `[
  {
    "id": "J001",
    "category": "journal",
    "title": "Cash sale",
    "text": "Sold goods for 1,000 in cash.",
    "explanation": "Cash increases, sales are recognised.",
    "difficulty": 1,
    "correct_answer": {"journalEntry": {"debit_account": "Cash", "debit_amount": 1000, "credit_account": "Sales", "credit_amount": 1000}}
  }
]`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_StudyFlow(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	db := filepath.Join(dir, "boki.db")
	bankPath := filepath.Join(dir, "bank.json")
	require.NoError(t, os.WriteFile(bankPath, []byte(testBank), 0o644))

	out, err := execute(t, "questions", "import", bankPath, "--db", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 questions.")

	out, err = execute(t, "submit", "--db", db, "--question", "J001",
		"--answer", `{"debit_account":"Cash","debit_amount":900,"credit_account":"Sales","credit_amount":900}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Incorrect")
	assert.Contains(t, out, "Added to the review list")

	out, err = execute(t, "review", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "J001")
	assert.Contains(t, out, "1 items")

	out, err = execute(t, "review", "weak", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Journal entries")

	out, err = execute(t, "stats", "overall", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Submissions")

	out, err = execute(t, "stats", "goals", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "1/10")

	out, err = execute(t, "stats", "cache", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Statistics cache")
	assert.Contains(t, out, "boki_statcache_misses_total")
	assert.Contains(t, out, "overall_stats")

	_, err = execute(t, "stats", "daily", "--db", db, "--days", "100000")
	assert.ErrorContains(t, err, "exceeds the maximum")

	_, err = execute(t, "reset", "--db", db)
	assert.ErrorContains(t, err, "--yes")

	out, err = execute(t, "reset", "--db", db, "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Learner data reset.")

	out, err = execute(t, "review", "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Review queue")
}

func TestCLI_Version(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "boki (devel)")
}

func TestRenderBatch(t *testing.T) {
	out := renderBatch(&submission.BatchResult{
		SessionID: "exam-1",
		Responses: []*submission.Response{
			{Category: "trial_balance", IsCorrect: true},
			{Category: "journal"},
		},
		Correct:  1,
		Score:    20,
		MaxScore: 24,
	})
	assert.Contains(t, out, "20 / 24")
	assert.Contains(t, out, "not passed")
	assert.Contains(t, out, "exam-1")
}

func TestRenderReviewItems_Empty(t *testing.T) {
	assert.Contains(t, renderReviewItems(nil), "No review items.")
}

func TestRenderWeakAreas(t *testing.T) {
	out := renderWeakAreas([]review.WeakArea{
		{Category: "trial_balance", ReviewCount: 3, AveragePriority: 72, Recommendation: review.RecommendIntensive},
	})
	assert.Contains(t, out, "Trial balance")
	assert.Contains(t, out, "intensive")
}

func TestRenderGoals(t *testing.T) {
	out := renderGoals(&stats.LearningGoals{
		Daily:    stats.Goal{Target: 10, Achieved: 4, Completion: 0.4},
		Weekly:   stats.Goal{Target: 50, Achieved: 50, Completion: 1},
		Monthly:  stats.Goal{Target: 200, Achieved: 12, Completion: 0.06},
		Accuracy: stats.AccuracyGoal{Target: 0.8, Current: 0.75, Achievement: stats.AchievementClose},
	})
	assert.Contains(t, out, "4/10")
	assert.Contains(t, out, "100%")
	assert.Contains(t, out, "75.0% of 80.0%")
	assert.Contains(t, out, "close")
}

func TestRenderCache(t *testing.T) {
	out := renderCache(&app.CacheReport{
		Info: statcache.Info{TotalEntries: 2, ValidEntries: 1, ExpiredEntries: 1, Hits: 3, Misses: 1, HitRate: 0.75,
			Keys: []string{"goals_stats", "overall_stats"}},
		Counters: map[string]float64{"boki_statcache_hits_total": 3, "boki_statcache_evictions_total": 0},
	})
	assert.Contains(t, out, "2 (1 valid, 1 expired)")
	assert.Contains(t, out, "75.0%")
	assert.Contains(t, out, "goals_stats, overall_stats")
	assert.Less(t, strings.Index(out, "boki_statcache_evictions_total"), strings.Index(out, "boki_statcache_hits_total"))
}

func TestRenderTrends(t *testing.T) {
	out := renderTrends(&stats.LearningTrends{
		Weekly:           []stats.PeriodProgress{{Period: "2026-W15", Submissions: 12, AccuracyRate: 0.5}},
		AccuracyTrend:    stats.AccuracyDeclining,
		SpeedTrend:       stats.SpeedStable,
		ConsistencyScore: 40,
		Recommendations:  []string{"Study a little every day."},
	})
	assert.Contains(t, out, "2026-W15")
	assert.Contains(t, out, "declining")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, "Study a little every day.")
}

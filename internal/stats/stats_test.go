package stats

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/review"
	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/store"
)

// Wednesday.
var testNow = time.Date(2026, 4, 15, 15, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

type fakeReviews struct {
	st *review.Statistics
}

func (f fakeReviews) Statistics(context.Context) (*review.Statistics, error) {
	return f.st, nil
}

type fixture struct {
	st    *store.Store
	clock *fakeClock
	cache *statcache.Cache
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "boki.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := &fakeClock{now: testNow}
	return &fixture{
		st:    st,
		clock: clock,
		cache: statcache.New(statcache.DefaultConfig(), statcache.WithClock(clock.Now)),
	}
}

func (f *fixture) aggregator(opts ...Option) *Aggregator {
	opts = append([]Option{WithClock(f.clock.Now), WithCache(f.cache)}, opts...)
	return NewAggregator(f.st.History(), f.st.Questions(), nil, opts...)
}

var keys = map[answer.Category]string{
	answer.CategoryJournal:      `{"journalEntry":{"debit_account":"Cash","debit_amount":100,"credit_account":"Sales","credit_amount":100}}`,
	answer.CategoryLedger:       `{"ledgerEntry":{"entries":[{"account":"Cash","amount":100}]}}`,
	answer.CategoryTrialBalance: `{"trialBalance":{"balances":{"Cash":100}}}`,
}

func (f *fixture) question(t *testing.T, id string, c answer.Category, difficulty int) {
	t.Helper()
	require.NoError(t, f.st.Questions().Save(context.Background(), store.QuestionRecord{
		ID:                id,
		Category:          string(c),
		Text:              "question " + id,
		Difficulty:        difficulty,
		CorrectAnswerJSON: keys[c],
	}))
}

type ans struct {
	q          string
	c          answer.Category
	difficulty int
	correct    bool
	at         time.Time
	ms         int64
	session    string
}

func (f *fixture) record(t *testing.T, answers ...ans) {
	t.Helper()
	for _, a := range answers {
		if a.c == "" {
			a.c = answer.CategoryJournal
		}
		if a.session == "" {
			a.session = "s1"
		}
		if a.at.IsZero() {
			a.at = testNow.Add(-time.Hour)
		}
		_, err := f.st.History().RecordAnswer(context.Background(), store.HistoryRecord{
			QuestionID:   a.q,
			Category:     a.c,
			Difficulty:   a.difficulty,
			SessionID:    a.session,
			SessionType:  store.SessionLearning,
			AnswerJSON:   "{}",
			IsCorrect:    a.correct,
			AnswerTimeMs: a.ms,
			AnsweredAt:   a.at,
		})
		require.NoError(t, err)
	}
}

func day(d int, hour int) time.Time {
	return time.Date(2026, 4, d, hour, 0, 0, 0, time.UTC)
}

// repeatedAnswers exercises both dedup rules: Q1 wrong then right, Q2 right,
// Q3 wrong twice, Q4 right then wrong.
func repeatedAnswers() []ans {
	return []ans{
		{q: "Q1", correct: false, at: day(14, 9), ms: 1000, session: "a"},
		{q: "Q1", correct: true, at: day(15, 9), ms: 3000, session: "b"},
		{q: "Q2", correct: true, at: day(15, 10), ms: 2000, session: "b"},
		{q: "Q3", correct: false, at: day(13, 9), ms: 4000, session: "c"},
		{q: "Q3", correct: false, at: day(15, 11), ms: 4000, session: "b"},
		{q: "Q4", correct: true, at: day(13, 10), ms: 1000, session: "c"},
		{q: "Q4", correct: false, at: day(15, 12), ms: 1000, session: "b"},
	}
}

func TestOverallStatistics_DedupRules(t *testing.T) {
	tests := []struct {
		rule      DedupRule
		correct   int
		incorrect int
	}{
		{AnyCorrect, 3, 1},
		{LatestAnswer, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.rule.String(), func(t *testing.T) {
			f := newFixture(t)
			for _, id := range []string{"Q1", "Q2", "Q3", "Q4", "Q5"} {
				f.question(t, id, answer.CategoryJournal, 2)
			}
			f.record(t, repeatedAnswers()...)

			got, err := f.aggregator(WithDedupRule(tt.rule)).GetOverallStatistics(context.Background())
			require.NoError(t, err)

			assert.Equal(t, 5, got.TotalQuestions)
			assert.Equal(t, 4, got.AnsweredQuestions)
			assert.Equal(t, tt.correct, got.CorrectAnswers)
			assert.Equal(t, tt.incorrect, got.IncorrectAnswers)
			assert.Equal(t, got.AnsweredQuestions, got.CorrectAnswers+got.IncorrectAnswers)
			assert.InDelta(t, float64(tt.correct)/4, got.AccuracyRate, 1e-9)
			assert.InDelta(t, 0.8, got.CompletionRate, 1e-9)

			assert.Equal(t, 7, got.TotalSubmissions)
			assert.Equal(t, 3, got.StudyDays)
			assert.Equal(t, 3, got.CurrentStreak)
			assert.Equal(t, 3, got.MaxStreak)
			assert.Equal(t, int64(16000), got.TotalStudyTimeMs)
			assert.InDelta(t, 16000.0/7, got.AverageStudyTimeMs, 1e-9)
			assert.True(t, got.FirstStudiedAt.Equal(day(13, 9)))
			assert.True(t, got.LastStudiedAt.Equal(day(15, 12)))
		})
	}
}

func TestParseDedupRule(t *testing.T) {
	for _, r := range []DedupRule{AnyCorrect, LatestAnswer} {
		got, err := ParseDedupRule(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	got, err := ParseDedupRule("")
	require.NoError(t, err)
	assert.Equal(t, AnyCorrect, got)

	_, err = ParseDedupRule("first")
	assert.Error(t, err)
}

func TestOverallStatistics_Empty(t *testing.T) {
	f := newFixture(t)
	got, err := f.aggregator().GetOverallStatistics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, got.AnsweredQuestions)
	assert.Zero(t, got.AccuracyRate)
	assert.Zero(t, got.CompletionRate)
	assert.Zero(t, got.CurrentStreak)
	assert.True(t, got.FirstStudiedAt.IsZero())
}

func TestOverallStatistics_ReviewCounts(t *testing.T) {
	f := newFixture(t)
	reviews := fakeReviews{st: &review.Statistics{NeedsReview: 3, PriorityReview: 2}}
	agg := NewAggregator(f.st.History(), f.st.Questions(), reviews, WithClock(f.clock.Now))

	got, err := agg.GetOverallStatistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, got.ReviewItems)
	assert.Equal(t, 2, got.PriorityReviewItems)
}

func TestStreaks(t *testing.T) {
	dates := []time.Time{day(1, 0), day(2, 0), day(3, 0), day(7, 0), day(9, 0), day(10, 0)}
	tests := []struct {
		name    string
		dates   []time.Time
		today   time.Time
		current int
		longest int
	}{
		{"empty", nil, day(10, 0), 0, 0},
		{"ending today", dates, day(10, 0), 2, 3},
		{"no answer today", dates, day(11, 0), 0, 3},
		{"single day", []time.Time{day(5, 0)}, day(5, 0), 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, longest := streaks(tt.dates, tt.today)
			assert.Equal(t, tt.current, current)
			assert.Equal(t, tt.longest, longest)
		})
	}
}

func TestBucketOf(t *testing.T) {
	assert.Equal(t, DifficultyEasy, BucketOf(0))
	assert.Equal(t, DifficultyEasy, BucketOf(2))
	assert.Equal(t, DifficultyMedium, BucketOf(3))
	assert.Equal(t, DifficultyHard, BucketOf(4))
	assert.Equal(t, DifficultyHard, BucketOf(5))
}

func TestCategoryStatistics(t *testing.T) {
	f := newFixture(t)
	f.question(t, "J1", answer.CategoryJournal, 1)
	f.question(t, "J2", answer.CategoryJournal, 3)
	f.question(t, "J3", answer.CategoryJournal, 5)
	f.question(t, "J4", answer.CategoryJournal, 2)
	f.question(t, "L1", answer.CategoryLedger, 3)
	f.record(t,
		ans{q: "J1", difficulty: 1, correct: true, ms: 1000},
		ans{q: "J2", difficulty: 3, correct: false, ms: 2000},
		ans{q: "J2", difficulty: 3, correct: true, ms: 2000},
		ans{q: "J3", difficulty: 5, correct: false, ms: 5000},
		ans{q: "L1", c: answer.CategoryLedger, difficulty: 3, correct: true, ms: 4000},
	)

	reviews := fakeReviews{st: &review.Statistics{ByCategory: []review.CategoryBreakdown{
		{Category: answer.CategoryJournal, Total: 2},
	}}}
	agg := NewAggregator(f.st.History(), f.st.Questions(), reviews, WithClock(f.clock.Now), WithCache(f.cache))

	all, err := agg.GetCategoryStatistics(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, answer.CategoryJournal, all[0].Category)
	assert.Equal(t, answer.CategoryLedger, all[1].Category)
	assert.Equal(t, answer.CategoryTrialBalance, all[2].Category)

	j := all[0]
	assert.Equal(t, 4, j.TotalQuestions)
	assert.Equal(t, 3, j.AnsweredQuestions)
	assert.Equal(t, 2, j.CorrectAnswers)
	assert.Equal(t, 1, j.IncorrectAnswers)
	assert.InDelta(t, 0.75, j.CompletionRate, 1e-9)
	assert.InDelta(t, 2500.0, j.AverageAnswerTimeMs, 1e-9)
	assert.Equal(t, 2, j.ReviewItemsCount)
	assert.Equal(t, 2, j.MasteredCount)
	assert.Equal(t, DifficultyStats{Answered: 1, Correct: 1, AccuracyRate: 1}, j.ByDifficulty[DifficultyEasy])
	assert.Equal(t, DifficultyStats{Answered: 1, Correct: 1, AccuracyRate: 1}, j.ByDifficulty[DifficultyMedium])
	assert.Equal(t, DifficultyStats{Answered: 1}, j.ByDifficulty[DifficultyHard])

	tb := all[2]
	assert.Zero(t, tb.TotalQuestions)
	assert.Zero(t, tb.AccuracyRate)
	assert.Zero(t, tb.CompletionRate)

	one, err := agg.GetCategoryStatisticsFor(context.Background(), answer.CategoryLedger)
	require.NoError(t, err)
	assert.Equal(t, 1, one.CorrectAnswers)
	assert.Equal(t, 0, one.ReviewItemsCount)
	_, ok := statcache.Lookup[*CategoryStatistics](f.cache, statcache.CategoryKey(answer.CategoryLedger))
	assert.True(t, ok)
}

func TestCategoryStatistics_MasteredCountIgnoresRule(t *testing.T) {
	f := newFixture(t)
	f.question(t, "Q4", answer.CategoryJournal, 2)
	f.record(t,
		ans{q: "Q4", correct: true, at: day(14, 9)},
		ans{q: "Q4", correct: false, at: day(15, 9)},
	)

	got, err := f.aggregator(WithDedupRule(LatestAnswer)).GetCategoryStatisticsFor(context.Background(), answer.CategoryJournal)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CorrectAnswers)
	assert.Equal(t, 1, got.MasteredCount)
}

func TestGetCategoryStatisticsFor_UnknownCategory(t *testing.T) {
	f := newFixture(t)
	_, err := f.aggregator().GetCategoryStatisticsFor(context.Background(), answer.Category("payroll"))
	assert.Error(t, err)
}

func TestDailyStatistics(t *testing.T) {
	f := newFixture(t)
	f.record(t,
		ans{q: "Q1", correct: false, at: day(13, 8), ms: 1000, session: "a"},
		ans{q: "Q1", correct: true, at: day(13, 9), ms: 1000, session: "a"},
		ans{q: "L1", c: answer.CategoryLedger, correct: true, at: day(15, 8), ms: 3000, session: "b"},
		ans{q: "Q2", correct: false, at: day(15, 9), ms: 2000, session: "c"},
		// Outside the window.
		ans{q: "Q9", correct: true, at: day(12, 23), ms: 1000, session: "z"},
	)

	got, err := f.aggregator().GetDailyStatistics(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "2026-04-13", got[0].Date)
	assert.Equal(t, 2, got[0].Submissions)
	assert.Equal(t, 1, got[0].CorrectSubmissions)
	assert.Equal(t, 1, got[0].AnsweredQuestions)
	assert.Equal(t, 1, got[0].CorrectAnswers)
	assert.Equal(t, int64(2000), got[0].StudyTimeMs)
	assert.Equal(t, 1, got[0].Sessions)

	assert.Equal(t, DailyStatistics{Date: "2026-04-14", ByCategory: map[answer.Category]DailyCategory{}}, got[1])

	assert.Equal(t, "2026-04-15", got[2].Date)
	assert.Equal(t, 2, got[2].Submissions)
	assert.Equal(t, 2, got[2].AnsweredQuestions)
	assert.Equal(t, 1, got[2].CorrectAnswers)
	assert.InDelta(t, 0.5, got[2].AccuracyRate, 1e-9)
	assert.Equal(t, 2, got[2].Sessions)
	assert.Equal(t, DailyCategory{Answered: 1, Correct: 1}, got[2].ByCategory[answer.CategoryLedger])
	assert.Equal(t, DailyCategory{Answered: 1}, got[2].ByCategory[answer.CategoryJournal])
}

func TestDailyStatistics_DefaultWindow(t *testing.T) {
	f := newFixture(t)
	got, err := f.aggregator().GetDailyStatistics(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultDailyWindow)
	assert.Equal(t, "2026-04-15", got[len(got)-1].Date)
}

func TestDailyStatistics_WindowLimit(t *testing.T) {
	f := newFixture(t)
	agg := f.aggregator()

	got, err := agg.GetDailyStatistics(context.Background(), MaxDailyWindow)
	require.NoError(t, err)
	assert.Len(t, got, MaxDailyWindow)

	for _, days := range []int{MaxDailyWindow + 1, 1 << 50} {
		_, err := agg.GetDailyStatistics(context.Background(), days)
		assert.ErrorContains(t, err, "exceeds the maximum", "days=%d", days)
	}
	assert.Equal(t, []string{statcache.DailyKey(MaxDailyWindow)}, f.cache.Info().Keys)
}

func TestLearningGoals(t *testing.T) {
	f := newFixture(t)
	f.question(t, "Q1", answer.CategoryJournal, 2)
	var answers []ans
	// Four today, three earlier this week (week began Sunday the 12th),
	// two earlier this month, one last month.
	for i := 0; i < 4; i++ {
		answers = append(answers, ans{q: "Q1", correct: true, at: day(15, 8+i)})
	}
	for i := 0; i < 3; i++ {
		answers = append(answers, ans{q: "Q1", correct: true, at: day(12, 8+i)})
	}
	answers = append(answers,
		ans{q: "Q1", correct: true, at: day(11, 23)},
		ans{q: "Q1", correct: true, at: day(2, 8)},
		ans{q: "Q1", correct: true, at: time.Date(2026, 3, 31, 8, 0, 0, 0, time.UTC)},
	)
	f.record(t, answers...)

	got, err := f.aggregator().GetLearningGoals(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Goal{Target: 10, Achieved: 4, Completion: 0.4}, got.Daily)
	assert.Equal(t, Goal{Target: 50, Achieved: 7, Completion: 0.14}, got.Weekly)
	assert.Equal(t, 9, got.Monthly.Achieved)
	assert.InDelta(t, 0.045, got.Monthly.Completion, 1e-9)
	assert.Equal(t, AchievementAchieved, got.Accuracy.Achievement)
	assert.InDelta(t, 1.0, got.Accuracy.Current, 1e-9)
}

func TestGoalCompletionCapped(t *testing.T) {
	assert.Equal(t, Goal{Target: 10, Achieved: 25, Completion: 1}, goal(10, 25))
	assert.Equal(t, Goal{Target: 0, Achieved: 3, Completion: 1}, goal(0, 3))
}

func TestAccuracyGoal(t *testing.T) {
	a := NewAggregator(nil, nil, nil)
	tests := []struct {
		current float64
		want    Achievement
	}{
		{0.95, AchievementAchieved},
		{0.8, AchievementAchieved},
		{0.75, AchievementClose},
		{0.7, AchievementClose},
		{0.69, AchievementNeedsImprovement},
		{0, AchievementNeedsImprovement},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, a.accuracyGoal(tt.current).Achievement, "current=%v", tt.current)
	}
}

func TestCachedUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.question(t, "Q1", answer.CategoryJournal, 2)
	f.record(t, ans{q: "Q1", correct: false})
	agg := f.aggregator()

	first, err := agg.GetOverallStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalSubmissions)

	f.record(t, ans{q: "Q1", correct: true})
	again, err := agg.GetOverallStatistics(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again, "served from cache")

	f.cache.InvalidateOnAnswerSubmit()
	fresh, err := agg.GetOverallStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalSubmissions)
	assert.Equal(t, 1, fresh.CorrectAnswers)
}

// stallingHistory holds the first Answers call after reading, until
// release is closed.
type stallingHistory struct {
	store.HistoryRepo
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (h *stallingHistory) Answers(ctx context.Context, filter store.HistoryFilter) ([]store.AnswerRow, error) {
	rows, err := h.HistoryRepo.Answers(ctx, filter)
	h.once.Do(func() {
		close(h.entered)
		<-h.release
	})
	return rows, err
}

func TestInvalidationDuringComputeIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.question(t, "Q1", answer.CategoryJournal, 2)
	f.question(t, "Q2", answer.CategoryJournal, 2)
	f.record(t, ans{q: "Q1", correct: true})

	hist := &stallingHistory{
		HistoryRepo: f.st.History(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	agg := NewAggregator(hist, f.st.Questions(), nil, WithClock(f.clock.Now), WithCache(f.cache))

	stale := make(chan *OverallStatistics, 1)
	go func() {
		st, err := agg.GetOverallStatistics(ctx)
		assert.NoError(t, err)
		stale <- st
	}()
	<-hist.entered

	f.record(t, ans{q: "Q2", correct: true})
	f.cache.InvalidateOnAnswerSubmit()

	// Does not join the computation that started before the write.
	fresh, err := agg.GetOverallStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalSubmissions)

	close(hist.release)
	old := <-stale
	require.NotNil(t, old)
	assert.Equal(t, 1, old.TotalSubmissions)

	again, err := agg.GetOverallStatistics(ctx)
	require.NoError(t, err)
	assert.Same(t, fresh, again)
	assert.Equal(t, 2, again.TotalSubmissions)
}

func TestInvalidationDuringComputeWithoutWaiter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.question(t, "Q1", answer.CategoryJournal, 2)
	f.question(t, "Q2", answer.CategoryJournal, 2)
	f.record(t, ans{q: "Q1", correct: true})

	hist := &stallingHistory{
		HistoryRepo: f.st.History(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	agg := NewAggregator(hist, f.st.Questions(), nil, WithClock(f.clock.Now), WithCache(f.cache))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := agg.GetOverallStatistics(ctx)
		assert.NoError(t, err)
	}()
	<-hist.entered
	f.record(t, ans{q: "Q2", correct: true})
	f.cache.InvalidateOnAnswerSubmit()
	close(hist.release)
	<-done

	got, err := agg.GetOverallStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalSubmissions)
}

func TestConcurrentCallsShareResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.record(t, repeatedAnswers()...)
	agg := f.aggregator()

	var wg sync.WaitGroup
	results := make([]*OverallStatistics, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := agg.GetOverallStatistics(ctx)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 7, r.TotalSubmissions)
	}
}

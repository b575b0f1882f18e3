package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/review"
	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/store"
)

// GetOverallStatistics returns the totals over the whole history.
func (a *Aggregator) GetOverallStatistics(ctx context.Context) (*OverallStatistics, error) {
	return cached(ctx, a, statcache.KeyOverall, a.computeOverall)
}

func (a *Aggregator) computeOverall(ctx context.Context) (*OverallStatistics, error) {
	counts, err := a.questions.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	agg, err := a.history.Aggregate(ctx, store.HistoryFilter{})
	if err != nil {
		return nil, err
	}
	rows, err := a.history.Answers(ctx, store.HistoryFilter{})
	if err != nil {
		return nil, err
	}
	days, err := a.studyDates(ctx)
	if err != nil {
		return nil, err
	}
	rs, err := a.reviewStats(ctx)
	if err != nil {
		return nil, err
	}

	t := dedupe(rows, a.rule)
	total := 0
	for _, n := range counts {
		total += n
	}
	current, longest := streaks(days, a.today())

	return &OverallStatistics{
		TotalQuestions:      total,
		AnsweredQuestions:   t.answered,
		CorrectAnswers:      t.correct,
		IncorrectAnswers:    t.incorrect(),
		AccuracyRate:        ratio(t.correct, t.answered),
		CompletionRate:      ratio(t.answered, total),
		TotalSubmissions:    agg.Submissions,
		StudyDays:           agg.StudyDays,
		CurrentStreak:       current,
		MaxStreak:           longest,
		TotalStudyTimeMs:    agg.TotalTimeMs,
		AverageStudyTimeMs:  avgTime(agg.TotalTimeMs, agg.Submissions),
		ReviewItems:         rs.NeedsReview + rs.PriorityReview,
		PriorityReviewItems: rs.PriorityReview,
		FirstStudiedAt:      agg.FirstAnsweredAt,
		LastStudiedAt:       agg.LastAnsweredAt,
	}, nil
}

// GetCategoryStatistics returns statistics for every category in exam order.
func (a *Aggregator) GetCategoryStatistics(ctx context.Context) ([]CategoryStatistics, error) {
	return cached(ctx, a, statcache.KeyCategory, func(ctx context.Context) ([]CategoryStatistics, error) {
		counts, err := a.questions.CountByCategory(ctx)
		if err != nil {
			return nil, fmt.Errorf("count questions: %w", err)
		}
		rs, err := a.reviewStats(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]CategoryStatistics, 0, len(answer.Categories))
		for _, c := range answer.Categories {
			cs, err := a.computeCategory(ctx, c, counts[c], rs)
			if err != nil {
				return nil, err
			}
			out = append(out, *cs)
		}
		return out, nil
	})
}

// GetCategoryStatisticsFor returns statistics for one category.
func (a *Aggregator) GetCategoryStatisticsFor(ctx context.Context, c answer.Category) (*CategoryStatistics, error) {
	if _, err := answer.ParseCategory(string(c)); err != nil {
		return nil, err
	}
	return cached(ctx, a, statcache.CategoryKey(c), func(ctx context.Context) (*CategoryStatistics, error) {
		counts, err := a.questions.CountByCategory(ctx)
		if err != nil {
			return nil, fmt.Errorf("count questions: %w", err)
		}
		rs, err := a.reviewStats(ctx)
		if err != nil {
			return nil, err
		}
		return a.computeCategory(ctx, c, counts[c], rs)
	})
}

func (a *Aggregator) computeCategory(ctx context.Context, c answer.Category, total int, rs *review.Statistics) (*CategoryStatistics, error) {
	filter := store.HistoryFilter{Category: c}
	rows, err := a.history.Answers(ctx, filter)
	if err != nil {
		return nil, err
	}
	agg, err := a.history.Aggregate(ctx, filter)
	if err != nil {
		return nil, err
	}

	t := dedupe(rows, a.rule)
	ever := dedupe(rows, AnyCorrect)

	difficulty := make(map[string]int, len(t.questions))
	for _, r := range rows {
		difficulty[r.QuestionID] = r.Difficulty
	}
	buckets := make(map[DifficultyLevel]DifficultyStats, len(DifficultyLevels))
	for _, lvl := range DifficultyLevels {
		buckets[lvl] = DifficultyStats{}
	}
	for id, ok := range t.questions {
		lvl := BucketOf(difficulty[id])
		b := buckets[lvl]
		b.Answered++
		if ok {
			b.Correct++
		}
		buckets[lvl] = b
	}
	for lvl, b := range buckets {
		b.AccuracyRate = ratio(b.Correct, b.Answered)
		buckets[lvl] = b
	}

	return &CategoryStatistics{
		Category:            c,
		TotalQuestions:      total,
		AnsweredQuestions:   t.answered,
		CorrectAnswers:      t.correct,
		IncorrectAnswers:    t.incorrect(),
		AccuracyRate:        ratio(t.correct, t.answered),
		CompletionRate:      ratio(t.answered, total),
		AverageAnswerTimeMs: avgTime(agg.TotalTimeMs, agg.Submissions),
		ByDifficulty:        buckets,
		ReviewItemsCount:    rs.Category(c).Total,
		MasteredCount:       ever.correct,
		LastStudiedAt:       agg.LastAnsweredAt,
	}, nil
}

func avgTime(totalMs int64, n int) float64 {
	if n == 0 {
		return 0
	}
	return float64(totalMs) / float64(n)
}

// studyDates returns the distinct UTC dates with at least one answer,
// oldest first.
func (a *Aggregator) studyDates(ctx context.Context) ([]time.Time, error) {
	daily, err := a.history.DailyAggregates(ctx, store.HistoryFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(daily))
	for _, d := range daily {
		t, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			return nil, fmt.Errorf("parse study date %q: %w", d.Date, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// streaks returns the run of consecutive study days ending today and the
// longest run overall. dates must be distinct and sorted ascending.
func streaks(dates []time.Time, today time.Time) (current, longest int) {
	run := 0
	for i, d := range dates {
		if i > 0 && d.Sub(dates[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		longest = max(longest, run)
	}

	expected := today
	for i := len(dates) - 1; i >= 0; i-- {
		if !dates[i].Equal(expected) {
			break
		}
		current++
		expected = expected.AddDate(0, 0, -1)
	}
	return current, longest
}

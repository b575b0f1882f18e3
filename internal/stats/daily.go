package stats

import (
	"context"
	"fmt"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/store"
)

const (
	// DefaultDailyWindow is the number of days returned when none is given.
	DefaultDailyWindow = 7
	// MaxDailyWindow is the longest window GetDailyStatistics accepts.
	MaxDailyWindow = 366
)

// GetDailyStatistics returns one row per UTC day for the last days days,
// ending today and oldest first. Days without answers are zero-filled.
func (a *Aggregator) GetDailyStatistics(ctx context.Context, days int) ([]DailyStatistics, error) {
	if days <= 0 {
		days = DefaultDailyWindow
	}
	if days > MaxDailyWindow {
		return nil, fmt.Errorf("daily window of %d days exceeds the maximum of %d", days, MaxDailyWindow)
	}
	return cached(ctx, a, statcache.DailyKey(days), func(ctx context.Context) ([]DailyStatistics, error) {
		return a.computeDaily(ctx, days)
	})
}

func (a *Aggregator) computeDaily(ctx context.Context, days int) ([]DailyStatistics, error) {
	today := a.today()
	since := today.AddDate(0, 0, -(days - 1))
	filter := store.HistoryFilter{Since: since}

	raw, err := a.history.DailyAggregates(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows, err := a.history.Answers(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]DailyStatistics, days)
	index := make(map[string]int, days)
	for i := range out {
		date := since.AddDate(0, 0, i).Format(dateLayout)
		out[i] = DailyStatistics{Date: date, ByCategory: make(map[answer.Category]DailyCategory)}
		index[date] = i
	}

	for _, d := range raw {
		i, ok := index[d.Date]
		if !ok {
			continue
		}
		out[i].Submissions = d.Submissions
		out[i].CorrectSubmissions = d.CorrectSubmissions
		out[i].StudyTimeMs = d.TotalTimeMs
		out[i].Sessions = d.Sessions
	}

	byDay := make(map[string][]store.AnswerRow)
	for _, r := range rows {
		date := r.AnsweredAt.UTC().Format(dateLayout)
		byDay[date] = append(byDay[date], r)
	}
	for date, dayRows := range byDay {
		i, ok := index[date]
		if !ok {
			continue
		}
		t := dedupe(dayRows, a.rule)
		out[i].AnsweredQuestions = t.answered
		out[i].CorrectAnswers = t.correct
		out[i].AccuracyRate = ratio(t.correct, t.answered)

		byCat := make(map[answer.Category][]store.AnswerRow)
		for _, r := range dayRows {
			byCat[r.Category] = append(byCat[r.Category], r)
		}
		for c, catRows := range byCat {
			ct := dedupe(catRows, a.rule)
			out[i].ByCategory[c] = DailyCategory{Answered: ct.answered, Correct: ct.correct}
		}
	}
	return out, nil
}

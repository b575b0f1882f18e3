package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/store"
)

const (
	trendWeeks      = 8
	trendMonths     = 6
	consistencyDays = 30
	accuracyDelta   = 0.05
	speedDeltaRatio = 0.10
	lowConsistency  = 50
)

// GetLearningTrends reports weekly and monthly progress with the direction
// of accuracy and speed over the last two weeks.
func (a *Aggregator) GetLearningTrends(ctx context.Context) (*LearningTrends, error) {
	return cached(ctx, a, statcache.KeyTrends, a.computeTrends)
}

func (a *Aggregator) computeTrends(ctx context.Context) (*LearningTrends, error) {
	today := a.today()
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(trendMonths - 1), 0)
	weekStart := isoWeekStart(today).AddDate(0, 0, -7*(trendWeeks-1))
	since := monthStart
	if weekStart.Before(since) {
		since = weekStart
	}

	rows, err := a.history.Answers(ctx, store.HistoryFilter{Since: since})
	if err != nil {
		return nil, err
	}

	var weekRows, monthRows []store.AnswerRow
	for _, r := range rows {
		if !r.AnsweredAt.Before(weekStart) {
			weekRows = append(weekRows, r)
		}
		if !r.AnsweredAt.Before(monthStart) {
			monthRows = append(monthRows, r)
		}
	}

	weekly := progressBy(weekRows, weekLabel)
	monthly := progressBy(monthRows, func(t time.Time) string { return t.UTC().Format("2006-01") })

	daily, err := a.GetDailyStatistics(ctx, consistencyDays)
	if err != nil {
		return nil, err
	}

	tr := &LearningTrends{
		Weekly:           weekly,
		Monthly:          monthly,
		AccuracyTrend:    accuracyTrend(weekly),
		SpeedTrend:       speedTrend(weekly),
		ConsistencyScore: consistencyScore(daily),
	}
	tr.Recommendations = recommendations(tr)
	return tr, nil
}

// isoWeekStart returns the Monday that starts t's ISO week.
func isoWeekStart(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func weekLabel(t time.Time) string {
	y, w := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", y, w)
}

// progressBy groups rows by label, keeping the order in which labels first
// appear. rows are in submission order so labels come out oldest first.
func progressBy(rows []store.AnswerRow, label func(time.Time) string) []PeriodProgress {
	var out []PeriodProgress
	index := make(map[string]int)
	days := make(map[string]map[string]bool)
	timeMs := make(map[string]int64)

	for _, r := range rows {
		l := label(r.AnsweredAt)
		i, ok := index[l]
		if !ok {
			i = len(out)
			index[l] = i
			out = append(out, PeriodProgress{Period: l})
			days[l] = make(map[string]bool)
		}
		out[i].Submissions++
		if r.IsCorrect {
			out[i].CorrectSubmissions++
		}
		timeMs[l] += r.AnswerTimeMs
		days[l][r.AnsweredAt.UTC().Format(dateLayout)] = true
	}
	for i := range out {
		p := &out[i]
		p.AccuracyRate = ratio(p.CorrectSubmissions, p.Submissions)
		p.AverageTimeMs = avgTime(timeMs[p.Period], p.Submissions)
		p.StudyDays = len(days[p.Period])
	}
	return out
}

// accuracyTrend compares the last two weeks with data.
func accuracyTrend(weekly []PeriodProgress) AccuracyTrend {
	if len(weekly) < 2 {
		return AccuracyStable
	}
	prev, last := weekly[len(weekly)-2], weekly[len(weekly)-1]
	diff := last.AccuracyRate - prev.AccuracyRate
	switch {
	case diff > accuracyDelta:
		return AccuracyImproving
	case diff < -accuracyDelta:
		return AccuracyDeclining
	default:
		return AccuracyStable
	}
}

// speedTrend compares average answer time of the last two weeks with data.
func speedTrend(weekly []PeriodProgress) SpeedTrend {
	if len(weekly) < 2 {
		return SpeedStable
	}
	prev, last := weekly[len(weekly)-2], weekly[len(weekly)-1]
	if prev.AverageTimeMs == 0 {
		return SpeedStable
	}
	change := (last.AverageTimeMs - prev.AverageTimeMs) / prev.AverageTimeMs
	switch {
	case change < -speedDeltaRatio:
		return SpeedFaster
	case change > speedDeltaRatio:
		return SpeedSlower
	default:
		return SpeedStable
	}
}

func consistencyScore(daily []DailyStatistics) int {
	if len(daily) == 0 {
		return 0
	}
	studied := 0
	for _, d := range daily {
		if d.Submissions > 0 {
			studied++
		}
	}
	return int(math.Round(float64(studied) / float64(len(daily)) * 100))
}

func recommendations(tr *LearningTrends) []string {
	var out []string
	if tr.AccuracyTrend == AccuracyDeclining {
		out = append(out, "Accuracy is dropping. Work through the review list before new questions.")
	}
	if tr.SpeedTrend == SpeedSlower {
		out = append(out, "Answers are getting slower. Practice journal entries against the clock.")
	}
	if tr.ConsistencyScore < lowConsistency {
		out = append(out, "Study a little every day to build a steady habit.")
	}
	if len(out) == 0 {
		out = append(out, "Progress is on track. Keep the current pace.")
	}
	return out
}

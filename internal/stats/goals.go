package stats

import (
	"context"
	"time"

	"github.com/abhisek/boki/internal/statcache"
	"github.com/abhisek/boki/internal/store"
)

// GetLearningGoals returns progress toward the submission and accuracy
// targets. Weeks start on Sunday.
func (a *Aggregator) GetLearningGoals(ctx context.Context) (*LearningGoals, error) {
	return cached(ctx, a, statcache.KeyGoals, a.computeGoals)
}

func (a *Aggregator) computeGoals(ctx context.Context) (*LearningGoals, error) {
	today := a.today()
	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	submissionsSince := func(since time.Time) (int, error) {
		agg, err := a.history.Aggregate(ctx, store.HistoryFilter{Since: since})
		if err != nil {
			return 0, err
		}
		return agg.Submissions, nil
	}

	daily, err := submissionsSince(today)
	if err != nil {
		return nil, err
	}
	weekly, err := submissionsSince(weekStart)
	if err != nil {
		return nil, err
	}
	monthly, err := submissionsSince(monthStart)
	if err != nil {
		return nil, err
	}

	overall, err := a.GetOverallStatistics(ctx)
	if err != nil {
		return nil, err
	}

	return &LearningGoals{
		Daily:    goal(a.goals.Daily, daily),
		Weekly:   goal(a.goals.Weekly, weekly),
		Monthly:  goal(a.goals.Monthly, monthly),
		Accuracy: a.accuracyGoal(overall.AccuracyRate),
	}, nil
}

func goal(target, achieved int) Goal {
	g := Goal{Target: target, Achieved: achieved}
	if target > 0 {
		g.Completion = min(float64(achieved)/float64(target), 1)
	} else {
		g.Completion = 1
	}
	return g
}

// epsilon absorbs float error in target arithmetic such as 0.8-0.1.
const epsilon = 1e-9

func (a *Aggregator) accuracyGoal(current float64) AccuracyGoal {
	g := AccuracyGoal{Target: a.goals.Accuracy, Current: current}
	switch {
	case current >= a.goals.Accuracy-epsilon:
		g.Achievement = AchievementAchieved
	case current >= a.goals.Accuracy-a.goals.CloseMargin-epsilon:
		g.Achievement = AchievementClose
	default:
		g.Achievement = AchievementNeedsImprovement
	}
	return g
}

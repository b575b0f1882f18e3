package stats

import (
	"time"

	"github.com/abhisek/boki/internal/answer"
)

// OverallStatistics summarizes all recorded answers. Answered, correct and
// incorrect counts are per unique question.
type OverallStatistics struct {
	TotalQuestions    int
	AnsweredQuestions int
	CorrectAnswers    int
	IncorrectAnswers  int
	AccuracyRate      float64
	CompletionRate    float64

	TotalSubmissions   int
	StudyDays          int
	CurrentStreak      int
	MaxStreak          int
	TotalStudyTimeMs   int64
	AverageStudyTimeMs float64 // per submission

	ReviewItems         int
	PriorityReviewItems int

	FirstStudiedAt time.Time
	LastStudiedAt  time.Time
}

// DifficultyLevel is a coarse difficulty bucket.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// DifficultyLevels lists the buckets from easiest.
var DifficultyLevels = []DifficultyLevel{DifficultyEasy, DifficultyMedium, DifficultyHard}

// BucketOf maps a question difficulty to its bucket.
func BucketOf(difficulty int) DifficultyLevel {
	switch {
	case difficulty <= 2:
		return DifficultyEasy
	case difficulty == 3:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// DifficultyStats counts unique answered and correct questions in a bucket.
type DifficultyStats struct {
	Answered     int
	Correct      int
	AccuracyRate float64
}

// CategoryStatistics summarizes the answers of one category.
type CategoryStatistics struct {
	Category          answer.Category
	TotalQuestions    int
	AnsweredQuestions int
	CorrectAnswers    int
	IncorrectAnswers  int
	AccuracyRate      float64
	CompletionRate    float64

	AverageAnswerTimeMs float64
	ByDifficulty        map[DifficultyLevel]DifficultyStats
	ReviewItemsCount    int
	// MasteredCount is the number of questions ever answered correctly.
	MasteredCount int
	LastStudiedAt time.Time
}

// DailyCategory is the per-category slice of a day.
type DailyCategory struct {
	Answered int
	Correct  int
}

// DailyStatistics summarizes one UTC calendar day.
type DailyStatistics struct {
	Date               string // YYYY-MM-DD
	Submissions        int
	CorrectSubmissions int
	AnsweredQuestions  int
	CorrectAnswers     int
	AccuracyRate       float64
	StudyTimeMs        int64
	Sessions           int
	ByCategory         map[answer.Category]DailyCategory
}

// Goal tracks submissions against a target for a period.
type Goal struct {
	Target     int
	Achieved   int
	Completion float64 // capped at 1
}

// Achievement grades current accuracy against its target.
type Achievement string

const (
	AchievementAchieved         Achievement = "achieved"
	AchievementClose            Achievement = "close"
	AchievementNeedsImprovement Achievement = "needs_improvement"
)

// AccuracyGoal compares overall accuracy with its target.
type AccuracyGoal struct {
	Target      float64
	Current     float64
	Achievement Achievement
}

// LearningGoals is the progress toward the study targets.
type LearningGoals struct {
	Daily    Goal
	Weekly   Goal
	Monthly  Goal
	Accuracy AccuracyGoal
}

// PeriodProgress summarizes the submissions of one week or month.
type PeriodProgress struct {
	Period             string // YYYY-Www or YYYY-MM
	Submissions        int
	CorrectSubmissions int
	AccuracyRate       float64
	AverageTimeMs      float64
	StudyDays          int
}

// AccuracyTrend is the direction of weekly accuracy.
type AccuracyTrend string

const (
	AccuracyImproving AccuracyTrend = "improving"
	AccuracyStable    AccuracyTrend = "stable"
	AccuracyDeclining AccuracyTrend = "declining"
)

// SpeedTrend is the direction of weekly answer time.
type SpeedTrend string

const (
	SpeedFaster SpeedTrend = "faster"
	SpeedStable SpeedTrend = "stable"
	SpeedSlower SpeedTrend = "slower"
)

// LearningTrends describes how study habits are changing.
type LearningTrends struct {
	Weekly           []PeriodProgress
	Monthly          []PeriodProgress
	AccuracyTrend    AccuracyTrend
	SpeedTrend       SpeedTrend
	ConsistencyScore int // percent of the last 30 days with an answer
	Recommendations  []string
}

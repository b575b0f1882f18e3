package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/boki/internal/answer"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// SessionType is the kind of study session an answer was given in.
type SessionType string

const (
	SessionLearning SessionType = "learning"
	SessionReview   SessionType = "review"
	SessionMockExam SessionType = "mock_exam"
)

// ParseSessionType converts a stored or user supplied session type.
func ParseSessionType(s string) (SessionType, error) {
	switch SessionType(s) {
	case SessionLearning, SessionReview, SessionMockExam:
		return SessionType(s), nil
	default:
		return "", fmt.Errorf("unknown session type %q", s)
	}
}

// UpdatesReview reports whether answers in this session feed the review queue.
func (t SessionType) UpdatesReview() bool {
	switch t {
	case SessionLearning, SessionReview:
		return true
	default:
		return false
	}
}

// ReviewStatus is the review state of a question.
type ReviewStatus string

const (
	StatusNeedsReview    ReviewStatus = "needs_review"
	StatusPriorityReview ReviewStatus = "priority_review"
	// StatusMastered only appears in update results; mastered items are deleted.
	StatusMastered ReviewStatus = "mastered"
)

// Question is a stored question with its payloads parsed into typed form.
// When a payload is malformed, DataErr is set and Key or Template may be nil.
type Question struct {
	ID          string
	Category    answer.Category
	Title       string
	Text        string
	Explanation string
	Difficulty  int
	Key         answer.Key
	Template    *answer.Template
	DataErr     error
}

// QuestionRecord is the raw form of a question as imported.
type QuestionRecord struct {
	ID                 string `json:"id"`
	Category           string `json:"category"`
	Title              string `json:"title"`
	Text               string `json:"text"`
	Explanation        string `json:"explanation"`
	Difficulty         int    `json:"difficulty"`
	CorrectAnswerJSON  string `json:"correct_answer_json"`
	AnswerTemplateJSON string `json:"answer_template_json"`
}

// ReviewItem is the review state of a question that was answered incorrectly
// and has not been mastered yet.
type ReviewItem struct {
	ID                      int
	QuestionID              string
	Category                answer.Category
	IncorrectCount          int
	ConsecutiveCorrectCount int
	Status                  ReviewStatus
	PriorityScore           int
	LastAnsweredAt          time.Time
	LastReviewedAt          time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// ReviewItemUpdate lists the fields to change; nil fields are left as is.
type ReviewItemUpdate struct {
	IncorrectCount          *int
	ConsecutiveCorrectCount *int
	Status                  *ReviewStatus
	PriorityScore           *int
	LastAnsweredAt          *time.Time
	LastReviewedAt          *time.Time
}

// ReviewFilter narrows a review item listing. Results are ordered by
// priority descending, then by oldest answer first.
type ReviewFilter struct {
	Statuses       []ReviewStatus
	Category       answer.Category
	MinPriority    *int
	MaxPriority    *int
	AnsweredBefore time.Time // zero = no bound; inclusive
	Limit          int       // 0 = unlimited
}

// HistoryRecord is one submitted answer.
type HistoryRecord struct {
	QuestionID   string
	Category     answer.Category
	Difficulty   int
	SessionID    string
	SessionType  SessionType
	AnswerJSON   string
	IsCorrect    bool
	AnswerTimeMs int64
	AnsweredAt   time.Time
}

// AnswerRow is a recorded answer as read back from history.
type AnswerRow struct {
	ID           int
	Sequence     int64
	QuestionID   string
	Category     answer.Category
	Difficulty   int
	SessionID    string
	SessionType  SessionType
	IsCorrect    bool
	AnswerTimeMs int64
	AnsweredAt   time.Time
}

// HistoryFilter narrows history queries. Zero values mean no bound.
type HistoryFilter struct {
	Category answer.Category
	Since    time.Time // inclusive
	Until    time.Time // exclusive
}

// HistoryAggregate holds raw submission counts over a filtered history.
// Counts are per submission; question-level dedup happens in the caller.
type HistoryAggregate struct {
	Submissions        int
	CorrectSubmissions int
	TotalTimeMs        int64
	StudyDays          int
	Sessions           int
	FirstAnsweredAt    time.Time
	LastAnsweredAt     time.Time
}

// DailyAggregate holds raw submission counts for one UTC calendar day.
type DailyAggregate struct {
	Date               string // YYYY-MM-DD
	Submissions        int
	CorrectSubmissions int
	TotalTimeMs        int64
	Sessions           int
}

// QuestionRepo provides access to the question bank.
type QuestionRepo interface {
	// FindByID returns the question or ErrNotFound.
	FindByID(ctx context.Context, id string) (*Question, error)

	// FindByIDs returns the questions that exist, in the order of ids.
	FindByIDs(ctx context.Context, ids []string) ([]Question, error)

	// Save inserts or replaces a question.
	Save(ctx context.Context, rec QuestionRecord) error

	// CountByCategory returns the number of questions per category.
	CountByCategory(ctx context.Context) (map[answer.Category]int, error)
}

// ReviewItemRepo stores per-question review state.
type ReviewItemRepo interface {
	// FindByQuestionID returns the item or ErrNotFound.
	FindByQuestionID(ctx context.Context, questionID string) (*ReviewItem, error)

	// CreateOrUpdate inserts the item or replaces the one with the same question.
	CreateOrUpdate(ctx context.Context, item ReviewItem) (*ReviewItem, error)

	// UpdateByQuestionID applies a partial update and returns the new state.
	UpdateByQuestionID(ctx context.Context, questionID string, upd ReviewItemUpdate) (*ReviewItem, error)

	// DeleteByQuestionID removes the item. Deleting a missing item is not an error.
	DeleteByQuestionID(ctx context.Context, questionID string) error

	// List returns the items matching filter.
	List(ctx context.Context, filter ReviewFilter) ([]ReviewItem, error)

	// LockQuestion serializes read-modify-write cycles on one question's
	// item. The returned func releases the lock.
	LockQuestion(questionID string) (unlock func())
}

// HistoryRepo records answers and serves aggregate queries over them.
type HistoryRepo interface {
	// RecordAnswer appends an answer and returns its id.
	RecordAnswer(ctx context.Context, rec HistoryRecord) (int, error)

	// Answers returns recorded answers in submission order.
	Answers(ctx context.Context, filter HistoryFilter) ([]AnswerRow, error)

	// Aggregate returns raw submission counts over the filtered history.
	Aggregate(ctx context.Context, filter HistoryFilter) (*HistoryAggregate, error)

	// DailyAggregates returns one row per day that has answers, oldest first.
	DailyAggregates(ctx context.Context, filter HistoryFilter) ([]DailyAggregate, error)

	// DeleteBefore removes answers older than cutoff and returns the count.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}

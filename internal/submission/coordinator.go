// Package submission grades submitted answers and fans the outcome out to
// history, the statistics cache and the review queue.
package submission

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/review"
	"github.com/abhisek/boki/internal/store"
)

// ErrQuestionNotFound is returned when a submission names an unknown question.
var ErrQuestionNotFound = errors.New("question not found")

// ReviewRecorder applies an answer outcome to the review queue.
type ReviewRecorder interface {
	RecordOutcome(ctx context.Context, questionID string, isCorrect bool, answeredAt time.Time) (*review.UpdateResult, error)
}

// CacheInvalidator drops cached statistics made stale by a new answer.
type CacheInvalidator interface {
	InvalidateOnAnswerSubmit()
	InvalidateCategory(id answer.Category)
}

// Request is one submitted answer.
type Request struct {
	QuestionID  string
	Answer      answer.Submission
	SessionType store.SessionType
	SessionID   string    // generated when empty
	StartTime   time.Time // when the question was shown; zero means unknown
}

// Response is the graded result of a submission.
type Response struct {
	Success          bool
	Category         answer.Category
	IsCorrect        bool
	AnswerTimeMs     int64
	Explanation      string
	CorrectAnswer    answer.Key
	ValidationErrors []string
	SessionID        string
	HistoryID        int
	ReviewUpdate     *review.UpdateResult // nil for mock exams or when the update failed
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCache registers the statistics cache to invalidate.
func WithCache(inv CacheInvalidator) Option {
	return func(c *Coordinator) { c.cache = inv }
}

// Coordinator sequences grading, history, cache invalidation and review
// updates for each submitted answer.
type Coordinator struct {
	questions store.QuestionRepo
	history   store.HistoryRepo
	reviews   ReviewRecorder
	cache     CacheInvalidator

	now    func() time.Time
	logger *zap.Logger
}

// NewCoordinator creates a coordinator.
func NewCoordinator(questions store.QuestionRepo, history store.HistoryRepo, reviews ReviewRecorder, opts ...Option) *Coordinator {
	c := &Coordinator{
		questions: questions,
		history:   history,
		reviews:   reviews,
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SubmitAnswer grades req and records it.
//
// Validation problems and malformed question data are reported in
// Response.ValidationErrors and grade the answer incorrect; they are never
// returned as errors. Errors are returned only when the question cannot be
// loaded or the answer cannot be recorded. A failed review update is logged
// and leaves Response.ReviewUpdate nil.
func (c *Coordinator) SubmitAnswer(ctx context.Context, req Request) (*Response, error) {
	q, err := c.questions.FindByID(ctx, req.QuestionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrQuestionNotFound, req.QuestionID)
	}
	if err != nil {
		return nil, fmt.Errorf("load question: %w", err)
	}

	now := c.now()
	answerTime := int64(0)
	if !req.StartTime.IsZero() && now.After(req.StartTime) {
		answerTime = now.Sub(req.StartTime).Milliseconds()
	}

	isCorrect, problems := c.grade(q, req.Answer)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sessionType := req.SessionType
	if sessionType == "" {
		sessionType = store.SessionLearning
	}

	payload, err := json.Marshal(req.Answer)
	if err != nil {
		return nil, fmt.Errorf("encode answer: %w", err)
	}
	historyID, err := c.history.RecordAnswer(ctx, store.HistoryRecord{
		QuestionID:   q.ID,
		Category:     q.Category,
		Difficulty:   q.Difficulty,
		SessionID:    sessionID,
		SessionType:  sessionType,
		AnswerJSON:   string(payload),
		IsCorrect:    isCorrect,
		AnswerTimeMs: answerTime,
		AnsweredAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("record answer: %w", err)
	}

	if c.cache != nil {
		c.cache.InvalidateOnAnswerSubmit()
		c.cache.InvalidateCategory(q.Category)
	}

	var update *review.UpdateResult
	if sessionType.UpdatesReview() && c.reviews != nil {
		update, err = c.reviews.RecordOutcome(ctx, q.ID, isCorrect, now)
		if err != nil {
			c.logger.Error("review update failed",
				zap.String("question_id", q.ID),
				zap.Bool("correct", isCorrect),
				zap.Error(err))
			update = nil
		}
	}

	c.logger.Info("answer submitted",
		zap.String("question_id", q.ID),
		zap.String("session_id", sessionID),
		zap.String("session_type", string(sessionType)),
		zap.Bool("correct", isCorrect),
		zap.Int64("answer_time_ms", answerTime),
		zap.Int("validation_errors", len(problems)))

	return &Response{
		Success:          true,
		Category:         q.Category,
		IsCorrect:        isCorrect,
		AnswerTimeMs:     answerTime,
		Explanation:      q.Explanation,
		CorrectAnswer:    q.Key,
		ValidationErrors: problems,
		SessionID:        sessionID,
		HistoryID:        historyID,
		ReviewUpdate:     update,
	}, nil
}

// grade validates sub and, when it is valid, compares it with the key.
func (c *Coordinator) grade(q *store.Question, sub answer.Submission) (bool, []string) {
	if q.DataErr != nil {
		c.logger.Error("question data malformed", zap.String("question_id", q.ID), zap.Error(q.DataErr))
		return false, []string{answer.ParseFailureMessage}
	}

	if problems := answer.Validate(sub, q.Template, q.Category); len(problems) > 0 {
		return false, problems
	}

	resp, err := sub.Response(q.Category)
	if err != nil {
		return false, []string{err.Error()}
	}
	return answer.IsCorrect(resp, q.Key), nil
}

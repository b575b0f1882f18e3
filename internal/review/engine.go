// Package review tracks questions that were answered incorrectly and ranks
// them for study until they are mastered.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/store"
)

// Action describes what RecordOutcome did to a question's review item.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionMastered Action = "mastered"
	ActionNoChange Action = "no_change"
)

// UpdateResult reports the transition caused by one answer.
type UpdateResult struct {
	QuestionID       string
	PreviousStatus   store.ReviewStatus // empty when no item existed
	NewStatus        store.ReviewStatus // empty when no item exists afterwards
	PreviousPriority int
	NewPriority      int
	Action           Action
	Message          string
}

// Invalidator is notified whenever review state changes.
type Invalidator interface {
	InvalidateOnReviewUpdate()
}

// Option configures a Service.
type Option func(*Service)

// WithConfig replaces the default weights and thresholds.
func WithConfig(cfg Config) Option {
	return func(s *Service) { s.cfg = cfg.withDefaults() }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithInvalidator registers the cache to notify on review changes.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) { s.invalidator = inv }
}

// Service owns the review state machine and the review queue.
type Service struct {
	items     store.ReviewItemRepo
	questions store.QuestionRepo
	history   store.HistoryRepo

	cfg         Config
	now         func() time.Time
	logger      *zap.Logger
	invalidator Invalidator
}

// NewService creates a review service. history is only used by Cleanup and
// may be nil.
func NewService(items store.ReviewItemRepo, questions store.QuestionRepo, history store.HistoryRepo, opts ...Option) *Service {
	s := &Service{
		items:     items,
		questions: questions,
		history:   history,
		cfg:       DefaultConfig(),
		now:       time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the active configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// RecordOutcome applies one answer to the question's review item.
//
// A first correct answer is not tracked. An incorrect answer creates or
// worsens the item; correct answers build a streak and the item is removed
// once the streak reaches the mastery threshold.
func (s *Service) RecordOutcome(ctx context.Context, questionID string, isCorrect bool, answeredAt time.Time) (*UpdateResult, error) {
	if answeredAt.IsZero() {
		answeredAt = s.now()
	}

	unlock := s.items.LockQuestion(questionID)
	defer unlock()

	item, err := s.items.FindByQuestionID(ctx, questionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("find review item: %w", err)
	}
	if errors.Is(err, store.ErrNotFound) {
		item = nil
	}

	var res *UpdateResult
	switch {
	case item == nil && isCorrect:
		return &UpdateResult{
			QuestionID: questionID,
			Action:     ActionNoChange,
			Message:    "Correct on first attempt; nothing to review",
		}, nil
	case item == nil:
		res, err = s.create(ctx, questionID, answeredAt)
	case isCorrect:
		res, err = s.recordCorrect(ctx, item, answeredAt)
	default:
		res, err = s.recordIncorrect(ctx, item, answeredAt)
	}
	if err != nil {
		return nil, err
	}

	if s.invalidator != nil {
		s.invalidator.InvalidateOnReviewUpdate()
	}
	s.logger.Debug("review item updated",
		zap.String("question_id", questionID),
		zap.String("action", string(res.Action)),
		zap.Int("priority", res.NewPriority))
	return res, nil
}

func (s *Service) create(ctx context.Context, questionID string, at time.Time) (*UpdateResult, error) {
	category := s.categoryOf(ctx, questionID)
	priority := s.cfg.Score(1, 0, 0, category)

	_, err := s.items.CreateOrUpdate(ctx, store.ReviewItem{
		QuestionID:     questionID,
		Category:       category,
		IncorrectCount: 1,
		Status:         s.statusFor(1),
		PriorityScore:  priority,
		LastAnsweredAt: at,
		LastReviewedAt: at,
	})
	if err != nil {
		return nil, fmt.Errorf("create review item: %w", err)
	}
	return &UpdateResult{
		QuestionID:  questionID,
		NewStatus:   s.statusFor(1),
		NewPriority: priority,
		Action:      ActionCreated,
		Message:     "Added to the review list",
	}, nil
}

func (s *Service) recordIncorrect(ctx context.Context, item *store.ReviewItem, at time.Time) (*UpdateResult, error) {
	incorrect := item.IncorrectCount + 1
	consecutive := 0
	status := s.statusFor(incorrect)
	priority := s.cfg.Score(incorrect, consecutive, 0, item.Category)

	_, err := s.items.UpdateByQuestionID(ctx, item.QuestionID, store.ReviewItemUpdate{
		IncorrectCount:          &incorrect,
		ConsecutiveCorrectCount: &consecutive,
		Status:                  &status,
		PriorityScore:           &priority,
		LastAnsweredAt:          &at,
		LastReviewedAt:          &at,
	})
	if err != nil {
		return nil, fmt.Errorf("update review item: %w", err)
	}

	msg := "Review priority raised"
	if status == store.StatusPriorityReview && item.Status != store.StatusPriorityReview {
		msg = "Moved to priority review"
	}
	return &UpdateResult{
		QuestionID:       item.QuestionID,
		PreviousStatus:   item.Status,
		NewStatus:        status,
		PreviousPriority: item.PriorityScore,
		NewPriority:      priority,
		Action:           ActionUpdated,
		Message:          msg,
	}, nil
}

func (s *Service) recordCorrect(ctx context.Context, item *store.ReviewItem, at time.Time) (*UpdateResult, error) {
	consecutive := item.ConsecutiveCorrectCount + 1
	if consecutive >= s.cfg.MasteryStreak {
		if err := s.items.DeleteByQuestionID(ctx, item.QuestionID); err != nil {
			return nil, fmt.Errorf("delete mastered review item: %w", err)
		}
		return &UpdateResult{
			QuestionID:       item.QuestionID,
			PreviousStatus:   item.Status,
			NewStatus:        store.StatusMastered,
			PreviousPriority: item.PriorityScore,
			Action:           ActionMastered,
			Message:          "Mastered; removed from the review list",
		}, nil
	}

	priority := s.cfg.Score(item.IncorrectCount, consecutive, 0, item.Category)
	_, err := s.items.UpdateByQuestionID(ctx, item.QuestionID, store.ReviewItemUpdate{
		ConsecutiveCorrectCount: &consecutive,
		PriorityScore:           &priority,
		LastAnsweredAt:          &at,
		LastReviewedAt:          &at,
	})
	if err != nil {
		return nil, fmt.Errorf("update review item: %w", err)
	}
	return &UpdateResult{
		QuestionID:       item.QuestionID,
		PreviousStatus:   item.Status,
		NewStatus:        item.Status,
		PreviousPriority: item.PriorityScore,
		NewPriority:      priority,
		Action:           ActionUpdated,
		Message:          fmt.Sprintf("Correct %d in a row; %d more to master", consecutive, s.cfg.MasteryStreak-consecutive),
	}, nil
}

func (s *Service) statusFor(incorrect int) store.ReviewStatus {
	if incorrect >= s.cfg.PriorityReviewAt {
		return store.StatusPriorityReview
	}
	return store.StatusNeedsReview
}

// categoryOf looks up the question's category, falling back to journal
// when the question cannot be resolved.
func (s *Service) categoryOf(ctx context.Context, questionID string) answer.Category {
	if s.questions == nil {
		return answer.CategoryJournal
	}
	q, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		s.logger.Warn("question category unavailable, using journal",
			zap.String("question_id", questionID), zap.Error(err))
		return answer.CategoryJournal
	}
	return q.Category
}

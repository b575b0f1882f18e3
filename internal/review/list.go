package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/store"
)

// activeStatuses are the statuses that appear in the review queue.
var activeStatuses = []store.ReviewStatus{store.StatusNeedsReview, store.StatusPriorityReview}

// ListOptions narrows the review queue.
type ListOptions struct {
	Category answer.Category
	// Levels restricts the queue to the given priority bands. Empty means
	// every band.
	Levels   []Level
	MaxCount int // 0 = Config.MaxCount

	// ExcludeRecentlyReviewed drops items answered within Config.RecentWindow.
	ExcludeRecentlyReviewed bool
}

// Session is a review session over a fixed question list.
type Session struct {
	ID        string
	StartedAt time.Time
	Questions []store.Question
}

// ListItems returns the review items matching opts, highest priority first
// and oldest answer first among equal priorities.
func (s *Service) ListItems(ctx context.Context, opts ListOptions) ([]store.ReviewItem, error) {
	maxCount := opts.MaxCount
	if maxCount <= 0 {
		maxCount = s.cfg.MaxCount
	}

	filter := store.ReviewFilter{
		Statuses: activeStatuses,
		Category: opts.Category,
	}
	if opts.ExcludeRecentlyReviewed {
		filter.AnsweredBefore = s.now().Add(-s.cfg.RecentWindow)
	}

	// Bands may be disjoint, so the store is queried over their span and the
	// exact membership is checked here before applying the limit.
	if len(opts.Levels) > 0 {
		lo, hi := MaxPriority, 0
		for _, l := range opts.Levels {
			llo, lhi := l.Range()
			lo, hi = min(lo, llo), max(hi, lhi)
		}
		filter.MinPriority, filter.MaxPriority = &lo, &hi
	} else {
		filter.Limit = maxCount
	}

	items, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	if len(opts.Levels) == 0 {
		return items, nil
	}

	out := make([]store.ReviewItem, 0, min(len(items), maxCount))
	for _, it := range items {
		if len(out) == maxCount {
			break
		}
		if inLevels(it.PriorityScore, opts.Levels) {
			out = append(out, it)
		}
	}
	return out, nil
}

func inLevels(score int, levels []Level) bool {
	for _, l := range levels {
		if l.Contains(score) {
			return true
		}
	}
	return false
}

// GenerateReviewList returns the questions to review, in queue order.
// Items whose question no longer exists are skipped.
func (s *Service) GenerateReviewList(ctx context.Context, opts ListOptions) ([]store.Question, error) {
	items, err := s.ListItems(ctx, opts)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.QuestionID
	}
	questions, err := s.questions.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load review questions: %w", err)
	}
	return questions, nil
}

// StartSession builds a review list and assigns it a new session id.
func (s *Service) StartSession(ctx context.Context, opts ListOptions) (*Session, error) {
	questions, err := s.GenerateReviewList(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Session{
		ID:        uuid.NewString(),
		StartedAt: s.now(),
		Questions: questions,
	}, nil
}

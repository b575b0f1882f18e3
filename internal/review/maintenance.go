package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abhisek/boki/internal/store"
)

// RefreshPriorities recomputes the priority of every active item with the
// time decay since its last answer. It returns the number of items whose
// score changed.
func (s *Service) RefreshPriorities(ctx context.Context) (int, error) {
	items, err := s.items.List(ctx, store.ReviewFilter{Statuses: activeStatuses})
	if err != nil {
		return 0, fmt.Errorf("list review items: %w", err)
	}

	now := s.now()
	changed := 0
	for _, it := range items {
		n, err := s.refreshOne(ctx, it.QuestionID, now)
		if err != nil {
			return changed, err
		}
		changed += n
	}

	if changed > 0 && s.invalidator != nil {
		s.invalidator.InvalidateOnReviewUpdate()
	}
	s.logger.Info("review priorities refreshed", zap.Int("items", len(items)), zap.Int("changed", changed))
	return changed, nil
}

// refreshOne re-reads the item under its lock so a concurrent answer is not
// overwritten with a stale score.
func (s *Service) refreshOne(ctx context.Context, questionID string, now time.Time) (int, error) {
	unlock := s.items.LockQuestion(questionID)
	defer unlock()

	it, err := s.items.FindByQuestionID(ctx, questionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("find review item: %w", err)
	}

	score := s.cfg.Score(it.IncorrectCount, it.ConsecutiveCorrectCount, DaysSince(it.LastAnsweredAt, now), it.Category)
	if score == it.PriorityScore {
		return 0, nil
	}
	if _, err := s.items.UpdateByQuestionID(ctx, questionID, store.ReviewItemUpdate{PriorityScore: &score}); err != nil {
		return 0, fmt.Errorf("update review priority: %w", err)
	}
	return 1, nil
}

// historyInvalidator is implemented by caches that also hold answer
// statistics.
type historyInvalidator interface {
	InvalidateOnAnswerSubmit()
}

// CleanupResult reports the rows removed by Cleanup.
type CleanupResult struct {
	HistoryRemoved int
}

// Cleanup removes answers older than Config.HistoryRetention. Review items
// need no sweep: mastered items are deleted when the streak completes.
func (s *Service) Cleanup(ctx context.Context) (*CleanupResult, error) {
	res := &CleanupResult{}
	if s.history == nil {
		return res, nil
	}

	n, err := s.history.DeleteBefore(ctx, s.now().Add(-s.cfg.HistoryRetention))
	if err != nil {
		return nil, fmt.Errorf("delete old history: %w", err)
	}
	res.HistoryRemoved = n

	if h, ok := s.invalidator.(historyInvalidator); ok && n > 0 {
		h.InvalidateOnAnswerSubmit()
	}
	s.logger.Info("review cleanup finished", zap.Int("history_removed", n))
	return res, nil
}

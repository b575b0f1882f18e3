package review

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/store"
)

func newTestService(items *memItems, questions *memQuestions, opts ...Option) (*Service, *fixedClock) {
	clock := newFixedClock()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewService(items, questions, nil, opts...), clock
}

func journalQuestion(id string) store.Question {
	return store.Question{ID: id, Category: answer.CategoryJournal, Difficulty: 2}
}

func TestRecordOutcome_FirstCorrectIsNoChange(t *testing.T) {
	items := newMemItems()
	inv := &countingInvalidator{}
	svc, _ := newTestService(items, newMemQuestions(journalQuestion("Q1")), WithInvalidator(inv))

	res, err := svc.RecordOutcome(context.Background(), "Q1", true, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, ActionNoChange, res.Action)
	assert.Empty(t, res.NewStatus)

	_, ok := items.get("Q1")
	assert.False(t, ok)
	assert.Zero(t, inv.reviewUpdates, "no_change does not invalidate")
}

func TestRecordOutcome_StateMachine(t *testing.T) {
	ctx := context.Background()
	items := newMemItems()
	inv := &countingInvalidator{}
	svc, clock := newTestService(items, newMemQuestions(journalQuestion("Q1")), WithInvalidator(inv))

	res, err := svc.RecordOutcome(ctx, "Q1", false, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, ActionCreated, res.Action)
	assert.Equal(t, store.StatusNeedsReview, res.NewStatus)
	assert.Equal(t, 25, res.NewPriority)

	it, ok := items.get("Q1")
	require.True(t, ok)
	assert.Equal(t, 1, it.IncorrectCount)
	assert.Equal(t, 0, it.ConsecutiveCorrectCount)
	assert.Equal(t, answer.CategoryJournal, it.Category)
	assert.Equal(t, clock.Now(), it.LastAnsweredAt)

	clock.Advance(time.Hour)
	res, err = svc.RecordOutcome(ctx, "Q1", true, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.Equal(t, store.StatusNeedsReview, res.PreviousStatus)
	assert.Equal(t, store.StatusNeedsReview, res.NewStatus)
	assert.Equal(t, 25, res.PreviousPriority)
	assert.Equal(t, 10, res.NewPriority)

	it, _ = items.get("Q1")
	assert.Equal(t, 1, it.ConsecutiveCorrectCount)
	assert.Equal(t, 1, it.IncorrectCount)

	clock.Advance(time.Hour)
	res, err = svc.RecordOutcome(ctx, "Q1", true, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, ActionMastered, res.Action)
	assert.Equal(t, store.StatusMastered, res.NewStatus)
	assert.Equal(t, 0, res.NewPriority)

	_, ok = items.get("Q1")
	assert.False(t, ok, "mastered item is deleted")
	assert.Equal(t, 3, inv.reviewUpdates)
}

func TestRecordOutcome_IncorrectPromotesAndResetsStreak(t *testing.T) {
	ctx := context.Background()
	items := newMemItems()
	svc, clock := newTestService(items, newMemQuestions(journalQuestion("Q1")))

	_, err := svc.RecordOutcome(ctx, "Q1", false, clock.Now())
	require.NoError(t, err)
	_, err = svc.RecordOutcome(ctx, "Q1", true, clock.Now())
	require.NoError(t, err)

	res, err := svc.RecordOutcome(ctx, "Q1", false, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, ActionUpdated, res.Action)
	assert.Equal(t, store.StatusNeedsReview, res.PreviousStatus)
	assert.Equal(t, store.StatusPriorityReview, res.NewStatus)
	assert.Equal(t, 45, res.NewPriority)
	assert.Equal(t, "Moved to priority review", res.Message)

	it, _ := items.get("Q1")
	assert.Equal(t, 2, it.IncorrectCount)
	assert.Equal(t, 0, it.ConsecutiveCorrectCount)

	// A correct answer keeps priority_review.
	res, err = svc.RecordOutcome(ctx, "Q1", true, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, store.StatusPriorityReview, res.NewStatus)
	assert.Equal(t, 30, res.NewPriority)
}

func TestRecordOutcome_UnknownQuestionDefaultsToJournal(t *testing.T) {
	items := newMemItems()
	svc, clock := newTestService(items, newMemQuestions())

	res, err := svc.RecordOutcome(context.Background(), "missing", false, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 25, res.NewPriority)

	it, _ := items.get("missing")
	assert.Equal(t, answer.CategoryJournal, it.Category)
}

func TestRecordOutcome_CategoryBonus(t *testing.T) {
	items := newMemItems()
	questions := newMemQuestions(store.Question{ID: "T1", Category: answer.CategoryTrialBalance})
	svc, clock := newTestService(items, questions)

	res, err := svc.RecordOutcome(context.Background(), "T1", false, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 28, res.NewPriority)
}

func TestRecordOutcome_ConfiguredMasteryStreak(t *testing.T) {
	ctx := context.Background()
	items := newMemItems()
	cfg := DefaultConfig()
	cfg.MasteryStreak = 3
	svc, clock := newTestService(items, newMemQuestions(journalQuestion("Q1")), WithConfig(cfg))

	_, err := svc.RecordOutcome(ctx, "Q1", false, clock.Now())
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		res, err := svc.RecordOutcome(ctx, "Q1", true, clock.Now())
		require.NoError(t, err)
		assert.Equal(t, ActionUpdated, res.Action)
	}
	res, err := svc.RecordOutcome(ctx, "Q1", true, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, ActionMastered, res.Action)
}

func TestRecordOutcome_StoreErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	items := newMemItems()
	svc, clock := newTestService(items, newMemQuestions(journalQuestion("Q1")))

	_, err := svc.RecordOutcome(ctx, "Q1", false, clock.Now())
	require.NoError(t, err)

	boom := errors.New("disk full")
	items.updateErr = boom
	_, err = svc.RecordOutcome(ctx, "Q1", false, clock.Now())
	assert.ErrorIs(t, err, boom)
}

func TestRecordOutcome_TakesQuestionLock(t *testing.T) {
	items := newMemItems()
	svc, clock := newTestService(items, newMemQuestions(journalQuestion("Q1")))

	_, err := svc.RecordOutcome(context.Background(), "Q1", false, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, items.lockCalls)
}

func TestRecordOutcome_ConcurrentIncorrectAnswersAllCount(t *testing.T) {
	ctx := context.Background()
	items := newMemItems()
	svc, clock := newTestService(items, newMemQuestions(journalQuestion("Q1")))

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordOutcome(ctx, "Q1", false, clock.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	it, ok := items.get("Q1")
	require.True(t, ok)
	assert.Equal(t, n, it.IncorrectCount)
	assert.Equal(t, MaxPriority, it.PriorityScore)
}

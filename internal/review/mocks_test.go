package review

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/store"
)

// memItems is an in-memory ReviewItemRepo.
type memItems struct {
	mu     sync.Mutex
	items  map[string]store.ReviewItem
	nextID int
	locks  sync.Map // question id -> *sync.Mutex

	updateErr error
	lockCalls int
}

func newMemItems() *memItems {
	return &memItems{items: make(map[string]store.ReviewItem)}
}

func (m *memItems) FindByQuestionID(_ context.Context, id string) (*store.ReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &it, nil
}

func (m *memItems) CreateOrUpdate(_ context.Context, item store.ReviewItem) (*store.ReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if old, ok := m.items[item.QuestionID]; ok {
		item.ID = old.ID
	} else {
		m.nextID++
		item.ID = m.nextID
	}
	m.items[item.QuestionID] = item
	return &item, nil
}

func (m *memItems) UpdateByQuestionID(_ context.Context, id string, upd store.ReviewItemUpdate) (*store.ReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	it, ok := m.items[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.IncorrectCount != nil {
		it.IncorrectCount = *upd.IncorrectCount
	}
	if upd.ConsecutiveCorrectCount != nil {
		it.ConsecutiveCorrectCount = *upd.ConsecutiveCorrectCount
	}
	if upd.Status != nil {
		it.Status = *upd.Status
	}
	if upd.PriorityScore != nil {
		it.PriorityScore = *upd.PriorityScore
	}
	if upd.LastAnsweredAt != nil {
		it.LastAnsweredAt = *upd.LastAnsweredAt
	}
	if upd.LastReviewedAt != nil {
		it.LastReviewedAt = *upd.LastReviewedAt
	}
	m.items[id] = it
	return &it, nil
}

func (m *memItems) DeleteByQuestionID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memItems) List(_ context.Context, f store.ReviewFilter) ([]store.ReviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []store.ReviewItem
	for _, it := range m.items {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, it.Status) {
			continue
		}
		if f.Category != "" && it.Category != f.Category {
			continue
		}
		if f.MinPriority != nil && it.PriorityScore < *f.MinPriority {
			continue
		}
		if f.MaxPriority != nil && it.PriorityScore > *f.MaxPriority {
			continue
		}
		if !f.AnsweredBefore.IsZero() && it.LastAnsweredAt.After(f.AnsweredBefore) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PriorityScore != out[j].PriorityScore {
			return out[i].PriorityScore > out[j].PriorityScore
		}
		if !out[i].LastAnsweredAt.Equal(out[j].LastAnsweredAt) {
			return out[i].LastAnsweredAt.Before(out[j].LastAnsweredAt)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}


func (m *memItems) LockQuestion(id string) func() {
	m.mu.Lock()
	m.lockCalls++
	m.mu.Unlock()

	v, _ := m.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (m *memItems) get(id string) (store.ReviewItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	return it, ok
}

func containsStatus(list []store.ReviewStatus, s store.ReviewStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// memQuestions is an in-memory QuestionRepo.
type memQuestions struct {
	questions map[string]store.Question
}

func newMemQuestions(qs ...store.Question) *memQuestions {
	m := &memQuestions{questions: make(map[string]store.Question)}
	for _, q := range qs {
		m.questions[q.ID] = q
	}
	return m
}

func (m *memQuestions) FindByID(_ context.Context, id string) (*store.Question, error) {
	q, ok := m.questions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &q, nil
}

func (m *memQuestions) FindByIDs(_ context.Context, ids []string) ([]store.Question, error) {
	var out []store.Question
	for _, id := range ids {
		if q, ok := m.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (m *memQuestions) Save(context.Context, store.QuestionRecord) error {
	return errors.New("read only")
}

func (m *memQuestions) CountByCategory(context.Context) (map[answer.Category]int, error) {
	out := make(map[answer.Category]int)
	for _, q := range m.questions {
		out[q.Category]++
	}
	return out, nil
}

// memHistory records DeleteBefore calls.
type memHistory struct {
	store.HistoryRepo
	cutoff  time.Time
	removed int
}

func (m *memHistory) DeleteBefore(_ context.Context, cutoff time.Time) (int, error) {
	m.cutoff = cutoff
	return m.removed, nil
}

// countingInvalidator counts cache notifications.
type countingInvalidator struct {
	mu            sync.Mutex
	reviewUpdates int
	answerSubmits int
}

func (c *countingInvalidator) InvalidateOnReviewUpdate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reviewUpdates++
}

func (c *countingInvalidator) InvalidateOnAnswerSubmit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answerSubmits++
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

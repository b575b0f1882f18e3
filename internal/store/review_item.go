package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/boki/internal/answer"
)

var reviewItemColumns = []string{
	"id", "question_id", "category", "incorrect_count", "consecutive_correct_count",
	"status", "priority_score", "last_answered_at", "last_reviewed_at", "created_at", "updated_at",
}

// reviewItemRepo implements ReviewItemRepo over the review_items table.
type reviewItemRepo struct {
	db    *sql.DB
	locks *keyedMutex
}

func (r *reviewItemRepo) LockQuestion(questionID string) func() {
	return r.locks.Lock(questionID)
}

func (r *reviewItemRepo) FindByQuestionID(ctx context.Context, questionID string) (*ReviewItem, error) {
	query, args := builder().Select(reviewItemColumns...).
		From(builder().Table(tableReviewItems)).
		Where(entsql.EQ("question_id", questionID)).
		Query()

	item, err := scanReviewItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query review item %s: %w", questionID, err)
	}
	return item, nil
}

func (r *reviewItemRepo) CreateOrUpdate(ctx context.Context, item ReviewItem) (*ReviewItem, error) {
	now := formatTime(time.Now())
	query, args := builder().Insert(tableReviewItems).
		Columns("question_id", "category", "incorrect_count", "consecutive_correct_count",
			"status", "priority_score", "last_answered_at", "last_reviewed_at", "created_at", "updated_at").
		Values(item.QuestionID, string(item.Category), item.IncorrectCount, item.ConsecutiveCorrectCount,
			string(item.Status), item.PriorityScore, formatTime(item.LastAnsweredAt), formatTime(item.LastReviewedAt),
			now, now).
		OnConflict(
			entsql.ConflictColumns("question_id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range []string{"category", "incorrect_count", "consecutive_correct_count",
					"status", "priority_score", "last_answered_at", "last_reviewed_at", "updated_at"} {
					u.SetExcluded(c)
				}
			}),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("save review item %s: %w", item.QuestionID, err)
	}
	return r.FindByQuestionID(ctx, item.QuestionID)
}

func (r *reviewItemRepo) UpdateByQuestionID(ctx context.Context, questionID string, upd ReviewItemUpdate) (*ReviewItem, error) {
	u := builder().Update(tableReviewItems).
		Set("updated_at", formatTime(time.Now())).
		Where(entsql.EQ("question_id", questionID))
	if upd.IncorrectCount != nil {
		u.Set("incorrect_count", *upd.IncorrectCount)
	}
	if upd.ConsecutiveCorrectCount != nil {
		u.Set("consecutive_correct_count", *upd.ConsecutiveCorrectCount)
	}
	if upd.Status != nil {
		u.Set("status", string(*upd.Status))
	}
	if upd.PriorityScore != nil {
		u.Set("priority_score", *upd.PriorityScore)
	}
	if upd.LastAnsweredAt != nil {
		u.Set("last_answered_at", formatTime(*upd.LastAnsweredAt))
	}
	if upd.LastReviewedAt != nil {
		u.Set("last_reviewed_at", formatTime(*upd.LastReviewedAt))
	}

	query, args := u.Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update review item %s: %w", questionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update review item %s: %w", questionID, err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return r.FindByQuestionID(ctx, questionID)
}

func (r *reviewItemRepo) DeleteByQuestionID(ctx context.Context, questionID string) error {
	query, args := builder().Delete(tableReviewItems).
		Where(entsql.EQ("question_id", questionID)).
		Query()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete review item %s: %w", questionID, err)
	}
	return nil
}

func (r *reviewItemRepo) List(ctx context.Context, filter ReviewFilter) ([]ReviewItem, error) {
	var preds []*entsql.Predicate
	if len(filter.Statuses) > 0 {
		statuses := make([]any, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		preds = append(preds, entsql.In("status", statuses...))
	}
	if filter.Category != "" {
		preds = append(preds, entsql.EQ("category", string(filter.Category)))
	}
	if filter.MinPriority != nil {
		preds = append(preds, entsql.GTE("priority_score", *filter.MinPriority))
	}
	if filter.MaxPriority != nil {
		preds = append(preds, entsql.LTE("priority_score", *filter.MaxPriority))
	}
	if !filter.AnsweredBefore.IsZero() {
		preds = append(preds, entsql.LTE("last_answered_at", formatTime(filter.AnsweredBefore)))
	}

	sel := builder().Select(reviewItemColumns...).
		From(builder().Table(tableReviewItems)).
		OrderBy(entsql.Desc("priority_score"), entsql.Asc("last_answered_at"), entsql.Asc("id"))
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}
	if filter.Limit > 0 {
		sel.Limit(filter.Limit)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list review items: %w", err)
	}
	defer rows.Close()

	var items []ReviewItem
	for rows.Next() {
		item, err := scanReviewItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review items: %w", err)
	}
	return items, nil
}

func scanReviewItem(row rowScanner) (*ReviewItem, error) {
	var (
		item             ReviewItem
		category, status string
		lastAnswered     string
		lastReviewed     string
		created, upd     string
	)
	err := row.Scan(&item.ID, &item.QuestionID, &category, &item.IncorrectCount, &item.ConsecutiveCorrectCount,
		&status, &item.PriorityScore, &lastAnswered, &lastReviewed, &created, &upd)
	if err != nil {
		return nil, err
	}
	item.Category = answer.Category(category)
	item.Status = ReviewStatus(status)

	for _, f := range []struct {
		src string
		dst *time.Time
	}{
		{lastAnswered, &item.LastAnsweredAt},
		{lastReviewed, &item.LastReviewedAt},
		{created, &item.CreatedAt},
		{upd, &item.UpdatedAt},
	} {
		t, err := parseTime(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = t
	}
	return &item, nil
}

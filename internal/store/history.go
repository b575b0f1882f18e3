package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/boki/internal/answer"
)

var historyColumns = []string{
	"id", "sequence", "question_id", "category", "difficulty", "session_id",
	"session_type", "is_correct", "answer_time_ms", "answered_at",
}

// historyRepo implements HistoryRepo over the learning_history table.
type historyRepo struct {
	db  *sql.DB
	seq *answerSequence
}

func (r *historyRepo) RecordAnswer(ctx context.Context, rec HistoryRecord) (int, error) {
	if rec.AnsweredAt.IsZero() {
		rec.AnsweredAt = time.Now()
	}

	r.seq.mu.Lock()
	defer r.seq.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save answer: %w", err)
	}
	defer tx.Rollback()

	seqNum, err := r.seq.next(ctx, tx)
	if err != nil {
		return 0, err
	}

	query, args := builder().Insert(tableHistory).
		Columns("sequence", "question_id", "category", "difficulty", "session_id",
			"session_type", "answer_json", "is_correct", "answer_time_ms", "answered_at").
		Values(seqNum, rec.QuestionID, string(rec.Category), rec.Difficulty, rec.SessionID,
			string(rec.SessionType), rec.AnswerJSON, rec.IsCorrect, rec.AnswerTimeMs, formatTime(rec.AnsweredAt)).
		Query()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("save answer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save answer: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save answer: %w", err)
	}
	return int(id), nil
}

func (r *historyRepo) Answers(ctx context.Context, filter HistoryFilter) ([]AnswerRow, error) {
	sel := builder().Select(historyColumns...).
		From(builder().Table(tableHistory)).
		OrderBy(entsql.Asc("sequence"))
	if p := filter.predicate(); p != nil {
		sel.Where(p)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var out []AnswerRow
	for rows.Next() {
		var (
			a                         AnswerRow
			category, sessionType, at string
		)
		if err := rows.Scan(&a.ID, &a.Sequence, &a.QuestionID, &category, &a.Difficulty, &a.SessionID,
			&sessionType, &a.IsCorrect, &a.AnswerTimeMs, &at); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.Category = answer.Category(category)
		a.SessionType = SessionType(sessionType)
		if a.AnsweredAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

func (r *historyRepo) Aggregate(ctx context.Context, filter HistoryFilter) (*HistoryAggregate, error) {
	sel := builder().Select(
		entsql.Count("*"),
		"COALESCE(SUM(is_correct), 0)",
		"COALESCE(SUM(answer_time_ms), 0)",
		"COUNT(DISTINCT DATE(answered_at))",
		"COUNT(DISTINCT session_id)",
		entsql.Min("answered_at"),
		entsql.Max("answered_at"),
	).From(builder().Table(tableHistory))
	if p := filter.predicate(); p != nil {
		sel.Where(p)
	}

	var (
		agg         HistoryAggregate
		first, last sql.NullString
	)
	query, args := sel.Query()
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&agg.Submissions, &agg.CorrectSubmissions, &agg.TotalTimeMs, &agg.StudyDays, &agg.Sessions, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("aggregate answers: %w", err)
	}
	if first.Valid {
		if agg.FirstAnsweredAt, err = parseTime(first.String); err != nil {
			return nil, err
		}
	}
	if last.Valid {
		if agg.LastAnsweredAt, err = parseTime(last.String); err != nil {
			return nil, err
		}
	}
	return &agg, nil
}

func (r *historyRepo) DailyAggregates(ctx context.Context, filter HistoryFilter) ([]DailyAggregate, error) {
	const day = "DATE(answered_at)"
	sel := builder().Select(
		day,
		entsql.Count("*"),
		"COALESCE(SUM(is_correct), 0)",
		"COALESCE(SUM(answer_time_ms), 0)",
		"COUNT(DISTINCT session_id)",
	).From(builder().Table(tableHistory)).
		GroupBy(day).
		OrderBy(day)
	if p := filter.predicate(); p != nil {
		sel.Where(p)
	}

	query, args := sel.Query()
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate daily answers: %w", err)
	}
	defer rows.Close()

	var out []DailyAggregate
	for rows.Next() {
		var d DailyAggregate
		if err := rows.Scan(&d.Date, &d.Submissions, &d.CorrectSubmissions, &d.TotalTimeMs, &d.Sessions); err != nil {
			return nil, fmt.Errorf("scan daily aggregate: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily aggregates: %w", err)
	}
	return out, nil
}

func (r *historyRepo) DeleteBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query, args := builder().Delete(tableHistory).
		Where(entsql.LT("answered_at", formatTime(cutoff))).
		Query()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete old answers: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete old answers: %w", err)
	}
	return int(n), nil
}

// predicate returns the WHERE clause for f, or nil when f is empty.
func (f HistoryFilter) predicate() *entsql.Predicate {
	var preds []*entsql.Predicate
	if f.Category != "" {
		preds = append(preds, entsql.EQ("category", string(f.Category)))
	}
	if !f.Since.IsZero() {
		preds = append(preds, entsql.GTE("answered_at", formatTime(f.Since)))
	}
	if !f.Until.IsZero() {
		preds = append(preds, entsql.LT("answered_at", formatTime(f.Until)))
	}
	switch len(preds) {
	case 0:
		return nil
	case 1:
		return preds[0]
	default:
		return entsql.And(preds...)
	}
}

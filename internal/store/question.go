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

var questionColumns = []string{
	"id", "category", "title", "text", "explanation", "difficulty",
	"correct_answer_json", "answer_template_json",
}

// questionRepo implements QuestionRepo over the questions table.
type questionRepo struct {
	db *sql.DB
}

func (r *questionRepo) FindByID(ctx context.Context, id string) (*Question, error) {
	query, args := builder().Select(questionColumns...).
		From(builder().Table(tableQuestions)).
		Where(entsql.EQ("id", id)).
		Query()

	q, err := scanQuestion(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query question %s: %w", id, err)
	}
	return q, nil
}

func (r *questionRepo) FindByIDs(ctx context.Context, ids []string) ([]Question, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query, qargs := builder().Select(questionColumns...).
		From(builder().Table(tableQuestions)).
		Where(entsql.In("id", args...)).
		Query()

	rows, err := r.db.QueryContext(ctx, query, qargs...)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Question, len(ids))
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		byID[q.ID] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	out := make([]Question, 0, len(byID))
	for _, id := range ids {
		if q, ok := byID[id]; ok {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (r *questionRepo) Save(ctx context.Context, rec QuestionRecord) error {
	category, err := answer.ParseCategory(rec.Category)
	if err != nil {
		return fmt.Errorf("save question %s: %w", rec.ID, err)
	}
	if rec.Difficulty == 0 {
		rec.Difficulty = 1
	}
	var tmpl any
	if rec.AnswerTemplateJSON != "" {
		tmpl = rec.AnswerTemplateJSON
	}
	now := formatTime(time.Now())

	query, args := builder().Insert(tableQuestions).
		Columns(append(questionColumns[:len(questionColumns):len(questionColumns)], "created_at", "updated_at")...).
		Values(rec.ID, string(category), rec.Title, rec.Text, rec.Explanation, rec.Difficulty,
			rec.CorrectAnswerJSON, tmpl, now, now).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				for _, c := range questionColumns[1:] {
					u.SetExcluded(c)
				}
				u.SetExcluded("updated_at")
			}),
		).
		Query()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save question %s: %w", rec.ID, err)
	}
	return nil
}

func (r *questionRepo) CountByCategory(ctx context.Context) (map[answer.Category]int, error) {
	query, args := builder().Select("category", entsql.Count("*")).
		From(builder().Table(tableQuestions)).
		GroupBy("category").
		Query()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	defer rows.Close()

	counts := make(map[answer.Category]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan question count: %w", err)
		}
		counts[answer.Category(category)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate question counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanQuestion reads one question row and parses its payloads. Payload
// problems are recorded on the question instead of failing the read.
func scanQuestion(row rowScanner) (*Question, error) {
	var (
		q        Question
		category string
		keyJSON  string
		tmplJSON sql.NullString
	)
	if err := row.Scan(&q.ID, &category, &q.Title, &q.Text, &q.Explanation, &q.Difficulty, &keyJSON, &tmplJSON); err != nil {
		return nil, err
	}

	// An unknown category falls back to journal; the key is parsed against
	// the stored category so a mismatch surfaces as a data error.
	q.Category = answer.CategoryJournal
	if c, err := answer.ParseCategory(category); err == nil {
		q.Category = c
	}

	key, err := answer.ParseKey(answer.Category(category), []byte(keyJSON))
	if err != nil {
		q.DataErr = err
	} else {
		q.Key = key
	}

	if tmplJSON.Valid && tmplJSON.String != "" {
		tmpl, err := answer.ParseTemplate([]byte(tmplJSON.String))
		if err != nil {
			q.DataErr = errors.Join(q.DataErr, err)
		} else {
			q.Template = tmpl
		}
	}
	return &q, nil
}

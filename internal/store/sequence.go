package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	entsql "entgo.io/ent/dialect/sql"
)

// answerSequence numbers recorded answers in submission order. The
// latest-answer dedup rule sorts on it because two answers to one question
// can carry the same answered_at. Numbers survive Reset and are never reused.
type answerSequence struct {
	mu sync.Mutex
}

// seedAnswerSequence inserts the single counter row on first open.
func seedAnswerSequence(ctx context.Context, db *sql.DB) error {
	query, args := builder().Insert(tableSequence).
		Columns("id", "next_val").
		Values(1, 1).
		OnConflict(entsql.DoNothing()).
		Query()
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("seed answer sequence: %w", err)
	}
	return nil
}

// next takes the following number inside tx, so a rolled back answer
// gives its number back. Callers hold mu for the whole transaction.
func (s *answerSequence) next(ctx context.Context, tx *sql.Tx) (int64, error) {
	query, args := builder().Update(tableSequence).
		Add("next_val", 1).
		Where(entsql.EQ("id", 1)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("advance answer sequence: %w", err)
	}

	query, args = builder().Select("next_val").
		From(entsql.Table(tableSequence)).
		Where(entsql.EQ("id", 1)).
		Query()
	var after int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&after); err != nil {
		return 0, fmt.Errorf("read answer sequence: %w", err)
	}
	return after - 1, nil
}

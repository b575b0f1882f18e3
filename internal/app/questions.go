package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/store"
)

// bankEntry is one question in an imported question bank. The answer key
// and template are embedded JSON objects.
type bankEntry struct {
	ID             string          `json:"id"`
	Category       string          `json:"category"`
	Title          string          `json:"title"`
	Text           string          `json:"text"`
	Explanation    string          `json:"explanation"`
	Difficulty     int             `json:"difficulty"`
	CorrectAnswer  json.RawMessage `json:"correct_answer"`
	AnswerTemplate json.RawMessage `json:"answer_template,omitempty"`
}

// ImportQuestions reads a JSON array of questions from r and saves them,
// replacing questions with the same id. Every entry is checked before any
// is saved.
func (a *App) ImportQuestions(ctx context.Context, r io.Reader) (int, error) {
	var entries []bankEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return 0, fmt.Errorf("decode question bank: %w", err)
	}

	records := make([]store.QuestionRecord, 0, len(entries))
	for i, e := range entries {
		rec, err := e.record()
		if err != nil {
			return 0, fmt.Errorf("question %d (%s): %w", i+1, e.ID, err)
		}
		records = append(records, rec)
	}

	for _, rec := range records {
		if err := a.Store.Questions().Save(ctx, rec); err != nil {
			return 0, err
		}
	}
	a.Cache.ClearAll()

	a.Logger.Info("questions imported", zap.Int("count", len(records)))
	return len(records), nil
}

func (e bankEntry) record() (store.QuestionRecord, error) {
	if e.ID == "" {
		return store.QuestionRecord{}, fmt.Errorf("missing id")
	}
	category, err := answer.ParseCategory(e.Category)
	if err != nil {
		return store.QuestionRecord{}, err
	}
	if e.Difficulty < 0 || e.Difficulty > 5 {
		return store.QuestionRecord{}, fmt.Errorf("difficulty must be between 1 and 5, got %d", e.Difficulty)
	}
	if _, err := answer.ParseKey(category, e.CorrectAnswer); err != nil {
		return store.QuestionRecord{}, err
	}

	rec := store.QuestionRecord{
		ID:                e.ID,
		Category:          string(category),
		Title:             e.Title,
		Text:              e.Text,
		Explanation:       e.Explanation,
		Difficulty:        e.Difficulty,
		CorrectAnswerJSON: string(e.CorrectAnswer),
	}
	if len(e.AnswerTemplate) > 0 && string(e.AnswerTemplate) != "null" {
		if _, err := answer.ParseTemplate(e.AnswerTemplate); err != nil {
			return store.QuestionRecord{}, err
		}
		rec.AnswerTemplateJSON = string(e.AnswerTemplate)
	}
	return rec, nil
}

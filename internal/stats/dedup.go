package stats

import (
	"fmt"

	"github.com/abhisek/boki/internal/store"
)

// DedupRule decides whether a question answered several times counts as
// correct.
type DedupRule int

const (
	// AnyCorrect counts a question as correct if any of its answers was.
	AnyCorrect DedupRule = iota
	// LatestAnswer counts a question by its most recent answer.
	LatestAnswer
)

func (r DedupRule) String() string {
	switch r {
	case LatestAnswer:
		return "latest"
	default:
		return "any_correct"
	}
}

// ParseDedupRule parses the String form of a rule.
func ParseDedupRule(s string) (DedupRule, error) {
	switch s {
	case "", "any_correct":
		return AnyCorrect, nil
	case "latest":
		return LatestAnswer, nil
	}
	return AnyCorrect, fmt.Errorf("unknown dedup rule %q", s)
}

// tally is the per-question result of a set of answers.
type tally struct {
	answered  int
	correct   int
	questions map[string]bool // question id -> counted correct
}

func (t tally) incorrect() int {
	return t.answered - t.correct
}

// dedupe collapses rows, which must be in submission order, to one outcome
// per question.
func dedupe(rows []store.AnswerRow, rule DedupRule) tally {
	t := tally{questions: make(map[string]bool)}
	for _, r := range rows {
		prev, seen := t.questions[r.QuestionID]
		switch {
		case !seen:
			t.questions[r.QuestionID] = r.IsCorrect
		case rule == LatestAnswer:
			t.questions[r.QuestionID] = r.IsCorrect
		default:
			t.questions[r.QuestionID] = prev || r.IsCorrect
		}
	}
	t.answered = len(t.questions)
	for _, ok := range t.questions {
		if ok {
			t.correct++
		}
	}
	return t
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

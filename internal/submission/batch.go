package submission

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/store"
)

// PassMark is the mock exam score needed to pass.
const PassMark = 70

// points awarded per correct answer in a mock exam.
var points = map[answer.Category]int{
	answer.CategoryJournal:      4,
	answer.CategoryLedger:       10,
	answer.CategoryTrialBalance: 20,
}

// Points returns the mock exam points of a correct answer in category c.
func Points(c answer.Category) int {
	return points[c]
}

// BatchResult is the outcome of a mock exam submission.
type BatchResult struct {
	SessionID string
	Responses []*Response
	Correct   int
	Score     int
	MaxScore  int
	Passed    bool
}

// SubmitBatch submits mock exam answers one after another under a shared
// session id. Each answer is recorded independently; the first error stops
// the batch and the responses recorded so far are returned with it.
func (c *Coordinator) SubmitBatch(ctx context.Context, examID string, reqs []Request) (*BatchResult, error) {
	if examID == "" {
		examID = uuid.NewString()
	}
	res := &BatchResult{SessionID: examID}

	for i, req := range reqs {
		req.SessionID = examID
		req.SessionType = store.SessionMockExam

		resp, err := c.SubmitAnswer(ctx, req)
		if err != nil {
			return res, fmt.Errorf("submit answer %d (%s): %w", i+1, req.QuestionID, err)
		}
		res.Responses = append(res.Responses, resp)

		res.MaxScore += Points(resp.Category)
		if resp.IsCorrect {
			res.Correct++
			res.Score += Points(resp.Category)
		}
	}
	res.Passed = res.Score >= PassMark

	c.logger.Info("mock exam submitted",
		zap.String("session_id", examID),
		zap.Int("answers", len(res.Responses)),
		zap.Int("score", res.Score),
		zap.Bool("passed", res.Passed))
	return res, nil
}

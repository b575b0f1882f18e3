package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/app"
	"github.com/abhisek/boki/internal/store"
	"github.com/abhisek/boki/internal/submission"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Grade and record one answer",
	Example: `  boki submit --question J001 --answer '{"debit_account":"Cash","debit_amount":1000,"credit_account":"Sales","credit_amount":1000}'
  boki submit --question T001 --answer '{"balances":{"Cash":500,"Capital":500}}' --session-type review --seconds 95`,
	RunE: func(cmd *cobra.Command, args []string) error {
		questionID, _ := cmd.Flags().GetString("question")
		raw, _ := cmd.Flags().GetString("answer")
		typ, _ := cmd.Flags().GetString("session-type")
		sessionID, _ := cmd.Flags().GetString("session")
		seconds, _ := cmd.Flags().GetInt("seconds")

		sessionType, err := store.ParseSessionType(typ)
		if err != nil {
			return err
		}
		sub, err := answer.ParseSubmission([]byte(raw))
		if err != nil {
			return fmt.Errorf("parse answer: %w", err)
		}

		req := submission.Request{
			QuestionID:  questionID,
			Answer:      sub,
			SessionType: sessionType,
			SessionID:   sessionID,
		}
		if seconds > 0 {
			req.StartTime = time.Now().Add(-time.Duration(seconds) * time.Second)
		}

		return withApp(cmd, func(a *app.App) error {
			resp, err := a.Submissions.SubmitAnswer(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderResponse(questionID, resp))
			return nil
		})
	},
}

// examAnswer is one line of a mock exam answer file.
type examAnswer struct {
	QuestionID string            `json:"question_id"`
	Answer     answer.Submission `json:"answer"`
	Seconds    int               `json:"seconds,omitempty"`
}

var examCmd = &cobra.Command{
	Use:   "exam <answers.json>",
	Short: "Grade a mock exam from a JSON array of answers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		examID, _ := cmd.Flags().GetString("session")

		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read answers: %w", err)
		}
		var answers []examAnswer
		if err := json.Unmarshal(data, &answers); err != nil {
			return fmt.Errorf("decode answers: %w", err)
		}

		now := time.Now()
		reqs := make([]submission.Request, 0, len(answers))
		for _, ans := range answers {
			req := submission.Request{QuestionID: ans.QuestionID, Answer: ans.Answer}
			if ans.Seconds > 0 {
				req.StartTime = now.Add(-time.Duration(ans.Seconds) * time.Second)
			}
			reqs = append(reqs, req)
		}

		return withApp(cmd, func(a *app.App) error {
			res, err := a.Submissions.SubmitBatch(cmd.Context(), examID, reqs)
			if res != nil {
				fmt.Fprintln(cmd.OutOrStdout(), renderBatch(res))
			}
			return err
		})
	},
}

func init() {
	submitCmd.Flags().String("question", "", "Question ID")
	submitCmd.Flags().String("answer", "", "Answer as a JSON object")
	submitCmd.Flags().String("session-type", string(store.SessionLearning), "Session type: learning, review or mock_exam")
	submitCmd.Flags().String("session", "", "Session ID (generated when empty)")
	submitCmd.Flags().Int("seconds", 0, "Seconds spent on the question")
	_ = submitCmd.MarkFlagRequired("question")
	_ = submitCmd.MarkFlagRequired("answer")

	examCmd.Flags().String("session", "", "Exam session ID (generated when empty)")
}

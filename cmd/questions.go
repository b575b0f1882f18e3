package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/boki/internal/app"
)

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage the question bank",
}

var questionsImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Import questions from a JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open question bank: %w", err)
		}
		defer f.Close()

		return withApp(cmd, func(a *app.App) error {
			n, err := a.ImportQuestions(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d questions.\n", n)
			return nil
		})
	},
}

func init() {
	questionsCmd.AddCommand(questionsImportCmd)
}

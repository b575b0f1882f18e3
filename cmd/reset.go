package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/boki/internal/app"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete answer history and review items",
	Long:  "Delete all answer history and review items. The question bank is kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			return fmt.Errorf("reset deletes all learner data; rerun with --yes to confirm")
		}
		return withApp(cmd, func(a *app.App) error {
			if err := a.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Learner data reset.")
			return nil
		})
	},
}

func init() {
	resetCmd.Flags().Bool("yes", false, "Confirm the reset")
}

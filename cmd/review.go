package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/app"
	"github.com/abhisek/boki/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and maintain the review queue",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List review items, highest priority first",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := listOptions(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			items, err := a.Reviews.ListItems(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReviewItems(items))
			return nil
		})
	},
}

var reviewStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a review session over the current queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := listOptions(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd, func(a *app.App) error {
			sess, err := a.Reviews.StartSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderSession(sess))
			return nil
		})
	},
}

var reviewStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the review queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			st, err := a.Reviews.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderReviewStats(st))
			return nil
		})
	},
}

var reviewWeakCmd = &cobra.Command{
	Use:   "weak",
	Short: "Show categories with the heaviest review load",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			areas, err := a.Reviews.AnalyzeWeakAreas(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderWeakAreas(areas))
			return nil
		})
	},
}

var reviewRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute priorities with time decay",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			n, err := a.Reviews.RefreshPriorities(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d review items.\n", n)
			return nil
		})
	},
}

var reviewCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove answer history past the retention window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			res, err := a.Reviews.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d history rows.\n", res.HistoryRemoved)
			return nil
		})
	},
}

// listOptions reads the queue filter flags.
func listOptions(cmd *cobra.Command) (review.ListOptions, error) {
	category, _ := cmd.Flags().GetString("category")
	levels, _ := cmd.Flags().GetStringSlice("level")
	maxCount, _ := cmd.Flags().GetInt("max")
	excludeRecent, _ := cmd.Flags().GetBool("exclude-recent")

	opts := review.ListOptions{MaxCount: maxCount, ExcludeRecentlyReviewed: excludeRecent}
	if category != "" {
		c, err := answer.ParseCategory(category)
		if err != nil {
			return opts, err
		}
		opts.Category = c
	}
	for _, s := range levels {
		l, err := review.ParseLevel(strings.TrimSpace(s))
		if err != nil {
			return opts, err
		}
		opts.Levels = append(opts.Levels, l)
	}
	return opts, nil
}

func addListFlags(c *cobra.Command) {
	c.Flags().String("category", "", "Filter by category (journal, ledger, trial_balance)")
	c.Flags().StringSlice("level", nil, "Filter by priority level (critical, high, medium, low); repeatable")
	c.Flags().Int("max", 0, "Maximum number of items (default from config)")
	c.Flags().Bool("exclude-recent", false, "Skip items answered within the recent window")
}

func init() {
	addListFlags(reviewListCmd)
	addListFlags(reviewStartCmd)

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewStartCmd)
	reviewCmd.AddCommand(reviewStatsCmd)
	reviewCmd.AddCommand(reviewWeakCmd)
	reviewCmd.AddCommand(reviewRefreshCmd)
	reviewCmd.AddCommand(reviewCleanupCmd)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/boki/internal/answer"
	"github.com/abhisek/boki/internal/app"
	"github.com/abhisek/boki/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return statsOverallCmd.RunE(cmd, args)
	},
}

var statsOverallCmd = &cobra.Command{
	Use:   "overall",
	Short: "Totals, accuracy and study streaks",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			st, err := a.Stats.GetOverallStatistics(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderOverall(st))
			return nil
		})
	},
}

var statsCategoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Per-category accuracy and completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		return withApp(cmd, func(a *app.App) error {
			var list []stats.CategoryStatistics
			if category != "" {
				c, err := answer.ParseCategory(category)
				if err != nil {
					return err
				}
				st, err := a.Stats.GetCategoryStatisticsFor(cmd.Context(), c)
				if err != nil {
					return err
				}
				list = []stats.CategoryStatistics{*st}
			} else {
				var err error
				list, err = a.Stats.GetCategoryStatistics(cmd.Context())
				if err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCategories(list))
			return nil
		})
	},
}

var statsDailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Day by day activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return withApp(cmd, func(a *app.App) error {
			list, err := a.Stats.GetDailyStatistics(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDaily(list))
			return nil
		})
	},
}

var statsGoalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Progress toward daily, weekly, monthly and accuracy goals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			g, err := a.Stats.GetLearningGoals(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderGoals(g))
			return nil
		})
	},
}

var statsTrendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Weekly and monthly progress with recommendations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			tr, err := a.Stats.GetLearningTrends(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTrends(tr))
			return nil
		})
	},
}

var statsCacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Load every statistics view and report cache usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(a *app.App) error {
			if err := a.WarmStats(cmd.Context()); err != nil {
				return err
			}
			rep, err := a.CacheReport()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderCache(rep))
			return nil
		})
	},
}

func init() {
	statsCategoriesCmd.Flags().String("category", "", "Show one category (journal, ledger, trial_balance)")
	statsDailyCmd.Flags().Int("days", stats.DefaultDailyWindow, "Number of days to show")

	statsCmd.AddCommand(statsOverallCmd)
	statsCmd.AddCommand(statsCategoriesCmd)
	statsCmd.AddCommand(statsDailyCmd)
	statsCmd.AddCommand(statsGoalsCmd)
	statsCmd.AddCommand(statsTrendsCmd)
	statsCmd.AddCommand(statsCacheCmd)
}

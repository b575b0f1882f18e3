package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/boki/internal/app"
	"github.com/abhisek/boki/internal/config"
	"github.com/abhisek/boki/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:          "boki",
	Short:        "Bookkeeping exam study tracker",
	Long:         "Boki grades bookkeeping practice answers, keeps a prioritised review queue and reports study statistics.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides BOKI_DB and BOKI_DATABASE_PATH)")
	rootCmd.PersistentFlags().String("config", "", "Path to a boki.yaml config file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(questionsCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(examCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and environment, then applies flag
// overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.Database.Path = p
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Log.Level = lvl
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// openApp builds the application for one command. The caller must Close it.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a, err := app.New(cfg, app.Options{Logger: logger})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// withApp runs fn with an open application and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(a *app.App) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

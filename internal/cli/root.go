package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/cdlmatch/internal/config"
	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/logger"
	"github.com/vijay-prabhu/cdlmatch/internal/rollout"
	"github.com/vijay-prabhu/cdlmatch/internal/service"
)

var (
	// Version info set from main
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"

	// Global flags
	configPath string
	outputFmt  string
)

// SetVersionInfo sets version information from build flags
func SetVersionInfo(v, c, b string) {
	version = v
	commit = c
	buildTime = b
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cdlmatch",
	Short: "A driver-job matching engine for CDL trucking",
	Long: `cdlmatch scores CDL drivers against trucking job postings and keeps
the scores fresh as profiles, postings, and feedback change.

It provides:
  - Hard-criteria rule scoring with per-category breakdowns
  - Optional free-text similarity via an external service
  - Behavior scoring from saves, applies, and feedback
  - A durable recompute queue with a background worker
  - Staged rollout gating for both sides of the marketplace`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default: ~/.config/cdlmatch/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table",
		"output format (table, json)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func initConfig() {
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}
		configPath = filepath.Join(home, ".config", "cdlmatch", "config.toml")
	}
}

// openService loads config and wires the read/write service. The returned
// cleanup closes the database and flushes the logger.
func openService() (*service.Service, *database.DB, *config.Config, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Sync()
		return nil, nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctrl := rollout.NewController(db, cfg.Rollout.CacheTTL(), log)
	svc := service.New(db, ctrl, cfg.Scoring, log)

	cleanup := func() {
		db.Close()
		log.Sync()
	}
	return svc, db, cfg, cleanup, nil
}

// openLogger builds just the config and logger, for commands that manage
// their own wiring
func openLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, log, nil
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cdlmatch %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", buildTime)
	},
}

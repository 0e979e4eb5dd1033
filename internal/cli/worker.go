package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/match"
	"github.com/vijay-prabhu/cdlmatch/internal/recompute"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the recompute worker",
	Long: `Poll the recompute queue and refresh match scores until
interrupted. Safe to run alongside other workers on the same database.

With --once, drain the queue a single time and exit; useful for cron.

Examples:
  cdlmatch worker
  cdlmatch worker --once`,
	RunE: runWorker,
}

var workerOnce bool

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "Drain the queue once and exit")
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, log, err := openLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var semantic match.SemanticScorer
	if cfg.Semantic.Enabled {
		scorer := match.NewServiceScorer(cfg.SemanticURL(), cfg.Semantic.Timeout())
		if err := scorer.Health(cmd.Context()); err != nil {
			log.Warn("similarity service unreachable, scoring degraded until it recovers",
				zap.String("url", cfg.SemanticURL()),
				zap.Error(err))
		}
		semantic = scorer
	} else {
		log.Info("similarity service disabled, all scores will be degraded")
	}

	pipeline := match.NewPipeline(cfg.Scoring, semantic, cfg.Worker.PairConcurrency, log)
	worker := recompute.NewWorker(db, pipeline, cfg.Worker, log)

	if workerOnce {
		return worker.Drain(cmd.Context())
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

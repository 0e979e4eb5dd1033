package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/output"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show matching statistics",
	Long: `Display aggregate counts over drivers, jobs, stored match rows,
and the recompute queue.

Examples:
  cdlmatch stats
  cdlmatch stats -o json`,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

// combinedStats bundles the two aggregates for JSON output
type combinedStats struct {
	Matches *database.MatchStats `json:"matches"`
	Queue   *database.QueueStats `json:"queue"`
}

func runStats(cmd *cobra.Command, args []string) error {
	_, db, _, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	matchStats, err := db.GetMatchStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get match stats: %w", err)
	}
	queueStats, err := db.GetQueueStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get queue stats: %w", err)
	}

	if outputFmt == "json" {
		return output.JSON(combinedStats{Matches: matchStats, Queue: queueStats})
	}

	fmt.Println("Matching")
	if err := output.Table(matchStats); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println("Recompute queue")
	return output.Table(queueStats)
}

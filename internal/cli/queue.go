package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/output"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the recompute queue",
	Long: `List recompute queue entries, newest status first.

Examples:
  cdlmatch queue
  cdlmatch queue --status failed
  cdlmatch queue --summary`,
	RunE: runQueue,
}

var (
	queueStatus  string
	queueLimit   int
	queueSummary bool
)

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.Flags().StringVar(&queueStatus, "status", "pending", "Filter by status (pending, processing, done, failed)")
	queueCmd.Flags().IntVar(&queueLimit, "limit", 50, "Maximum entries to show")
	queueCmd.Flags().BoolVar(&queueSummary, "summary", false, "Show per-status counts instead of entries")
}

func runQueue(cmd *cobra.Command, args []string) error {
	_, db, _, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	if queueSummary {
		stats, err := db.GetQueueStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to get queue stats: %w", err)
		}
		return output.Output(outputFmt, stats)
	}

	status := database.QueueStatus(queueStatus)
	switch status {
	case database.QueuePending, database.QueueProcessing, database.QueueDone, database.QueueFailed:
	default:
		return fmt.Errorf("unknown status %q", queueStatus)
	}

	entries, err := db.ListQueueEntries(cmd.Context(), status, queueLimit)
	if err != nil {
		return fmt.Errorf("failed to list queue entries: %w", err)
	}
	return output.Output(outputFmt, entries)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/cdlmatch/internal/output"
)

var matchesCmd = &cobra.Command{
	Use:   "matches <driver-id>",
	Short: "Show a driver's top job matches",
	Long: `List a driver's best-scoring matches against currently active job
postings, strongest first.

A driver outside the current rollout sees an empty list.

Examples:
  cdlmatch matches drv-42
  cdlmatch matches drv-42 --limit 5 -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runMatches,
}

var matchesLimit int

func init() {
	rootCmd.AddCommand(matchesCmd)
	matchesCmd.Flags().IntVar(&matchesLimit, "limit", 20, "Maximum matches to show")
}

func runMatches(cmd *cobra.Command, args []string) error {
	svc, _, _, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	matches, err := svc.GetTopMatches(cmd.Context(), args[0], matchesLimit)
	if err != nil {
		return fmt.Errorf("failed to get matches: %w", err)
	}
	return output.Output(outputFmt, matches)
}

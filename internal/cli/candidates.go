package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/cdlmatch/internal/output"
	"github.com/vijay-prabhu/cdlmatch/internal/service"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates <company-id>",
	Short: "Show a company's candidate matches",
	Long: `List drivers matched to a company's active postings, strongest
first. Only drivers who consented to being contacted appear, and each
driver shows their best-scoring pairing.

A company outside the current rollout sees an empty list.

Examples:
  cdlmatch candidates co-7
  cdlmatch candidates co-7 --min-score 60`,
	Args: cobra.ExactArgs(1),
	RunE: runCandidates,
}

var (
	candidatesMinScore int
	candidatesLimit    int
)

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesCmd.Flags().IntVar(&candidatesMinScore, "min-score", 0, "Hide candidates below this score")
	candidatesCmd.Flags().IntVar(&candidatesLimit, "limit", 20, "Maximum candidates to show")
}

func runCandidates(cmd *cobra.Command, args []string) error {
	svc, _, _, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	candidates, err := svc.GetCandidateMatches(cmd.Context(), args[0], service.CandidateFilters{
		MinScore: candidatesMinScore,
		Limit:    candidatesLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to get candidates: %w", err)
	}
	return output.Output(outputFmt, candidates)
}

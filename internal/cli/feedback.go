package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback <driver-id> <job-id> <verdict>",
	Short: "Record a driver's verdict on a job",
	Long: `Record what a driver thinks of a job posting and schedule their
matches for recompute.

Verdicts:
  helpful       the suggestion was useful
  not_relevant  the suggestion missed
  hide          never show this job again
  saved         the driver saved the job
  applied       the driver applied

A later verdict for the same pair replaces the earlier one; saves and
applies accumulate.

Examples:
  cdlmatch feedback drv-42 job-19 helpful
  cdlmatch feedback drv-42 job-19 hide`,
	Args: cobra.ExactArgs(3),
	RunE: runFeedback,
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	driverID, jobID, verdict := args[0], args[1], args[2]

	svc, _, _, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	switch verdict {
	case string(database.FeedbackHelpful), string(database.FeedbackNotRelevant), string(database.FeedbackHide):
		err = svc.SubmitFeedback(cmd.Context(), driverID, jobID, database.FeedbackKind(verdict))
	case string(database.ActionSaved), string(database.ActionApplied):
		err = svc.RecordJobAction(cmd.Context(), driverID, jobID, database.ActionKind(verdict))
	default:
		return fmt.Errorf("unknown verdict %q (expected helpful, not_relevant, hide, saved, or applied)", verdict)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Recorded %s for driver %s on job %s\n", verdict, driverID, jobID)
	fmt.Println("Matches will refresh on the next worker pass.")
	return nil
}

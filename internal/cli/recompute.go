package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

var recomputeCmd = &cobra.Command{
	Use:   "recompute <entity-type> <entity-id>",
	Short: "Schedule a recompute for an entity",
	Long: `Enqueue a rescoring request for a driver profile, job posting, or
company profile. If the entity already has a pending request, this is a
no-op.

Entity types: driver_profile, job, company_profile

Examples:
  cdlmatch recompute driver_profile drv-42
  cdlmatch recompute job job-19 --reason relisted`,
	Args: cobra.ExactArgs(2),
	RunE: runRecompute,
}

var recomputeReason string

func init() {
	rootCmd.AddCommand(recomputeCmd)
	recomputeCmd.Flags().StringVar(&recomputeReason, "reason", "manual", "Why the recompute was requested")
}

func runRecompute(cmd *cobra.Command, args []string) error {
	svc, _, _, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := svc.EnqueueRecompute(cmd.Context(), database.EntityType(args[0]), args[1], recomputeReason); err != nil {
		return err
	}
	fmt.Printf("Scheduled recompute for %s %s\n", args[0], args[1])
	return nil
}

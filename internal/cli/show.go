package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
	"github.com/vijay-prabhu/cdlmatch/internal/output"
)

var showCmd = &cobra.Command{
	Use:   "show <subject-id> <object-id>",
	Short: "Show one match in full detail",
	Long: `Show the complete stored score for one match pair: sub-scores,
per-category breakdown, reasons, cautions, and missing profile fields.

For a driver's view the subject is the driver and the object is the job;
for a company's view the subject is the company and the object is the
driver (--role company).

Examples:
  cdlmatch show drv-42 job-19
  cdlmatch show co-7 drv-42 --role company`,
	Args: cobra.ExactArgs(2),
	RunE: runShow,
}

var showRole string

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringVar(&showRole, "role", "driver", "Subject role (driver, company)")
}

func runShow(cmd *cobra.Command, args []string) error {
	role := database.SubjectRole(showRole)
	if role != database.RoleDriver && role != database.RoleCompany {
		return fmt.Errorf("unknown role %q (expected driver or company)", showRole)
	}

	svc, _, _, cleanup, err := openService()
	if err != nil {
		return err
	}
	defer cleanup()

	m, err := svc.GetMatchScore(cmd.Context(), args[0], args[1], role)
	if err != nil {
		return fmt.Errorf("failed to get match: %w", err)
	}
	if m == nil {
		return fmt.Errorf("no visible match for %s / %s", args[0], args[1])
	}
	return output.Output(outputFmt, m)
}

package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/olekukonko/tablewriter"

	"github.com/vijay-prabhu/cdlmatch/internal/database"
)

// Table writes data as a formatted table to stdout
func Table(data interface{}) error {
	return TableTo(os.Stdout, data)
}

// TableTo writes data as a formatted table to the given writer
func TableTo(w io.Writer, data interface{}) error {
	switch v := data.(type) {
	case []database.MatchScore:
		return matchesTable(w, v)
	case *database.MatchScore:
		return matchDetail(w, v)
	case []database.RecomputeEntry:
		return queueTable(w, v)
	case *database.RolloutConfig:
		return rolloutDetail(w, v)
	case *database.MatchStats:
		return matchStatsTable(w, v)
	case *database.QueueStats:
		return queueStatsTable(w, v)
	default:
		return fmt.Errorf("unsupported data type for table output: %T", data)
	}
}

func matchesTable(w io.Writer, matches []database.MatchScore) error {
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches found.")
		return nil
	}

	object := "JOB"
	if matches[0].Role == database.RoleCompany {
		object = "DRIVER"
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tSCORE\tCONFIDENCE\tMODE\tTOP REASON\n", object)
	fmt.Fprintf(tw, "%s\t-----\t----------\t----\t----------\n", strings.Repeat("-", len(object)))

	for _, m := range matches {
		topReason := ""
		if len(m.TopReasons) > 0 {
			topReason = m.TopReasons[0].Text
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\n",
			truncate(m.ObjectID, 36),
			m.OverallScore,
			m.Confidence,
			formatMode(m.DegradedMode),
			truncate(topReason, 40),
		)
	}

	return tw.Flush()
}

func matchDetail(w io.Writer, m *database.MatchScore) error {
	fmt.Fprintf(w, "Subject:     %s (%s)\n", m.SubjectID, m.Role)
	fmt.Fprintf(w, "Object:      %s\n", m.ObjectID)
	fmt.Fprintf(w, "Overall:     %d (%s confidence)\n", m.OverallScore, m.Confidence)
	fmt.Fprintf(w, "Rules:       %d\n", m.RulesScore)
	if m.SemanticScore != nil {
		fmt.Fprintf(w, "Semantic:    %d\n", *m.SemanticScore)
	} else {
		fmt.Fprintf(w, "Semantic:    (unavailable)\n")
	}
	fmt.Fprintf(w, "Behavior:    %d\n", m.BehaviorScore)
	fmt.Fprintf(w, "Mode:        %s\n", formatMode(m.DegradedMode))
	fmt.Fprintf(w, "Computed:    %s\n", m.ComputedAt.Format("Jan 02 2006 15:04"))

	if len(m.Breakdown) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Score breakdown:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, item := range m.Breakdown {
			fmt.Fprintf(tw, "  %s\t%d/%d\t%s\n", item.Category, item.Score, item.MaxScore, item.Detail)
		}
		tw.Flush()
	}

	if len(m.TopReasons) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Why this match:")
		for _, r := range m.TopReasons {
			fmt.Fprintf(w, "  + %s\n", r.Text)
		}
	}
	if len(m.Cautions) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Worth knowing:")
		for _, c := range m.Cautions {
			fmt.Fprintf(w, "  - %s\n", c.Text)
		}
	}
	if len(m.MissingFields) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Complete your profile (%s) for better matches.\n",
			strings.Join(m.MissingFields, ", "))
	}

	return nil
}

func queueTable(w io.Writer, entries []database.RecomputeEntry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tID\tREASON\tSTATUS\tATTEMPTS\tERROR")
	fmt.Fprintln(tw, "------\t--\t------\t------\t--------\t-----")

	for _, e := range entries {
		lastError := ""
		if e.LastError != nil {
			lastError = *e.LastError
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.EntityType,
			truncate(e.EntityID, 36),
			e.Reason,
			e.Status,
			e.Attempts,
			truncate(lastError, 30),
		)
	}

	return tw.Flush()
}

func rolloutDetail(w io.Writer, cfg *database.RolloutConfig) error {
	fmt.Fprintf(w, "Shadow mode:        %s\n", formatBool(cfg.ShadowMode))
	fmt.Fprintf(w, "Driver UI:          %s\n", formatBool(cfg.DriverUIEnabled))
	fmt.Fprintf(w, "Company UI:         %s\n", formatBool(cfg.CompanyUIEnabled))
	if len(cfg.CompanyBetaIDs) > 0 {
		fmt.Fprintf(w, "Company beta list:  %s\n", strings.Join(cfg.CompanyBetaIDs, ", "))
	} else {
		fmt.Fprintf(w, "Company beta list:  (empty)\n")
	}
	fmt.Fprintf(w, "Updated:            %s\n", cfg.UpdatedAt.Format("Jan 02 2006 15:04"))
	return nil
}

func matchStatsTable(w io.Writer, s *database.MatchStats) error {
	table := tablewriter.NewTable(w)
	table.Header("Metric", "Count")
	table.Append("Drivers", strconv.Itoa(s.TotalDrivers))
	table.Append("Active jobs", strconv.Itoa(s.ActiveJobs))
	table.Append("Driver match rows", strconv.Itoa(s.DriverRows))
	table.Append("Company match rows", strconv.Itoa(s.CompanyRows))
	table.Append("Degraded rows", strconv.Itoa(s.Degraded))
	return table.Render()
}

func queueStatsTable(w io.Writer, s *database.QueueStats) error {
	table := tablewriter.NewTable(w)
	table.Header("Status", "Count")
	table.Append("pending", strconv.Itoa(s.Pending))
	table.Append("processing", strconv.Itoa(s.Processing))
	table.Append("done", strconv.Itoa(s.Done))
	table.Append("failed", strconv.Itoa(s.Failed))
	return table.Render()
}

func formatMode(degraded bool) string {
	if degraded {
		return "degraded"
	}
	return "full"
}

func formatBool(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

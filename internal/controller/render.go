package controller

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	m "assay.dev/pkg/assay/internal/model"
)

func renderOutcomeTable(outcomes []m.Outcome) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Test", "Status", "Candidates", "Chosen", "Assertions", "Covered", "Survived"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER, tablewriter.ALIGN_CENTER,
	})

	assertions := 0

	for _, outcome := range outcomes {
		table.Append([]string{
			outcome.Test,
			outcome.Status.String(),
			fmt.Sprintf("%d", outcome.Candidates),
			fmt.Sprintf("%d", outcome.Chosen),
			fmt.Sprintf("%d", outcome.Assertions),
			fmt.Sprintf("%d", outcome.Covered),
			fmt.Sprintf("%d", outcome.Count(m.Survived)),
		})

		assertions += outcome.Assertions
	}

	table.SetFooter([]string{
		fmt.Sprintf("Total Tests %d", len(outcomes)), "", "", "",
		fmt.Sprintf("%d", assertions), "", "",
	})

	table.Render()

	return tableBuffer.String()
}

func renderSummaryTable(summary m.Summary) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Session", "Tests", "Synthesized", "Complete", "Untouched", "Aborted", "Faults", "Score"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.Append([]string{
		shortSession(summary.Session),
		fmt.Sprintf("%d", summary.Tests),
		fmt.Sprintf("%d", summary.Synthesized),
		fmt.Sprintf("%d", summary.Completed),
		fmt.Sprintf("%d", summary.Untouched),
		fmt.Sprintf("%d", summary.Aborted),
		fmt.Sprintf("%d/%d", summary.FaultsKilled, summary.FaultsTotal),
		formatScore(summary.MutationScore),
	})
	table.Render()

	return tableBuffer.String()
}

// renderKillMap lists candidate assertions with the faults they detect;
// chosen ones are starred. Faults detected without a check come last.
func renderKillMap(outcome m.Outcome) string {
	var b strings.Builder

	for _, entry := range outcome.KillMap {
		mark := " "
		if entry.Chosen {
			mark = "*"
		}

		ids := make([]string, 0, len(entry.Faults))
		for _, id := range entry.Faults {
			ids = append(ids, string(id))
		}

		fmt.Fprintf(&b, "%s %d: %s  [%s]\n", mark, entry.Position, entry.Assertion, strings.Join(ids, ", "))
	}

	if len(outcome.Forced) > 0 {
		ids := make([]string, 0, len(outcome.Forced))
		for _, id := range outcome.Forced {
			ids = append(ids, string(id))
		}

		fmt.Fprintf(&b, "  no check needed  [%s]\n", strings.Join(ids, ", "))
	}

	return b.String()
}

func formatScore(score float64) string {
	return fmt.Sprintf("%.2f%%", score*100)
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

func shortSession(id string) string {
	if len(id) > 8 {
		return id[:8]
	}

	return id
}

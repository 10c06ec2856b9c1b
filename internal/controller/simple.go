package controller

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	m "assay.dev/pkg/assay/internal/model"
)

// SimpleUI implements UI by printing to the command's output.
type SimpleUI struct {
	cmd *cobra.Command
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
	// SimpleUI doesn't block - it just prints and continues
}

// DisplaySession announces a synthesis session.
func (s *SimpleUI) DisplaySession(ctx context.Context, session string, tests int, parallel int) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("Session %s: synthesizing %d test(s) with %d worker(s)\n", shortSession(session), tests, parallel)
}

// DisplayOutcome prints one finished test and its oracle.
func (s *SimpleUI) DisplayOutcome(ctx context.Context, outcome m.Outcome) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("%s -> %s (%d of %d candidates, %d fault(s) covered, %s)\n",
		outcome.Test, outcome.Status, outcome.Chosen, outcome.Candidates, outcome.Covered, formatDuration(outcome.Duration))

	if outcome.Status.Aborted() || outcome.Status == m.Untouched {
		return
	}

	if survived := outcome.Count(m.Survived); survived > 0 {
		s.printf("Survived: %d fault(s)\n", survived)
	}

	if outcome.Code != "" {
		s.printf("%s\n", outcome.Code)
	}
}

// DisplaySummary prints the session totals.
func (s *SimpleUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.printf("\n%s", renderSummaryTable(summary))
	s.printf("Mutation score: %s\n", formatScore(summary.MutationScore))
}

// DisplayReport prints a saved report.
func (s *SimpleUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.printf("\n%s", renderOutcomeTable(report.Outcomes))

	for _, outcome := range report.Outcomes {
		if len(outcome.KillMap) == 0 && len(outcome.Forced) == 0 {
			continue
		}

		s.printf("\n%s\n%s", outcome.Test, renderKillMap(outcome))
	}

	s.printf("\n%s", renderSummaryTable(report.Summary))
	s.printf("Mutation score: %s\n", formatScore(report.Summary.MutationScore))

	return nil
}

func (s *SimpleUI) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.OutOrStdout(), format, args...)
}

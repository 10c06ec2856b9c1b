// Package domain synthesizes test oracles: it runs test cases against the
// faults they reach, keeps the assertions that detect those faults, and
// drives whole suites under a time budget.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"assay.dev/pkg/assay/internal/adapter"
	"assay.dev/pkg/assay/internal/controller"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/testcase"
	pkg "assay.dev/pkg/assay/pkg"
)

// ErrExecCommand is returned when the --exec command cannot be split into a
// program and its arguments.
var ErrExecCommand = errors.New("invalid exec command")

// SynthArgs contains the arguments for synthesizing the oracles of a scenario.
type SynthArgs struct {
	Scenario      string
	Reports       string
	Parallel      int
	TestTimeout   time.Duration
	TimeoutBudget int
	MaxFaults     int
	// PhaseBudget bounds the whole session; zero means unbounded.
	PhaseBudget time.Duration
	// FallbackFraction and FallbackTime switch the remaining tests to
	// complete oracles when FallbackTime of the budget is spent while fewer
	// than FallbackFraction of the tests are done.
	FallbackFraction float64
	FallbackTime     float64
	// Exec runs tests through an external command instead of replaying the
	// scenario's recordings. It is split on white space; quoting is not
	// supported, so arguments containing spaces need a wrapper script.
	Exec string
}

// ViewArgs contains the arguments for displaying a saved report.
type ViewArgs struct {
	Reports string
}

// Workflow defines the interface for the oracle synthesis workflow.
type Workflow interface {
	Synthesize(ctx context.Context, args SynthArgs) error
	View(ctx context.Context, args ViewArgs) error
}

type workflow struct {
	adapter.ReportStore
	controller.UI
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
func NewWorkflow(reportStore adapter.ReportStore, ui controller.UI) Workflow {
	return &workflow{
		ReportStore: reportStore,
		UI:          ui,
	}
}

func (w *workflow) Synthesize(ctx context.Context, args SynthArgs) error {
	scenario, err := adapter.LoadScenario(args.Scenario)
	if err != nil {
		slog.Error("Failed to load scenario", "path", args.Scenario, "error", err)
		return fmt.Errorf("load scenario: %w", err)
	}

	executor, err := executorFor(scenario, args)
	if err != nil {
		return err
	}

	session := NewSession(args.TimeoutBudget)
	orchestrator := NewOrchestrator(executor, scenario.Catalogue(), session, Config{
		Parallel:         args.Parallel,
		MaxFaultsPerTest: args.MaxFaults,
	})

	if err := w.Start(ctx, controller.WithSynthMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	defer w.Close(ctx)

	tests := scenario.TestCases()
	w.DisplaySession(ctx, session.ID, len(tests), max(args.Parallel, 1))

	outcomes, err := pkg.NewFileSpill[m.Outcome]("")
	if err != nil {
		return fmt.Errorf("create outcome spill: %w", err)
	}

	defer func() {
		if err := outcomes.Remove(); err != nil {
			slog.Warn("Failed to remove outcome spill", "path", outcomes.Path(), "error", err)
		}
	}()

	start := time.Now()
	if err := w.run(ctx, orchestrator, tests, outcomes, newBudget(args)); err != nil {
		return err
	}

	report, err := buildReport(session, outcomes, time.Since(start))
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	if err := w.SaveReport(args.Reports, report); err != nil {
		slog.Error("Failed to save report", "dir", args.Reports, "error", err)
		return fmt.Errorf("save report: %w", err)
	}

	w.DisplaySummary(ctx, report.Summary)
	w.Wait(ctx)

	return nil
}

func (w *workflow) View(ctx context.Context, args ViewArgs) error {
	report, err := w.LoadReport(args.Reports)
	if err != nil {
		slog.Error("Failed to load report", "dir", args.Reports, "error", err)
		return fmt.Errorf("load report: %w", err)
	}

	if err := w.Start(ctx, controller.WithViewMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}

	defer w.Close(ctx)

	if err := w.DisplayReport(ctx, report); err != nil {
		slog.Error("Failed to display report", "error", err)
		return fmt.Errorf("display: %w", err)
	}

	w.Wait(ctx)

	return nil
}

// run synthesizes every test in order. A test the executor cannot run is
// reported as failed and the session moves on; only cancellation of ctx
// stops it.
func (w *workflow) run(
	ctx context.Context,
	orchestrator Orchestrator,
	tests []*testcase.TestCase,
	outcomes pkg.FileSpill[m.Outcome],
	budget budget,
) error {
	start := time.Now()

	for done, tc := range tests {
		var (
			outcome m.Outcome
			err     error
		)

		switch budget.phase(done, len(tests), time.Since(start)) {
		case phaseSynthesize:
			outcome, err = orchestrator.Synthesize(ctx, tc)
		case phaseComplete:
			outcome, err = orchestrator.Complete(ctx, tc)
		case phaseUntouched:
			outcome = m.Outcome{Test: tc.Name, Status: m.Untouched, Assertions: len(tc.Assertions()), Code: tc.Code()}
		}

		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("synthesize %s: %w", tc.Name, ctx.Err())
			}

			slog.Error("Failed to synthesize test", "test", tc.Name, "error", err)
			outcome = m.Outcome{Test: tc.Name, Status: m.Failed, Assertions: len(tc.Assertions()), Code: tc.Code()}
		}

		if err := outcomes.Append(outcome); err != nil {
			return fmt.Errorf("spill outcome of %s: %w", tc.Name, err)
		}

		w.DisplayOutcome(ctx, outcome)
	}

	return nil
}

func buildReport(session *Session, outcomes pkg.FileSpill[m.Outcome], elapsed time.Duration) (m.Report, error) {
	report := m.Report{Summary: m.Summary{Session: session.ID, Duration: elapsed}}

	err := outcomes.Range(func(_ uint64, outcome m.Outcome) error {
		report.Summary.Add(outcome)
		report.Outcomes = append(report.Outcomes, outcome)

		return nil
	})
	if err != nil {
		return m.Report{}, err
	}

	killed, total, score, err := mutationScoreFromOutcomes(outcomes)
	if err != nil {
		return m.Report{}, err
	}

	report.Summary.FaultsKilled = killed
	report.Summary.FaultsTotal = total
	report.Summary.MutationScore = score

	return report, nil
}

func executorFor(scenario *adapter.Scenario, args SynthArgs) (adapter.Executor, error) {
	if args.Exec == "" {
		return adapter.NewReplayExecutor(scenario), nil
	}

	if strings.ContainsAny(args.Exec, `"'\`) {
		return nil, fmt.Errorf("%w: %q: quoting is not supported, use a wrapper script", ErrExecCommand, args.Exec)
	}

	fields := strings.Fields(args.Exec)
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty command %q", ErrExecCommand, args.Exec)
	}

	return adapter.NewCommandExecutor(fields[0], fields[1:], "", args.TestTimeout), nil
}

package domain_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	adaptermocks "assay.dev/pkg/assay/internal/adapter/mocks"
	controllermocks "assay.dev/pkg/assay/internal/controller/mocks"
	"assay.dev/pkg/assay/internal/domain"
	m "assay.dev/pkg/assay/internal/model"
)

var stackScenario = filepath.Join("..", "..", "examples", "stack", "scenario.yaml")

func expectSynthUI(ui *controllermocks.MockUI, tests int) {
	ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	ui.On("DisplaySession", mock.Anything, mock.AnythingOfType("string"), tests, 1).Return().Once()
	ui.On("DisplayOutcome", mock.Anything, mock.Anything).Return().Times(tests)
	ui.On("Close", mock.Anything).Return().Once()
}

func TestWorkflow_Synthesize(t *testing.T) {
	reportStore := adaptermocks.NewMockReportStore(t)
	ui := controllermocks.NewMockUI(t)

	var saved m.Report

	expectSynthUI(ui, 3)
	ui.On("DisplaySummary", mock.Anything, mock.MatchedBy(func(s m.Summary) bool {
		return s.Tests == 3
	})).Return().Once()
	ui.On("Wait", mock.Anything).Return().Once()
	reportStore.On("SaveReport", "reports", mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(m.Report) }).
		Return(nil).Once()

	err := domain.NewWorkflow(reportStore, ui).Synthesize(context.Background(), domain.SynthArgs{
		Scenario:      stackScenario,
		Reports:       "reports",
		Parallel:      1,
		TimeoutBudget: 3,
	})
	require.NoError(t, err)

	require.Len(t, saved.Outcomes, 3)

	pushPeek := saved.Outcomes[0]
	require.Equal(t, "TestPushPeek", pushPeek.Test)
	require.Equal(t, m.Synthesized, pushPeek.Status)
	require.Equal(t, []m.FaultResult{
		{Fault: "f1", Status: m.Killed},
		{Fault: "f2", Status: m.Killed},
		{Fault: "f3", Status: m.Survived},
		{Fault: "f4", Status: m.TimedOut},
	}, pushPeek.Faults)
	require.Equal(t, 3, pushPeek.Covered)
	require.Equal(t, 2, pushPeek.Chosen)
	require.Equal(t, "v0 := NewStack()\n"+
		"require.True(t, v0.Len() == 0)\n"+
		"v0.Push(3)\n"+
		"v2 := v0.Len()\n"+
		"v3 := v0.Peek()\n"+
		"require.True(t, cmp.Compare(v3, v2) == 1)\n", pushPeek.Code)

	popEmpty := saved.Outcomes[1]
	require.Equal(t, m.Synthesized, popEmpty.Status)
	require.Equal(t, []m.FaultResult{{Fault: "f5", Status: m.Survived}}, popEmpty.Faults)
	require.Zero(t, popEmpty.Assertions)

	require.Equal(t, m.BaselineException, saved.Outcomes[2].Status)
	require.Zero(t, saved.Outcomes[2].Assertions)

	summary := saved.Summary
	require.NotEmpty(t, summary.Session)
	require.Equal(t, 3, summary.Tests)
	require.Equal(t, 2, summary.Synthesized)
	require.Equal(t, 1, summary.Aborted)
	require.Equal(t, 2, summary.Assertions)
	require.Equal(t, 3, summary.FaultsKilled)
	require.Equal(t, 5, summary.FaultsTotal)
	require.InDelta(t, 0.6, summary.MutationScore, 1e-9)
}

func TestWorkflow_Synthesize_PhaseBudgetSpent(t *testing.T) {
	reportStore := adaptermocks.NewMockReportStore(t)
	ui := controllermocks.NewMockUI(t)

	var saved m.Report

	expectSynthUI(ui, 3)
	ui.On("DisplaySummary", mock.Anything, mock.Anything).Return().Once()
	ui.On("Wait", mock.Anything).Return().Once()
	reportStore.On("SaveReport", "reports", mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(m.Report) }).
		Return(nil).Once()

	err := domain.NewWorkflow(reportStore, ui).Synthesize(context.Background(), domain.SynthArgs{
		Scenario:    stackScenario,
		Reports:     "reports",
		PhaseBudget: 1,
	})
	require.NoError(t, err)

	require.Equal(t, 3, saved.Summary.Untouched)

	for _, outcome := range saved.Outcomes {
		require.Equal(t, m.Untouched, outcome.Status)
	}
}

func TestWorkflow_Synthesize_ScenarioError(t *testing.T) {
	reportStore := adaptermocks.NewMockReportStore(t)
	ui := controllermocks.NewMockUI(t)

	err := domain.NewWorkflow(reportStore, ui).Synthesize(context.Background(), domain.SynthArgs{
		Scenario: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestWorkflow_Synthesize_ExecCommandRejected(t *testing.T) {
	for _, exec := range []string{"   ", `go test -run "TestPush Peek"`, `sh -c 'go test'`} {
		t.Run(exec, func(t *testing.T) {
			reportStore := adaptermocks.NewMockReportStore(t)
			ui := controllermocks.NewMockUI(t)

			err := domain.NewWorkflow(reportStore, ui).Synthesize(context.Background(), domain.SynthArgs{
				Scenario: stackScenario,
				Exec:     exec,
			})
			require.ErrorIs(t, err, domain.ErrExecCommand)
		})
	}
}

func TestWorkflow_Synthesize_StartError(t *testing.T) {
	reportStore := adaptermocks.NewMockReportStore(t)
	ui := controllermocks.NewMockUI(t)

	startErr := errors.New("start failed")
	ui.On("Start", mock.Anything, mock.Anything).Return(startErr).Once()

	err := domain.NewWorkflow(reportStore, ui).Synthesize(context.Background(), domain.SynthArgs{
		Scenario: stackScenario,
	})
	require.ErrorIs(t, err, startErr)
}

func TestWorkflow_Synthesize_SaveError(t *testing.T) {
	reportStore := adaptermocks.NewMockReportStore(t)
	ui := controllermocks.NewMockUI(t)

	saveErr := errors.New("disk full")

	expectSynthUI(ui, 3)
	reportStore.On("SaveReport", "reports", mock.Anything).Return(saveErr).Once()

	err := domain.NewWorkflow(reportStore, ui).Synthesize(context.Background(), domain.SynthArgs{
		Scenario: stackScenario,
		Reports:  "reports",
	})
	require.ErrorIs(t, err, saveErr)
}

func TestWorkflow_Synthesize_Cancelled(t *testing.T) {
	reportStore := adaptermocks.NewMockReportStore(t)
	ui := controllermocks.NewMockUI(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	ui.On("DisplaySession", mock.Anything, mock.Anything, 3, 1).Return().Once()
	ui.On("Close", mock.Anything).Return().Once()

	err := domain.NewWorkflow(reportStore, ui).Synthesize(ctx, domain.SynthArgs{
		Scenario: stackScenario,
		Reports:  "reports",
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWorkflow_View(t *testing.T) {
	reportStore := adaptermocks.NewMockReportStore(t)
	ui := controllermocks.NewMockUI(t)

	report := m.Report{Summary: m.Summary{Session: "s1", Tests: 1}}

	reportStore.On("LoadReport", "reports").Return(report, nil).Once()
	ui.On("Start", mock.Anything, mock.Anything).Return(nil).Once()
	ui.On("DisplayReport", mock.Anything, report).Return(nil).Once()
	ui.On("Wait", mock.Anything).Return().Once()
	ui.On("Close", mock.Anything).Return().Once()

	err := domain.NewWorkflow(reportStore, ui).View(context.Background(), domain.ViewArgs{Reports: "reports"})
	require.NoError(t, err)
}

func TestWorkflow_View_LoadError(t *testing.T) {
	reportStore := adaptermocks.NewMockReportStore(t)
	ui := controllermocks.NewMockUI(t)

	loadErr := errors.New("no report")
	reportStore.On("LoadReport", "reports").Return(m.Report{}, loadErr).Once()

	err := domain.NewWorkflow(reportStore, ui).View(context.Background(), domain.ViewArgs{Reports: "reports"})
	require.ErrorIs(t, err, loadErr)
}

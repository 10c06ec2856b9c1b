package controller

import (
	"bytes"
	"time"

	"github.com/spf13/cobra"

	m "assay.dev/pkg/assay/internal/model"
)

func newTestCommand() (*cobra.Command, *bytes.Buffer) {
	var buf bytes.Buffer

	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	return cmd, &buf
}

func synthesizedOutcome() m.Outcome {
	return m.Outcome{
		Test:   "TestPushPeek",
		Status: m.Synthesized,
		Faults: []m.FaultResult{
			{Fault: "f1", Status: m.Killed},
			{Fault: "f2", Status: m.Survived},
			{Fault: "f3", Status: m.TimedOut},
		},
		KillMap: []m.KillEntry{
			{Assertion: "v2 == 1", Position: 3, Faults: []m.FaultID{"f1"}, Chosen: true},
			{Assertion: "v0 != nil", Position: 1, Faults: []m.FaultID{"f1"}},
		},
		Forced:        []m.FaultID{"f3"},
		Candidates:    2,
		Chosen:        1,
		Covered:       2,
		Assertions:    1,
		CandidateCode: "v0 := NewStack()\nrequire.True(t, v0 != nil)\nv2 := v0.Len()\nrequire.True(t, v2 == 1)\n",
		Code:          "v0 := NewStack()\nv2 := v0.Len()\nrequire.True(t, v2 == 1)\n",
		Duration:      1500 * time.Millisecond,
	}
}

func testReport() m.Report {
	return m.Report{
		Summary: m.Summary{
			Session:       "0123456789abcdef",
			Tests:         2,
			Synthesized:   1,
			Aborted:       1,
			Assertions:    1,
			FaultsKilled:  1,
			FaultsTotal:   2,
			MutationScore: 0.5,
		},
		Outcomes: []m.Outcome{
			synthesizedOutcome(),
			{Test: "TestPushPanics", Status: m.BaselineException},
		},
	}
}

package model

import (
	"fmt"
	"time"
)

// FaultStatus is the verdict for one fault against one test case.
type FaultStatus int

const (
	// Killed indicates an assertion distinguishes the fault.
	Killed FaultStatus = iota
	// Survived indicates no observation distinguished the fault.
	Survived
	// Skipped indicates the fault exhausted its retry budget and was not run.
	Skipped
	// TimedOut indicates the run exceeded the per-test timeout (counts as killed).
	TimedOut
	// Crashed indicates the run raised an exception the baseline did not (counts as killed).
	Crashed
	// Errored indicates the executor failed; the fault is left out of the score.
	Errored
)

func (s FaultStatus) String() string {
	switch s {
	case Killed:
		return "killed"
	case Survived:
		return "survived"
	case Skipped:
		return "skipped"
	case TimedOut:
		return "timed out"
	case Crashed:
		return "crashed"
	case Errored:
		return "error"
	}

	return "unknown"
}

// MarshalText renders the status name.
func (s FaultStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *FaultStatus) UnmarshalText(text []byte) error {
	for _, status := range []FaultStatus{Killed, Survived, Skipped, TimedOut, Crashed, Errored} {
		if status.String() == string(text) {
			*s = status
			return nil
		}
	}

	return fmt.Errorf("unknown fault status %q", text)
}

// Detected reports whether the status counts toward coverage.
func (s FaultStatus) Detected() bool {
	return s == Killed || s == TimedOut || s == Crashed
}

// OutcomeStatus summarizes what synthesis did for one test case.
type OutcomeStatus int

const (
	// Synthesized means mutation analysis ran and assertions were chosen.
	Synthesized OutcomeStatus = iota
	// Complete means every baseline observation became an assertion (no mutation analysis).
	Complete
	// BaselineTimeout means the unmodified run timed out; no oracle produced.
	BaselineTimeout
	// BaselineException means the unmodified run raised out of the test body; no oracle produced.
	BaselineException
	// Untouched means the suite ran out of time before reaching the test.
	Untouched
	// Empty means the test case has no statements.
	Empty
	// Failed means the executor could not run the test case.
	Failed
)

func (s OutcomeStatus) String() string {
	switch s {
	case Synthesized:
		return "synthesized"
	case Complete:
		return "complete"
	case BaselineTimeout:
		return "baseline timeout"
	case BaselineException:
		return "baseline exception"
	case Untouched:
		return "untouched"
	case Empty:
		return "empty"
	case Failed:
		return "failed"
	}

	return "unknown"
}

// MarshalText renders the status name.
func (s OutcomeStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *OutcomeStatus) UnmarshalText(text []byte) error {
	for _, status := range []OutcomeStatus{Synthesized, Complete, BaselineTimeout, BaselineException, Untouched, Empty, Failed} {
		if status.String() == string(text) {
			*s = status
			return nil
		}
	}

	return fmt.Errorf("unknown outcome status %q", text)
}

// Aborted reports whether no oracle was produced.
func (s OutcomeStatus) Aborted() bool {
	return s == BaselineTimeout || s == BaselineException || s == Failed
}

// FaultResult is the per-fault verdict recorded in an Outcome.
type FaultResult struct {
	Fault  FaultID     `yaml:"fault"`
	Status FaultStatus `yaml:"status"`
}

// KillEntry maps one rendered assertion to the faults it detects.
type KillEntry struct {
	Assertion string    `yaml:"assertion"`
	Position  int       `yaml:"position"`
	Faults    []FaultID `yaml:"faults"`
	Chosen    bool      `yaml:"chosen"`
}

// Outcome is the record of one synthesis run for one test case. It contains
// only plain data so it can be spilled and persisted.
type Outcome struct {
	Test          string        `yaml:"test"`
	Status        OutcomeStatus `yaml:"status"`
	Faults        []FaultResult `yaml:"faults,omitempty"`
	KillMap       []KillEntry   `yaml:"kill_map,omitempty"`
	// Forced lists the faults detected by running the test alone.
	Forced        []FaultID     `yaml:"forced,omitempty"`
	Candidates    int           `yaml:"candidates"`
	Chosen        int           `yaml:"chosen"`
	Covered       int           `yaml:"covered"`
	// Assertions is the number of checks left on the test case.
	Assertions    int           `yaml:"assertions"`
	CandidateCode string        `yaml:"candidate_code,omitempty"`
	Code          string        `yaml:"code"`
	Duration      time.Duration `yaml:"duration"`
}

// Count returns the number of faults with the given status.
func (o Outcome) Count(status FaultStatus) int {
	n := 0

	for _, f := range o.Faults {
		if f.Status == status {
			n++
		}
	}

	return n
}

// Summary aggregates a synthesis session.
type Summary struct {
	Session       string  `yaml:"session"`
	Tests         int     `yaml:"tests"`
	Synthesized   int     `yaml:"synthesized"`
	Completed     int     `yaml:"completed"`
	Untouched     int     `yaml:"untouched"`
	Aborted       int     `yaml:"aborted"`
	Assertions    int     `yaml:"assertions"`
	FaultsKilled  int     `yaml:"faults_killed"`
	FaultsTotal   int     `yaml:"faults_total"`
	MutationScore float64 `yaml:"mutation_score"`

	// Duration is the wall-clock time of the whole session.
	Duration time.Duration `yaml:"duration"`
}

// Add counts outcome into the summary. Fault totals are session wide and
// computed separately.
func (s *Summary) Add(outcome Outcome) {
	s.Tests++

	switch {
	case outcome.Status == Synthesized:
		s.Synthesized++
	case outcome.Status == Complete:
		s.Completed++
	case outcome.Status == Untouched:
		s.Untouched++
	case outcome.Status.Aborted():
		s.Aborted++
	}

	s.Assertions += outcome.Assertions
}

// Report is what a synthesis session persists.
type Report struct {
	Summary  Summary   `yaml:"summary"`
	Outcomes []Outcome `yaml:"outcomes"`
}

// Package adapter connects oracle synthesis to the machinery that runs test
// cases against the program under test and its faulty variants.
package adapter

import (
	"context"
	"errors"

	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/testcase"
	"assay.dev/pkg/assay/internal/trace"
)

var (
	// ErrUnknownTest is returned when an executor has no way to run a test case.
	ErrUnknownTest = errors.New("unknown test case")
	// ErrFaultActive is returned when activation and deactivation are not paired.
	ErrFaultActive = errors.New("fault activation not paired")
	// ErrMalformedTest is returned when a statement consumes a value that is
	// not produced before it.
	ErrMalformedTest = errors.New("malformed test case")
	// ErrRunInFlight is returned when an abandoned run is still executing and
	// the switch cannot tell its fault sites from those of a new run.
	ErrRunInFlight = errors.New("abandoned run still in flight")
)

// NoException marks the absence of an exception position.
const NoException = -1

// ExecutionResult is everything one run of one test case produced.
type ExecutionResult struct {
	Traces trace.Bundle
	// TimedOut is set when the run was abandoned at the deadline. Traces of a
	// timed-out run are never diffed.
	TimedOut bool
	// HadUncaughtException is set when an exception escaped the test body.
	HadUncaughtException bool
	// ExceptionPosition is the statement the uncaught exception escaped from,
	// or NoException.
	ExceptionPosition int
	// Exceptions maps every statement that raised to the exception message,
	// whether the test declared it or not.
	Exceptions map[int]string
	// Touched lists the faults whose code the run reached.
	Touched []m.FaultID
}

// FirstException is the earliest statement that raised, or NoException.
// Statements at and after it produced no values.
func (r ExecutionResult) FirstException() int {
	first := r.ExceptionPosition
	for pos := range r.Exceptions {
		if first == NoException || pos < first {
			first = pos
		}
	}

	return first
}

// RaisedBeyond reports whether r raised an exception that baseline did not:
// an uncaught one, or one at a statement that completed in baseline.
func (r ExecutionResult) RaisedBeyond(baseline ExecutionResult) bool {
	if r.HadUncaughtException && !baseline.HadUncaughtException {
		return true
	}

	for pos := range r.Exceptions {
		if _, ok := baseline.Exceptions[pos]; !ok {
			return true
		}
	}

	return false
}

// Executor runs test cases. Activate and Deactivate bracket every run with a
// fault; callers must serialize Activate/Execute/Deactivate unless Isolated
// reports true.
type Executor interface {
	// Execute runs tc with fault active, or against the unmodified program
	// when fault is nil. A run that times out or raises is not an error.
	Execute(ctx context.Context, tc *testcase.TestCase, fault *m.Fault) (ExecutionResult, error)
	Activate(ctx context.Context, fault m.Fault) error
	Deactivate(ctx context.Context, fault m.Fault) error
	Isolated() bool
}

// Catalogue knows the faults of the program under test.
type Catalogue interface {
	// FaultsTouchedBy restricts the fault universe to those reached by result,
	// ordered by id.
	FaultsTouchedBy(result ExecutionResult) []m.Fault
}

// StaticCatalogue is a Catalogue over a fixed fault list.
type StaticCatalogue struct {
	faults map[m.FaultID]m.Fault
}

// NewCatalogue indexes faults by id. Later duplicates replace earlier ones.
func NewCatalogue(faults []m.Fault) *StaticCatalogue {
	c := &StaticCatalogue{faults: make(map[m.FaultID]m.Fault, len(faults))}
	for _, f := range faults {
		c.faults[f.ID] = f
	}

	return c
}

// Fault looks up a fault by id.
func (c *StaticCatalogue) Fault(id m.FaultID) (m.Fault, bool) {
	f, ok := c.faults[id]
	return f, ok
}

// FaultsTouchedBy returns the known faults listed in result.Touched.
func (c *StaticCatalogue) FaultsTouchedBy(result ExecutionResult) []m.Fault {
	var out []m.Fault

	for _, id := range m.SortFaultIDs(result.Touched) {
		if f, ok := c.faults[id]; ok {
			out = append(out, f)
		}
	}

	return out
}

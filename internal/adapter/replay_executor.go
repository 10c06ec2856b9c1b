package adapter

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/testcase"
)

// ReplayExecutor plays back the runs recorded in a Scenario. A fault without
// a recording behaves exactly like the unmodified program.
type ReplayExecutor struct {
	*StaticCatalogue

	tests map[string]TestRecord

	mu     sync.Mutex
	active *m.FaultID
}

// NewReplayExecutor returns an executor and catalogue for s.
func NewReplayExecutor(s *Scenario) *ReplayExecutor {
	e := &ReplayExecutor{
		StaticCatalogue: s.Catalogue(),
		tests:           make(map[string]TestRecord, len(s.Tests)),
	}

	for _, t := range s.Tests {
		e.tests[t.Name] = t
	}

	return e
}

// Activate marks fault as the active variant.
func (e *ReplayExecutor) Activate(ctx context.Context, fault m.Fault) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active != nil {
		return fmt.Errorf("%w: activating %s while %s is active", ErrFaultActive, fault.ID, *e.active)
	}

	id := fault.ID
	e.active = &id

	return nil
}

// Deactivate clears fault. It must be the active fault.
func (e *ReplayExecutor) Deactivate(_ context.Context, fault m.Fault) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.active == nil || *e.active != fault.ID {
		return fmt.Errorf("%w: deactivating %s which is not active", ErrFaultActive, fault.ID)
	}

	e.active = nil

	return nil
}

// Isolated is false: the active fault is shared state.
func (e *ReplayExecutor) Isolated() bool {
	return false
}

// Execute returns the recording for tc under fault.
func (e *ReplayExecutor) Execute(ctx context.Context, tc *testcase.TestCase, fault *m.Fault) (ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return ExecutionResult{}, err
	}

	record, ok := e.tests[tc.Name]
	if !ok {
		return ExecutionResult{}, fmt.Errorf("%w: %s", ErrUnknownTest, tc.Name)
	}

	if err := e.checkActive(fault); err != nil {
		return ExecutionResult{}, err
	}

	key := BaselineRun
	if fault != nil {
		key = string(fault.ID)
	}

	run, ok := record.Runs[key]
	if !ok {
		run, ok = record.Runs[BaselineRun]
		if !ok {
			return ExecutionResult{}, fmt.Errorf("%w: %s has no %s run", ErrUnknownTest, tc.Name, BaselineRun)
		}
	}

	res, err := run.Result(tc)
	if err != nil {
		slog.Error("Failed to replay run", "test", tc.Name, "run", key, "error", err)
		return ExecutionResult{}, fmt.Errorf("failed to replay %s/%s: %w", tc.Name, key, err)
	}

	return res, nil
}

func (e *ReplayExecutor) checkActive(fault *m.Fault) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case fault == nil && e.active != nil:
		return fmt.Errorf("%w: baseline run while %s is active", ErrFaultActive, *e.active)
	case fault != nil && (e.active == nil || *e.active != fault.ID):
		return fmt.Errorf("%w: running %s without activating it", ErrFaultActive, fault.ID)
	}

	return nil
}

package domain

import (
	"context"
	"errors"
	"sync"

	"assay.dev/pkg/assay/internal/adapter"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/observation"
	"assay.dev/pkg/assay/internal/testcase"
	"assay.dev/pkg/assay/internal/trace"
)

var (
	v0 = m.NewVarRef(0, "*Stack")
	v2 = m.NewVarRef(2, "int")
	v3 = m.NewVarRef(3, "int")
)

// stackTest is NewStack, Push(3), Len() and, when peek is set, Peek().
func stackTest(peek bool) *testcase.TestCase {
	statements := []testcase.Statement{
		{Code: "NewStack()", ReturnType: "*Stack"},
		{Code: "v0.Push(3)", Uses: []int{0}},
		{Code: "v0.Len()", ReturnType: "int", Uses: []int{0}},
	}

	if peek {
		statements = append(statements, testcase.Statement{Code: "v0.Peek()", ReturnType: "int", Uses: []int{0}})
	}

	return testcase.New("TestStack", statements...)
}

type fact struct {
	position int
	variable m.VarRef
	obs      observation.Observation
}

func primitive(position int, v m.VarRef, value int64) fact {
	return fact{position: position, variable: v, obs: observation.Primitive{Value: m.Int(value)}}
}

func notNull(position int, v m.VarRef) fact {
	return fact{position: position, variable: v, obs: observation.Null{IsNull: false}}
}

func inspector(position int, v m.VarRef, method string, value int64) fact {
	return fact{position: position, variable: v, obs: observation.NewInspector(map[string]m.Value{method: m.Int(value)})}
}

func bundle(facts ...fact) trace.Bundle {
	bb := trace.NewBundleBuilder()
	for _, f := range facts {
		bb.Record(f.position, f.variable, f.obs)
	}

	return bb.Freeze()
}

func completed(touched []m.FaultID, facts ...fact) adapter.ExecutionResult {
	return adapter.ExecutionResult{
		Traces:            bundle(facts...),
		ExceptionPosition: adapter.NoException,
		Touched:           touched,
	}
}

const baselineRun = m.FaultID("")

// fakeExecutor returns canned results keyed by fault id and checks that
// activation is paired around every fault run.
type fakeExecutor struct {
	results  map[m.FaultID]adapter.ExecutionResult
	errs     map[m.FaultID]error
	isolated bool

	mu          sync.Mutex
	active      map[m.FaultID]bool
	calls       map[m.FaultID]int
	deactivated map[m.FaultID]int
	unpaired    bool
}

func newFakeExecutor(results map[m.FaultID]adapter.ExecutionResult) *fakeExecutor {
	return &fakeExecutor{
		results:     results,
		errs:        make(map[m.FaultID]error),
		active:      make(map[m.FaultID]bool),
		calls:       make(map[m.FaultID]int),
		deactivated: make(map[m.FaultID]int),
	}
}

func (e *fakeExecutor) Execute(ctx context.Context, _ *testcase.TestCase, fault *m.Fault) (adapter.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return adapter.ExecutionResult{}, err
	}

	id := baselineRun
	if fault != nil {
		id = fault.ID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls[id]++

	if fault != nil && !e.active[id] {
		e.unpaired = true
	}

	if err, ok := e.errs[id]; ok {
		return adapter.ExecutionResult{}, err
	}

	result, ok := e.results[id]
	if !ok {
		return adapter.ExecutionResult{}, errors.New("no canned result")
	}

	return result, nil
}

func (e *fakeExecutor) Activate(_ context.Context, fault m.Fault) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.isolated && len(e.active) > 0 {
		e.unpaired = true
	}

	e.active[fault.ID] = true

	return nil
}

func (e *fakeExecutor) Deactivate(_ context.Context, fault m.Fault) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.active[fault.ID] {
		e.unpaired = true
	}

	delete(e.active, fault.ID)
	e.deactivated[fault.ID]++

	return nil
}

func (e *fakeExecutor) Isolated() bool {
	return e.isolated
}

func (e *fakeExecutor) callsFor(id m.FaultID) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.calls[id]
}

func catalogueOf(ids ...m.FaultID) *adapter.StaticCatalogue {
	out := make([]m.Fault, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.Fault{ID: id})
	}

	return adapter.NewCatalogue(out)
}

func rendered(tc *testcase.TestCase, position int) []string {
	var out []string
	for _, a := range tc.AssertionsAt(position) {
		out = append(out, a.Render())
	}

	return out
}

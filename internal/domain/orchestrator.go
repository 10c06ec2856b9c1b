package domain

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"assay.dev/pkg/assay/internal/adapter"
	"assay.dev/pkg/assay/internal/assertion"
	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/testcase"
)

// Config tunes an Orchestrator.
type Config struct {
	// Parallel bounds concurrent fault runs of one test case. Values below
	// one run faults sequentially.
	Parallel int
	// MaxFaultsPerTest caps the number of faults run per test case, lowest
	// ids first. Zero means no cap.
	MaxFaultsPerTest int
}

// Orchestrator synthesizes oracles for single test cases. Both methods
// rewrite the assertions of tc in place and describe what happened in the
// returned outcome. An unstable baseline is an outcome, not an error; errors
// are reserved for an executor that cannot run the test at all and for
// cancellation of ctx.
type Orchestrator interface {
	// Synthesize runs tc against every fault it reaches and keeps a
	// minimal set of assertions detecting all detectable faults.
	Synthesize(ctx context.Context, tc *testcase.TestCase) (m.Outcome, error)
	// Complete turns every fact of the baseline run into an assertion,
	// without running any fault.
	Complete(ctx context.Context, tc *testcase.TestCase) (m.Outcome, error)
}

type orchestrator struct {
	executor  adapter.Executor
	catalogue adapter.Catalogue
	session   *Session
	config    Config

	// mu serializes Activate/Execute/Deactivate on executors that share one
	// program instance between calls.
	mu sync.Mutex
}

// NewOrchestrator constructs an Orchestrator running tests through executor
// and selecting faults from catalogue. Fault instability is tracked in
// session, which may be shared by several orchestrators.
func NewOrchestrator(executor adapter.Executor, catalogue adapter.Catalogue, session *Session, config Config) Orchestrator {
	return &orchestrator{
		executor:  executor,
		catalogue: catalogue,
		session:   session,
		config:    config,
	}
}

type faultRun struct {
	fault  m.Fault
	status m.FaultStatus
	result adapter.ExecutionResult
}

// diffable reports whether the traces of the run can be compared with the
// baseline. Timed-out and failed runs never are.
func (r faultRun) diffable() bool {
	return r.status == m.Survived || r.status == m.Crashed
}

func (o *orchestrator) Synthesize(ctx context.Context, tc *testcase.TestCase) (m.Outcome, error) {
	start := time.Now()
	outcome := m.Outcome{Test: tc.Name}

	baseline, ok, err := o.baseline(ctx, tc, &outcome)
	if err != nil || !ok {
		outcome.Duration = time.Since(start)
		return outcome, err
	}

	runs, err := o.runFaults(ctx, tc, baseline)
	if err != nil {
		outcome.Duration = time.Since(start)
		return outcome, err
	}

	km := o.buildKillMap(tc, baseline, runs)

	if dropped := km.DropRedundantNullChecks(); dropped > 0 {
		slog.Debug("Dropped redundant null checks", "test", tc.Name, "count", dropped)
	}

	chosen := Minimize(km)

	covered := km.Covered()
	if got := km.CoveredBy(chosen); len(got) != len(covered) {
		slog.Error("Minimized assertions lost coverage", "test", tc.Name, "covered", len(covered), "kept", len(got))
	}

	if km.Len() > 0 {
		outcome.CandidateCode = candidateCode(tc, km.Candidates())
	}

	if len(chosen) > 0 {
		tc.RemoveAssertions()
		attach(tc, chosen)
	}

	o.finish(tc, baseline)

	detectable := km.Detectable()
	for i := range runs {
		if runs[i].status == m.Survived && detectable.Has(runs[i].fault.ID) {
			runs[i].status = m.Killed
		}

		outcome.Faults = append(outcome.Faults, m.FaultResult{Fault: runs[i].fault.ID, Status: runs[i].status})
	}

	outcome.Status = m.Synthesized
	outcome.KillMap = km.Entries(chosen)
	outcome.Candidates = km.Len()
	outcome.Chosen = len(chosen)
	outcome.Covered = len(covered)
	outcome.Assertions = len(tc.Assertions())
	outcome.Code = tc.Code()
	outcome.Duration = time.Since(start)

	if forced := km.Forced(); len(forced) > 0 {
		outcome.Forced = forced.Sorted()
	}

	slog.Info("Synthesized oracle",
		"test", tc.Name,
		"faults", len(runs),
		"candidates", outcome.Candidates,
		"chosen", outcome.Chosen,
		"covered", outcome.Covered,
		"forced", len(outcome.Forced),
	)

	return outcome, nil
}

func (o *orchestrator) Complete(ctx context.Context, tc *testcase.TestCase) (m.Outcome, error) {
	start := time.Now()
	outcome := m.Outcome{Test: tc.Name}

	baseline, ok, err := o.baseline(ctx, tc, &outcome)
	if err != nil || !ok {
		outcome.Duration = time.Since(start)
		return outcome, err
	}

	facts := baseline.Traces.AllAssertions()
	if len(facts) > 0 {
		tc.RemoveAssertions()
		attach(tc, facts)
	}

	o.finish(tc, baseline)

	outcome.Status = m.Complete
	outcome.Candidates = len(facts)
	outcome.Chosen = len(facts)
	outcome.Assertions = len(tc.Assertions())
	outcome.Code = tc.Code()
	outcome.Duration = time.Since(start)

	slog.Info("Completed oracle", "test", tc.Name, "assertions", outcome.Assertions)

	return outcome, nil
}

// baseline runs tc against the unmodified program. It returns false when
// synthesis must stop: the test is empty or its own behavior is unstable.
// outcome is filled in for those cases.
func (o *orchestrator) baseline(ctx context.Context, tc *testcase.TestCase, outcome *m.Outcome) (adapter.ExecutionResult, bool, error) {
	if tc.Len() == 0 {
		outcome.Status = m.Empty
		return adapter.ExecutionResult{}, false, nil
	}

	result, err := o.execute(ctx, tc, nil)
	if err != nil {
		slog.Error("Failed to run baseline", "test", tc.Name, "error", err)
		return result, false, fmt.Errorf("baseline run of %s: %w", tc.Name, err)
	}

	switch {
	case result.TimedOut:
		slog.Warn("Baseline timed out, no oracle produced", "test", tc.Name)

		outcome.Status = m.BaselineTimeout
		outcome.Assertions = len(tc.Assertions())
		outcome.Code = tc.Code()

		return result, false, nil

	case result.HadUncaughtException:
		slog.Warn("Baseline raised, no oracle produced", "test", tc.Name, "position", result.ExceptionPosition)

		if removed := tc.RemoveAssertionsFrom(result.FirstException()); removed > 0 {
			slog.Debug("Removed assertions after exception", "test", tc.Name, "count", removed)
		}

		outcome.Status = m.BaselineException
		outcome.Assertions = len(tc.Assertions())
		outcome.Code = tc.Code()

		return result, false, nil
	}

	return result, true, nil
}

// runFaults runs tc once per fault reached by the baseline, in ascending id
// order as far as parallelism allows. Only cancellation of ctx is an error.
func (o *orchestrator) runFaults(ctx context.Context, tc *testcase.TestCase, baseline adapter.ExecutionResult) ([]faultRun, error) {
	faults := o.catalogue.FaultsTouchedBy(baseline)
	slices.SortFunc(faults, func(a, b m.Fault) int { return cmp.Compare(a.ID, b.ID) })

	if limit := o.config.MaxFaultsPerTest; limit > 0 && len(faults) > limit {
		slog.Debug("Capping faults", "test", tc.Name, "reached", len(faults), "limit", limit)
		faults = faults[:limit]
	}

	runs := make([]faultRun, len(faults))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(o.config.Parallel, 1))

	for i, fault := range faults {
		group.Go(func() error {
			run, err := o.runFault(groupCtx, tc, fault, baseline)
			if err != nil {
				return err
			}

			runs[i] = run

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		slog.Error("Fault runs cancelled", "test", tc.Name, "error", err)
		return nil, fmt.Errorf("fault runs of %s: %w", tc.Name, err)
	}

	return runs, nil
}

func (o *orchestrator) runFault(ctx context.Context, tc *testcase.TestCase, fault m.Fault, baseline adapter.ExecutionResult) (faultRun, error) {
	run := faultRun{fault: fault}

	if o.session.ShouldSkip(fault.ID) {
		slog.Debug("Skipping unstable fault", "test", tc.Name, "fault", fault.ID)

		run.status = m.Skipped

		return run, nil
	}

	result, err := o.execute(ctx, tc, &fault)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return run, ctxErr
		}

		slog.Error("Failed to run fault", "test", tc.Name, "fault", fault.ID, "error", err)

		run.status = m.Errored

		return run, nil
	}

	run.result = result

	switch {
	case result.TimedOut:
		count := o.session.RecordTimeout(fault.ID)
		slog.Debug("Fault timed out", "test", tc.Name, "fault", fault.ID, "count", count)

		run.status = m.TimedOut

	case result.RaisedBeyond(baseline):
		count := o.session.RecordException(fault.ID)
		slog.Debug("Fault raised", "test", tc.Name, "fault", fault.ID, "count", count)

		run.status = m.Crashed

	default:
		run.status = m.Survived
	}

	return run, nil
}

// execute runs tc with fault active, pairing activation and deactivation on
// every exit path.
func (o *orchestrator) execute(ctx context.Context, tc *testcase.TestCase, fault *m.Fault) (result adapter.ExecutionResult, err error) {
	if !o.executor.Isolated() {
		o.mu.Lock()
		defer o.mu.Unlock()
	}

	if fault != nil {
		if err := o.executor.Activate(ctx, *fault); err != nil {
			return result, fmt.Errorf("activate %s: %w", fault.ID, err)
		}

		defer func() {
			if deactivateErr := o.executor.Deactivate(context.WithoutCancel(ctx), *fault); deactivateErr != nil {
				slog.Error("Failed to deactivate fault", "fault", fault.ID, "error", deactivateErr)
				err = errors.Join(err, fmt.Errorf("deactivate %s: %w", fault.ID, deactivateErr))
			}
		}()
	}

	return o.executor.Execute(ctx, tc, fault)
}

// buildKillMap diffs every comparable fault run against the baseline, then
// completes and re-validates the kill sets by replaying each candidate
// against every recorded run.
func (o *orchestrator) buildKillMap(tc *testcase.TestCase, baseline adapter.ExecutionResult, runs []faultRun) *KillMap {
	km := NewKillMap()

	for _, run := range runs {
		if run.status == m.TimedOut || run.status == m.Crashed {
			km.Kill(run.fault.ID)
		}

		if !run.diffable() {
			continue
		}

		for _, a := range baseline.Traces.Diff(run.result.Traces) {
			km.Add(a, run.fault.ID)
		}
	}

	for _, a := range km.Candidates() {
		for _, run := range runs {
			if run.diffable() && run.result.Traces.IsDetectedBy(a) {
				km.Add(a, run.fault.ID)
			}
		}
	}

	byID := make(map[m.FaultID]faultRun, len(runs))
	for _, run := range runs {
		byID[run.fault.ID] = run
	}

	for _, a := range km.Candidates() {
		if baseline.Traces.IsDetectedBy(a) {
			slog.Error("Inconsistent assertion fails on baseline", "test", tc.Name, "assertion", a.Render())
			km.Drop(a)

			continue
		}

		for _, id := range km.Faults(a).Sorted() {
			if !byID[id].result.Traces.IsDetectedBy(a) {
				slog.Error("Inconsistent assertion misses fault", "test", tc.Name, "assertion", a.Render(), "fault", id)
				km.Remove(a, id)
			}
		}
	}

	return km
}

// finish applies the invariants every synthesized test case satisfies: the
// last statement carries a check unless the baseline raised, and nothing is
// asserted at or after the first exception.
func (o *orchestrator) finish(tc *testcase.TestCase, baseline adapter.ExecutionResult) {
	k := baseline.FirstException()
	if k == adapter.NoException {
		ensureLastStatement(tc, baseline.Traces)
		return
	}

	if removed := tc.RemoveAssertionsFrom(k); removed > 0 {
		slog.Debug("Removed assertions after exception", "test", tc.Name, "position", k, "count", removed)
	}
}

func attach(tc *testcase.TestCase, as []assertion.Assertion) {
	for _, a := range as {
		if err := tc.AddAssertion(a); err != nil {
			slog.Error("Failed to attach assertion", "test", tc.Name, "assertion", a.Render(), "error", err)
		}
	}
}

func candidateCode(tc *testcase.TestCase, candidates []assertion.Assertion) string {
	all := tc.Clone()
	all.RemoveAssertions()
	attach(all, candidates)

	return all.Code()
}

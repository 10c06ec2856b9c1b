package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/observation"
	"assay.dev/pkg/assay/internal/testcase"
	"assay.dev/pkg/assay/internal/trace"
)

// LocalExecutor runs statements carrying an Action in the current process.
// Faults are toggled through a shared FaultSwitch, so calls must be
// serialized.
type LocalExecutor struct {
	faults   *FaultSwitch
	capturer *observation.Capturer
	timeout  time.Duration

	// abandoned is closed when the last timed-out run returns.
	abandoned chan struct{}
}

// NewLocalExecutor constructs a LocalExecutor. A zero timeout disables the deadline.
func NewLocalExecutor(faults *FaultSwitch, capturer *observation.Capturer, timeout time.Duration) *LocalExecutor {
	return &LocalExecutor{faults: faults, capturer: capturer, timeout: timeout}
}

// Activate turns fault on in the switch.
func (e *LocalExecutor) Activate(ctx context.Context, fault m.Fault) error {
	return e.faults.Activate(ctx, fault)
}

// Deactivate turns fault off in the switch.
func (e *LocalExecutor) Deactivate(ctx context.Context, fault m.Fault) error {
	return e.faults.Deactivate(ctx, fault)
}

// Isolated is false: the switch is process-wide.
func (e *LocalExecutor) Isolated() bool {
	return false
}

// Execute runs every statement of tc in order. Execution stops at the first
// statement that fails; a failure the statement does not expect escapes the
// test body. Actions should honour ctx: on timeout the run is abandoned, and
// the next Execute waits up to the timeout for it to return so that fault
// sites it still reaches are not credited to the new run.
func (e *LocalExecutor) Execute(ctx context.Context, tc *testcase.TestCase, fault *m.Fault) (ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return ExecutionResult{}, err
	}

	active := e.faults.Active()
	if (fault == nil && active != "") || (fault != nil && active != fault.ID) {
		return ExecutionResult{}, fmt.Errorf("%w: switch has %q active", ErrFaultActive, active)
	}

	for i := range tc.Len() {
		st := tc.Statement(i)
		if st.Action == nil {
			return ExecutionResult{}, fmt.Errorf("%w: %s statement %d has no action", ErrUnknownTest, tc.Name, i)
		}

		for _, use := range st.Uses {
			if use < 0 || use >= i {
				return ExecutionResult{}, fmt.Errorf("%w: %s statement %d uses position %d", ErrMalformedTest, tc.Name, i, use)
			}
		}
	}

	if err := e.awaitAbandoned(ctx); err != nil {
		return ExecutionResult{}, err
	}

	runCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	e.faults.take()

	done := make(chan ExecutionResult, 1)
	returned := make(chan struct{})

	go func() {
		defer close(returned)
		done <- e.run(runCtx, tc)
	}()

	var res ExecutionResult

	select {
	case res = <-done:
	case <-runCtx.Done():
	}

	if runCtx.Err() != nil {
		e.abandoned = returned
	}

	if err := ctx.Err(); err != nil {
		return ExecutionResult{}, err
	}

	// A run that finished past its deadline still counts as timed out.
	if runCtx.Err() != nil {
		return ExecutionResult{TimedOut: true, ExceptionPosition: NoException, Touched: e.faults.take()}, nil
	}

	res.Touched = e.faults.take()

	return res, nil
}

// awaitAbandoned waits for a run abandoned at its deadline to return. It gives
// up after one timeout.
func (e *LocalExecutor) awaitAbandoned(ctx context.Context) error {
	if e.abandoned == nil {
		return nil
	}

	var grace <-chan time.Time
	if e.timeout > 0 {
		timer := time.NewTimer(e.timeout)
		defer timer.Stop()

		grace = timer.C
	}

	select {
	case <-e.abandoned:
		e.abandoned = nil
		return nil
	case <-grace:
		return ErrRunInFlight
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *LocalExecutor) run(ctx context.Context, tc *testcase.TestCase) ExecutionResult {
	res := ExecutionResult{ExceptionPosition: NoException, Exceptions: map[int]string{}}
	builder := trace.NewBundleBuilder()
	values := make([]any, tc.Len())

	for i := range tc.Len() {
		st := tc.Statement(i)

		args := make([]any, 0, len(st.Uses))
		for _, use := range st.Uses {
			args = append(args, values[use])
		}

		out, err := invoke(ctx, st.Action, args)
		if err != nil {
			res.Exceptions[i] = err.Error()

			if !st.ExpectsError {
				res.HadUncaughtException = true
				res.ExceptionPosition = i
			}

			break
		}

		values[i] = out
		e.observe(builder, tc, i, values)
	}

	res.Traces = builder.Freeze()

	return res
}

// observe captures the statement's own value and every value it consumed.
func (e *LocalExecutor) observe(sink observation.Sink, tc *testcase.TestCase, position int, values []any) {
	refs := tc.Live(position)
	live := make([]observation.Live, 0, len(refs))

	for _, v := range refs {
		live = append(live, observation.Live{Ref: v, Value: values[v.Position]})
	}

	targets := tc.Affected(position)
	if v, ok := tc.Variable(position); ok {
		targets = append(targets, v)
	}

	for _, v := range targets {
		e.capturer.Capture(sink, position, observation.Live{Ref: v, Value: values[v.Position]}, live)
	}
}

var errPanic = errors.New("panic")

func invoke(ctx context.Context, action testcase.Action, args []any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("%w: %v", errPanic, r)
		}
	}()

	return action(ctx, args)
}

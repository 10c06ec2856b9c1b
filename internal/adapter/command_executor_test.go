package adapter

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/testcase"
)

// These tests drive the shell script under examples/command, which answers
// for the TestPushPeek prefix of the stack suite.

func commandCase() *testcase.TestCase {
	return testcase.New("TestPushPeek",
		testcase.Statement{Code: "NewStack()", ReturnType: "*Stack"},
		testcase.Statement{Code: "v0.Push(3)", Uses: []int{0}},
		testcase.Statement{Code: "v0.Peek()", ReturnType: "int", Uses: []int{0}},
	)
}

func commandExecutor(timeout time.Duration) *CommandExecutor {
	script := filepath.Join("..", "..", "examples", "command", "stack.sh")
	return NewCommandExecutor("sh", []string{script}, "", timeout)
}

func TestCommandExecutor(t *testing.T) {
	ctx := context.Background()
	e := commandExecutor(5 * time.Second)
	tc := commandCase()

	require.True(t, e.Isolated())

	baseline, err := e.Execute(ctx, tc, nil)
	require.NoError(t, err)
	require.Equal(t, []m.FaultID{"f1", "f4"}, baseline.Touched)

	f1 := m.Fault{ID: "f1"}
	require.NoError(t, e.Activate(ctx, f1))

	mutant, err := e.Execute(ctx, tc, &f1)
	require.NoError(t, err)
	require.NoError(t, e.Deactivate(ctx, f1))

	diff := baseline.Traces.Diff(mutant.Traces)
	require.Len(t, diff, 1)
	require.Equal(t, "v2 == 3", diff[0].Render())
}

func TestCommandExecutorTimeout(t *testing.T) {
	e := commandExecutor(100 * time.Millisecond)

	res, err := e.Execute(context.Background(), commandCase(), &m.Fault{ID: "f4"})
	require.NoError(t, err)
	require.True(t, res.TimedOut)
}

func TestCommandExecutorBadOutput(t *testing.T) {
	e := commandExecutor(5 * time.Second)

	_, err := e.Execute(context.Background(), commandCase(), &m.Fault{ID: "broken"})
	require.Error(t, err)

	missing := NewCommandExecutor("does-not-exist-assay", nil, "", time.Second)
	_, err = missing.Execute(context.Background(), commandCase(), nil)
	require.Error(t, err)
}

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	m "assay.dev/pkg/assay/internal/model"
	"assay.dev/pkg/assay/internal/testcase"
)

// waitDelay bounds how long a killed process may keep its output pipes open.
const waitDelay = time.Second

// FaultEnv names the environment variable that carries the active fault id.
const FaultEnv = "ASSAY_FAULT"

// CommandExecutor runs every execution in a fresh external process. The test
// case is written to stdin as JSON and the process answers with one JSON
// RunRecord on stdout.
type CommandExecutor struct {
	command string
	args    []string
	dir     string
	timeout time.Duration
}

// NewCommandExecutor constructs a CommandExecutor that kills the process
// after timeout.
func NewCommandExecutor(command string, args []string, dir string, timeout time.Duration) *CommandExecutor {
	return &CommandExecutor{
		command: command,
		args:    args,
		dir:     dir,
		timeout: timeout,
	}
}

// Activate is a no-op: the fault travels with each process.
func (c *CommandExecutor) Activate(ctx context.Context, _ m.Fault) error {
	return ctx.Err()
}

// Deactivate is a no-op.
func (c *CommandExecutor) Deactivate(_ context.Context, _ m.Fault) error {
	return nil
}

// Isolated is true: processes share nothing.
func (c *CommandExecutor) Isolated() bool {
	return true
}

// Execute runs the command once for tc.
func (c *CommandExecutor) Execute(ctx context.Context, tc *testcase.TestCase, fault *m.Fault) (ExecutionResult, error) {
	input, err := json.Marshal(NewTestRecord(tc))
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("failed to encode test case %s: %w", tc.Name, err)
	}

	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc

		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, c.command, c.args...)
	cmd.Dir = c.dir
	cmd.Stdin = bytes.NewReader(input)
	cmd.Env = os.Environ()
	cmd.WaitDelay = waitDelay

	if fault != nil {
		cmd.Env = append(cmd.Env, FaultEnv+"="+string(fault.ID))
	}

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return ExecutionResult{TimedOut: true, ExceptionPosition: NoException}, nil
	}

	if err := ctx.Err(); err != nil {
		return ExecutionResult{}, err
	}

	if runErr != nil {
		slog.Error("Executor command failed", "test", tc.Name, "command", c.command, "stderr", stderr.String(), "error", runErr)
		return ExecutionResult{}, fmt.Errorf("failed to run %s for %s: %w", c.command, tc.Name, runErr)
	}

	var record RunRecord
	if err := json.Unmarshal(stdout.Bytes(), &record); err != nil {
		slog.Error("Failed to decode run record", "test", tc.Name, "output", stdout.String(), "error", err)
		return ExecutionResult{}, fmt.Errorf("failed to decode run record for %s: %w", tc.Name, err)
	}

	return record.Result(tc)
}

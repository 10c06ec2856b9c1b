// Package controller displays synthesis progress and reports.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "assay.dev/pkg/assay/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeSynth StartMode = iota
	ModeView
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode StartMode
}

// WithSynthMode sets the UI to follow a running synthesis session.
func WithSynthMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeSynth
	}
}

// WithViewMode sets the UI to browse a saved report.
func WithViewMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeView
	}
}

func newStartConfig(options []StartOption) StartConfig {
	var config StartConfig
	for _, option := range options {
		option(&config)
	}

	return config
}

// UI defines the interface for displaying synthesis results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)
	DisplaySession(ctx context.Context, session string, tests int, parallel int)
	DisplayOutcome(ctx context.Context, outcome m.Outcome)
	DisplaySummary(ctx context.Context, summary m.Summary)
	DisplayReport(ctx context.Context, report m.Report) error
}

// NewUI returns the interactive UI on a terminal and the plain one otherwise.
func NewUI(cmd *cobra.Command, tty bool) UI {
	if tty {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

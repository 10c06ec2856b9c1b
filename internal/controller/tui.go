package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	m "assay.dev/pkg/assay/internal/model"
)

// TUI implements UI using Bubble Tea for interactive display. Display calls
// are forwarded to the running program as messages.
type TUI struct {
	cmd     *cobra.Command
	options []tea.ProgramOption

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a TUI drawing on the command's output. Extra options are
// passed to the Bubble Tea program.
func NewTUI(cmd *cobra.Command, options ...tea.ProgramOption) *TUI {
	return &TUI{cmd: cmd, options: options}
}

// Start launches the program in the background.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return errors.New("tui already started")
	}

	config := newStartConfig(options)
	programOptions := append([]tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithOutput(t.cmd.OutOrStdout()),
		tea.WithInput(t.cmd.InOrStdin()),
		tea.WithAltScreen(),
	}, t.options...)

	program := tea.NewProgram(newResultsModel(config.mode), programOptions...)
	done := make(chan struct{})

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			slog.Error("TUI stopped", "error", err)
		}
	}()

	t.program = program
	t.done = done

	return nil
}

// Close stops the program and waits for it to restore the terminal.
func (t *TUI) Close(ctx context.Context) {
	program, done := t.running()
	if program == nil {
		return
	}

	program.Quit()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Wait blocks until the user quits.
func (t *TUI) Wait(ctx context.Context) {
	_, done := t.running()
	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// DisplaySession shows the session header.
func (t *TUI) DisplaySession(ctx context.Context, session string, tests int, parallel int) {
	t.send(ctx, sessionMsg{session: session, tests: tests, parallel: parallel})
}

// DisplayOutcome appends a finished test.
func (t *TUI) DisplayOutcome(ctx context.Context, outcome m.Outcome) {
	t.send(ctx, outcomeMsg(outcome))
}

// DisplaySummary shows the session totals.
func (t *TUI) DisplaySummary(ctx context.Context, summary m.Summary) {
	t.send(ctx, summaryMsg(summary))
}

// DisplayReport shows a saved report.
func (t *TUI) DisplayReport(ctx context.Context, report m.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.send(ctx, reportMsg(report))

	return nil
}

func (t *TUI) running() (*tea.Program, chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program, t.done
}

func (t *TUI) send(ctx context.Context, msg tea.Msg) {
	if ctx.Err() != nil {
		return
	}

	if program, _ := t.running(); program != nil {
		program.Send(msg)
	}
}

type (
	sessionMsg struct {
		session  string
		tests    int
		parallel int
	}
	outcomeMsg m.Outcome
	summaryMsg m.Summary
	reportMsg  m.Report
)

// keyMap defines keybindings for the results pager.
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
	Help     key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Quit, k.Help},
	}
}

var defaultKeyMap = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	neutralStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// resultsModel is the Bubble Tea model following a session or a report.
type resultsModel struct {
	mode     StartMode
	session  string
	tests    int
	parallel int
	outcomes []m.Outcome
	summary  *m.Summary

	viewport viewport.Model
	help     help.Model
	keys     keyMap
	ready    bool
}

func newResultsModel(mode StartMode) resultsModel {
	return resultsModel{
		mode: mode,
		help: help.New(),
		keys: defaultKeyMap,
	}
}

func (rm resultsModel) Init() tea.Cmd {
	return nil
}

func (rm resultsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		footerHeight := 2

		if !rm.ready {
			rm.viewport = viewport.New(msg.Width, msg.Height-footerHeight)
			rm.ready = true
		} else {
			rm.viewport.Width = msg.Width
			rm.viewport.Height = msg.Height - footerHeight
		}

		rm.refresh()

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, rm.keys.Quit):
			return rm, tea.Quit
		case key.Matches(msg, rm.keys.Help):
			rm.help.ShowAll = !rm.help.ShowAll
		}

	case sessionMsg:
		rm.session, rm.tests, rm.parallel = msg.session, msg.tests, msg.parallel
		rm.refresh()

	case outcomeMsg:
		rm.outcomes = append(rm.outcomes, m.Outcome(msg))
		rm.refresh()

		if rm.ready {
			rm.viewport.GotoBottom()
		}

	case summaryMsg:
		summary := m.Summary(msg)
		rm.summary = &summary
		rm.refresh()

	case reportMsg:
		report := m.Report(msg)
		rm.session = report.Summary.Session
		rm.tests = report.Summary.Tests
		rm.outcomes = report.Outcomes
		rm.summary = &report.Summary
		rm.refresh()
	}

	rm.viewport, cmd = rm.viewport.Update(msg)

	return rm, cmd
}

func (rm *resultsModel) refresh() {
	if rm.ready {
		rm.viewport.SetContent(rm.content())
	}
}

func (rm resultsModel) View() string {
	if !rm.ready {
		return "Initializing..."
	}

	footer := statusStyle.Render(fmt.Sprintf(" %3.f%% ", rm.viewport.ScrollPercent()*100)) + " " + rm.help.View(rm.keys)

	return rm.viewport.View() + "\n" + footer
}

func (rm resultsModel) content() string {
	var b strings.Builder

	rm.renderHeader(&b)

	for _, outcome := range rm.outcomes {
		renderOutcome(&b, outcome)
	}

	if rm.summary != nil {
		b.WriteString(renderSummaryTable(*rm.summary))
		b.WriteString(titleStyle.Render("Mutation score: " + formatScore(rm.summary.MutationScore)))
		b.WriteString("\n")
	} else if rm.mode == ModeSynth {
		b.WriteString(statusStyle.Render("Synthesizing..."))
		b.WriteString("\n")
	}

	return b.String()
}

func (rm resultsModel) renderHeader(b *strings.Builder) {
	title := "assay"
	if rm.session != "" {
		title += " · session " + shortSession(rm.session)
	}

	if rm.tests > 0 {
		title += fmt.Sprintf(" · %d/%d tests", len(rm.outcomes), rm.tests)
	}

	if rm.parallel > 0 {
		title += fmt.Sprintf(" · %d worker(s)", rm.parallel)
	}

	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
}

func renderOutcome(b *strings.Builder, outcome m.Outcome) {
	b.WriteString(statusLabel(outcome.Status))
	fmt.Fprintf(b, " %s ", outcome.Test)
	b.WriteString(statusStyle.Render(fmt.Sprintf("%d of %d candidates, %d covered, %d survived, %s",
		outcome.Chosen, outcome.Candidates, outcome.Covered, outcome.Count(m.Survived), formatDuration(outcome.Duration))))
	b.WriteString("\n")

	if killMap := renderKillMap(outcome); killMap != "" {
		b.WriteString(statusStyle.Render(killMap))
		b.WriteString("\n")
	}

	if diff := OracleDiff(outcome.Test, outcome.CandidateCode, outcome.Code); diff != "" {
		b.WriteString(diff)
	} else if outcome.Code != "" {
		b.WriteString(outcome.Code)
	}

	b.WriteString("\n")
}

func statusLabel(status m.OutcomeStatus) string {
	label := fmt.Sprintf("[%s]", status)

	switch {
	case status == m.Synthesized || status == m.Complete:
		return goodStyle.Render(label)
	case status.Aborted():
		return badStyle.Render(label)
	default:
		return neutralStyle.Render(label)
	}
}

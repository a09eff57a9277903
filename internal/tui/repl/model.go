// ============================================================================
// Pascal - Klammerausdruck-Evaluator
// ============================================================================
//
// Package:     repl
// Description: Bubbletea model for the interactive evaluator
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package repl

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EvalFunc evaluates one expression with the given bracket mode
type EvalFunc func(ctx context.Context, expression string, strict bool) (int, error)

// Config holds REPL configuration
type Config struct {
	Eval   EvalFunc
	Strict bool
	// Target is shown in the header, e.g. "lokal" or a server address
	Target string
	// SettingsFile persists input history; empty disables persistence
	SettingsFile string
	// Timeout bounds a single evaluation
	Timeout time.Duration
}

// Model is the Bubbletea model of the REPL
type Model struct {
	width  int
	height int
	ready  bool

	input    textinput.Model
	viewport viewport.Model

	entries []Entry
	strict  bool
	pending bool

	inputHistory []string
	historyIndex int // -1 when not navigating
	currentInput string

	config Config
}

// New creates a REPL model
func New(cfg Config) Model {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Target == "" {
		cfg.Target = "lokal"
	}

	ti := textinput.New()
	ti.Placeholder = "Ausdruck eingeben, z.B. ((8+7)*2)"
	ti.Prompt = IconArrow
	ti.CharLimit = 4096
	ti.Focus()

	m := Model{
		input:        ti,
		viewport:     viewport.New(80, 20),
		strict:       cfg.Strict,
		historyIndex: -1,
		config:       cfg,
	}

	if cfg.SettingsFile != "" {
		if settings, err := LoadSettings(cfg.SettingsFile); err == nil {
			m.inputHistory = settings.InputHistory
		}
	}

	return m
}

// Entries returns the evaluated lines, oldest first
func (m Model) Entries() []Entry {
	return m.entries
}

// Strict reports the current bracket matching mode
func (m Model) Strict() bool {
	return m.strict
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 4
		footerHeight := 6
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - headerHeight - footerHeight
		m.input.Width = msg.Width - 10
		m.ready = true
		m.updateViewportContent()

	case evalResultMsg:
		m.pending = false
		m.entries = append(m.entries, msg.entry)
		m.updateViewportContent()
		m.viewport.GotoBottom()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Sequence(m.saveHistory(), tea.Quit)

	case tea.KeyCtrlS:
		m.strict = !m.strict
		return m, nil

	case tea.KeyCtrlL:
		m.entries = nil
		m.updateViewportContent()
		return m, nil

	case tea.KeyUp:
		if len(m.inputHistory) == 0 {
			return m, nil
		}
		if m.historyIndex == -1 {
			m.currentInput = m.input.Value()
			m.historyIndex = len(m.inputHistory) - 1
		} else if m.historyIndex > 0 {
			m.historyIndex--
		}
		m.input.SetValue(m.inputHistory[m.historyIndex])
		m.input.CursorEnd()
		return m, nil

	case tea.KeyDown:
		if m.historyIndex == -1 {
			return m, nil
		}
		if m.historyIndex < len(m.inputHistory)-1 {
			m.historyIndex++
			m.input.SetValue(m.inputHistory[m.historyIndex])
		} else {
			m.historyIndex = -1
			m.input.SetValue(m.currentInput)
		}
		m.input.CursorEnd()
		return m, nil

	case tea.KeyEnter:
		expression := m.input.Value()
		if expression == "" || m.pending {
			return m, nil
		}
		if n := len(m.inputHistory); n == 0 || m.inputHistory[n-1] != expression {
			m.inputHistory = append(m.inputHistory, expression)
		}
		m.historyIndex = -1
		m.currentInput = ""
		m.input.SetValue("")
		m.pending = true
		return m, m.evaluate(expression, m.strict)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// evaluate runs the evaluation off the UI loop
func (m Model) evaluate(expression string, strict bool) tea.Cmd {
	eval := m.config.Eval
	timeout := m.config.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		value, err := eval(ctx, expression, strict)
		return evalResultMsg{entry: Entry{
			Expression: expression,
			Value:      value,
			Err:        err,
			Strict:     strict,
			Duration:   time.Since(start),
			Timestamp:  time.Now(),
		}}
	}
}

func (m Model) saveHistory() tea.Cmd {
	path := m.config.SettingsFile
	if path == "" {
		return nil
	}
	history := append([]string(nil), m.inputHistory...)
	return func() tea.Msg {
		err := SaveSettings(path, &Settings{InputHistory: history})
		return historySavedMsg{err: err}
	}
}

// View renders the model
func (m Model) View() string {
	if !m.ready {
		return "Lade REPL..."
	}

	var b strings.Builder

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		LogoStyle.Render(Logo),
		strings.Repeat(" ", 3),
		HelpDescStyle.Render("Ziel: "+m.config.Target),
	)
	b.WriteString(TitlePanelStyle.Width(m.width - 4).Render(header))
	b.WriteString("\n")

	b.WriteString(HistoryPanelStyle.Width(m.width - 4).Render(m.viewport.View()))
	b.WriteString("\n")

	b.WriteString(InputStyle.Width(m.width - 4).Render(m.input.View()))
	b.WriteString("\n")

	b.WriteString(m.renderStatusBar())
	b.WriteString("\n")

	b.WriteString(m.renderHelpBar())

	return b.String()
}

func (m Model) renderStatusBar() string {
	ok, failed := 0, 0
	for _, e := range m.entries {
		if e.OK() {
			ok++
		} else {
			failed++
		}
	}

	status := fmt.Sprintf("Klammern: %s  |  %d ok, %d Fehler", RenderMode(m.strict), ok, failed)
	if m.pending {
		status += "  |  werte aus..."
	}
	return StatusBarStyle.Width(m.width - 2).Render(status)
}

func (m Model) renderHelpBar() string {
	hints := []string{
		RenderKeyHint("Enter", "auswerten"),
		RenderKeyHint("↑/↓", "Verlauf"),
		RenderKeyHint("Ctrl+S", "strikt/tolerant"),
		RenderKeyHint("Ctrl+L", "leeren"),
		RenderKeyHint("Esc", "beenden"),
	}
	return strings.Join(hints, "  ")
}

func (m *Model) updateViewportContent() {
	var b strings.Builder
	for _, e := range m.entries {
		b.WriteString(RenderEntry(e))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

// RenderEntry renders one evaluated line
func RenderEntry(e Entry) string {
	expr := ExpressionStyle.Render(e.Expression)
	took := DurationStyle.Render(fmt.Sprintf("(%s)", e.Duration.Round(time.Microsecond)))
	if e.OK() {
		return ValueStyle.Render(IconOK) + expr + " = " + ValueStyle.Render(fmt.Sprintf("%d", e.Value)) + " " + took
	}
	return ErrorStyle.Render(IconError) + expr + " " + ErrorStyle.Render(e.Err.Error())
}

// Run starts the REPL in the alternate screen
func Run(cfg Config) error {
	p := tea.NewProgram(New(cfg), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

package tui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/moolen/medidesk/internal/session"
)

const sidebarWidth = 38

// Update handles all incoming messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case SnapshotMsg:
		wasProcessing := m.snap.Processing
		m.snap = msg.Snapshot
		m.refreshTranscript()
		cmds := []tea.Cmd{m.waitForSnapshot()}
		if m.snap.Processing && !wasProcessing {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case sessionClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		if !m.snap.Processing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, m.updateFocusedInput(msg)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.transcript, cmd = m.transcript.Update(msg)
		return m, cmd
	case "enter":
		if !m.snap.Ready {
			return m, m.unlock()
		}
		m.submit()
		return m, nil
	case "tab":
		if m.snap.Ready && len(m.snap.Transcript) == 0 {
			m.promptIdx = (m.promptIdx + 1) % len(QuickPrompts)
			m.input.SetValue(QuickPrompts[m.promptIdx])
			m.input.CursorEnd()
			return m, nil
		}
	}
	return m, m.updateFocusedInput(msg)
}

func (m *Model) updateFocusedInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if m.snap.Ready {
		m.input, cmd = m.input.Update(msg)
	} else {
		m.credential, cmd = m.credential.Update(msg)
	}
	return cmd
}

// unlock submits the credential gate.
func (m *Model) unlock() tea.Cmd {
	if err := m.ctrl.SetCredential(m.credential.Value()); err != nil {
		m.lastError = err
		return nil
	}
	m.lastError = nil
	m.credential.Reset()
	m.credential.Blur()
	m.snap = m.ctrl.Snapshot()
	m.refreshTranscript()
	return m.input.Focus()
}

// submit sends the input line. Empty input and a busy session leave the
// line untouched.
func (m *Model) submit() {
	query := m.input.Value()
	if strings.TrimSpace(query) == "" {
		return
	}
	_, err := m.ctrl.Submit(query)
	switch {
	case errors.Is(err, session.ErrBusy):
		return
	case err != nil:
		m.lastError = err
		return
	}
	m.lastError = nil
	m.promptIdx = -1
	m.input.Reset()
}

func (m *Model) resize() {
	mainWidth := m.width - sidebarWidth - 2
	if mainWidth < 30 {
		mainWidth = 30
	}
	m.input.Width = mainWidth - 4
	m.credential.Width = 40

	// header(2) + input(3) + ops log(logLines+2) + help(1)
	height := m.height - 8 - logLines
	if height < 5 {
		height = 5
	}
	m.transcript.Width = mainWidth
	m.transcript.Height = height

	m.mdRenderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(mainWidth-4),
	)
	m.refreshTranscript()
}

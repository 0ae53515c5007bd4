package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/moolen/medidesk/internal/session"
)

// Controller is the part of a session the console drives.
type Controller interface {
	SetCredential(secret string) error
	Submit(query string) (*session.Turn, error)
	Snapshot() session.Snapshot
}

// Model is the Bubble Tea model for the console.
type Model struct {
	width  int
	height int

	ctrl    Controller
	updates <-chan session.Snapshot
	snap    session.Snapshot

	credential textinput.Model
	input      textinput.Model
	transcript viewport.Model
	spinner    spinner.Model
	mdRenderer *glamour.TermRenderer

	backend   string
	model     string
	promptIdx int
	lastError error
	quitting  bool
}

// NewModel creates a console for ctrl. updates is the channel returned by
// Session.Subscribe.
func NewModel(ctrl Controller, updates <-chan session.Snapshot, backend, modelName string) *Model {
	cred := textinput.New()
	cred.Placeholder = "API key"
	cred.EchoMode = textinput.EchoPassword
	cred.Prompt = "🔑 "
	cred.PromptStyle = inputPromptStyle
	cred.Focus()

	in := textinput.New()
	in.Placeholder = "Ketik permintaan Anda..."
	in.Prompt = "> "
	in.PromptStyle = inputPromptStyle
	in.CharLimit = 2000

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = workingStyle

	vp := viewport.New(80, 20)
	vp.MouseWheelEnabled = true

	md, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(76),
	)

	return &Model{
		ctrl:       ctrl,
		updates:    updates,
		snap:       ctrl.Snapshot(),
		credential: cred,
		input:      in,
		transcript: vp,
		spinner:    s,
		mdRenderer: md,
		backend:    backend,
		model:      modelName,
		promptIdx:  -1,
	}
}

// Init starts listening for snapshots.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(tea.WindowSize(), m.waitForSnapshot(), textinput.Blink)
}

// waitForSnapshot returns a command that waits for the next state change.
func (m *Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		if m.updates == nil {
			return nil
		}
		snap, ok := <-m.updates
		if !ok {
			return sessionClosedMsg{}
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// renderMarkdown renders agent replies. Plain text is returned if rendering
// fails.
func (m *Model) renderMarkdown(content string) string {
	if m.mdRenderer == nil {
		return content
	}
	rendered, err := m.mdRenderer.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(rendered, "\n")
}

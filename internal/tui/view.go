package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/moolen/medidesk/internal/agents"
	"github.com/moolen/medidesk/internal/session"
)

const (
	logLines   = 6
	timeLayout = "15:04:05"
)

// View renders the console.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	if !m.snap.Ready {
		b.WriteString(m.renderGate())
		return b.String()
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.transcript.View(),
		m.renderInput(),
		m.renderOpsLog(),
	)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(), " ", main))
	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := titleStyle.Render("MediDesk Command Center")
	sub := subtitleStyle.Render(fmt.Sprintf("  %s · %s · session %s", m.backend, m.model, shortID(m.snap.ID)))
	return title + sub
}

func (m *Model) renderGate() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sistem Terkunci"))
	b.WriteString("\n")
	b.WriteString(subtitleStyle.Render("Masukkan kredensial untuk mengaktifkan agen koordinator."))
	b.WriteString("\n\n")
	b.WriteString(m.credential.View())
	if m.lastError != nil {
		b.WriteString("\n\n")
		b.WriteString(errorStyle.Render(m.lastError.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(helpKeyStyle.Render("enter"))
	b.WriteString(helpStyle.Render(" unlock  "))
	b.WriteString(helpKeyStyle.Render("esc"))
	b.WriteString(helpStyle.Render(" quit"))
	return panelStyle.Render(b.String())
}

func (m *Model) renderSidebar() string {
	panels := []string{m.renderCoordinator()}
	for _, def := range agents.Specialists() {
		panels = append(panels, m.renderSpecialist(def))
	}
	return lipgloss.JoinVertical(lipgloss.Left, panels...)
}

func (m *Model) renderCoordinator() string {
	def := agents.MustGet(agents.Coordinator)
	status := subtitleStyle.Render("Standby")
	style := panelStyle
	if m.snap.ActiveAgent == agents.Coordinator {
		status = workingStyle.Render(m.spinner.View() + " Analyzing Intent...")
		style = activePanelStyle
	}
	body := agentStyle(def.Identity).Render(def.Name) + "\n" + status
	return style.Width(sidebarWidth - 2).Render(body)
}

func (m *Model) renderSpecialist(def agents.Definition) string {
	name := agentStyle(def.Identity).Render(def.Name)
	if def.Secure {
		name += " " + secureBadgeStyle.Render("SECURE")
	}
	body := name + "\n" + subtitleStyle.Render(def.Description)

	style := panelStyle
	if m.snap.ActiveAgent == def.Identity {
		style = activePanelStyle
		body += "\n" + workingStyle.Render(m.spinner.View()+" Sub-agent working...")
	}
	return style.Width(sidebarWidth - 2).Render(body)
}

func (m *Model) renderInput() string {
	line := m.input.View()
	if m.snap.Processing {
		line = workingStyle.Render(m.spinner.View() + " " + phaseLabel(m.snap))
	}
	if m.lastError != nil {
		line += "\n" + errorStyle.Render(m.lastError.Error())
	}
	return panelStyle.Width(m.transcript.Width).Render(line)
}

func phaseLabel(snap session.Snapshot) string {
	if snap.Phase == session.PhaseDelegated {
		return snap.ActiveAgent.DisplayName() + " sedang bekerja..."
	}
	return "Koordinator menganalisis permintaan..."
}

func (m *Model) renderOpsLog() string {
	logs := m.snap.Logs
	if len(logs) > logLines {
		logs = logs[len(logs)-logLines:]
	}
	lines := make([]string, 0, logLines)
	for _, entry := range logs {
		lines = append(lines, timestampStyle.Render(entry.Timestamp.Format(timeLayout))+" "+
			logLevelStyle(entry.Level).Render(entry.Message))
	}
	for len(lines) < logLines {
		lines = append(lines, "")
	}
	return panelStyle.Width(m.transcript.Width).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderHelp() string {
	keys := [][2]string{{"enter", "send"}, {"pgup/pgdown", "scroll"}, {"esc", "quit"}}
	if len(m.snap.Transcript) == 0 {
		keys = append([][2]string{{"tab", "quick prompt"}}, keys...)
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k[0])+helpStyle.Render(" "+k[1]))
	}
	return strings.Join(parts, helpStyle.Render("  •  "))
}

// refreshTranscript re-renders the transcript viewport from the snapshot.
func (m *Model) refreshTranscript() {
	m.transcript.SetContent(m.renderTranscript())
	m.transcript.GotoBottom()
}

func (m *Model) renderTranscript() string {
	if len(m.snap.Transcript) == 0 {
		var b strings.Builder
		b.WriteString(subtitleStyle.Render("Belum ada percakapan. Coba salah satu:"))
		b.WriteString("\n\n")
		for i, p := range QuickPrompts {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, p)
		}
		return b.String()
	}

	var b strings.Builder
	for _, msg := range m.snap.Transcript {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg session.Message) string {
	ts := timestampStyle.Render(msg.Timestamp.Format(timeLayout))
	switch msg.Role {
	case session.RoleUser:
		return ts + " " + userLabelStyle.Render("Anda:") + " " + userMessageStyle.Render(msg.Content)
	case session.RoleSystem:
		return ts + " " + systemMessageStyle.Render(msg.Content)
	default:
		header := ts + " " + agentStyle(msg.Agent).Render(msg.Agent.DisplayName())
		if msg.Metadata != nil && msg.Metadata.Secure {
			header += " " + secureBadgeStyle.Render("SECURE")
		}
		return header + "\n" + m.renderMarkdown(msg.Content)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

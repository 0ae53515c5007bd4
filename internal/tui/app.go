package tui

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/moolen/medidesk/internal/session"
)

// Config configures the console.
type Config struct {
	Backend string
	Model   string
}

// Run drives sess from the terminal until the user quits or ctx ends.
func Run(ctx context.Context, sess *session.Session, cfg Config) error {
	updates, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	model := NewModel(sess, updates, cfg.Backend, cfg.Model)
	program := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// IsTerminal reports whether stdin and stdout are both terminals.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

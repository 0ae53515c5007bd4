package commands

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/moolen/medidesk/internal/logging"
	"github.com/moolen/medidesk/internal/tui"
)

var consoleLocked bool

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Open the interactive command-center console",
	Long: `Open the terminal console. The session starts locked; enter the backend
API key to unlock it. When a key is configured the console unlocks itself
unless --locked is set.`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().BoolVar(&consoleLocked, "locked", false, "Always ask for the API key even if one is configured")
}

func runConsole(cmd *cobra.Command, _ []string) error {
	if !tui.IsTerminal() {
		return fmt.Errorf("console requires an interactive terminal; use 'medidesk ask' instead")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Log lines would corrupt the alternate screen.
	if err := logging.Initialize("fatal"); err != nil {
		return err
	}

	rt, err := newRuntime(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	sess, err := rt.factory.New("")
	if err != nil {
		return err
	}
	defer sess.Close()

	if rt.credential != "" && !consoleLocked {
		if err := sess.SetCredential(rt.credential); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
	defer stop()
	return tui.Run(ctx, sess, tui.Config{Backend: cfg.Backend.Provider, Model: rt.client.Model()})
}

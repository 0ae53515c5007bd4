package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/moolen/medidesk/internal/session"
)

var (
	askParallel int
	askOutput   string
)

var askCmd = &cobra.Command{
	Use:   "ask <query>...",
	Short: "Route one or more requests and print the transcripts",
	Long: `Each query runs in its own session. Results are printed in argument order
once all queries have finished.`,
	Example: `  medidesk ask --backend scenario "Cek riwayat lab pasien" "Berapa tagihan terakhir saya?"`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askParallel, "parallel", "p", 4, "Maximum number of queries processed concurrently")
	askCmd.Flags().StringVarP(&askOutput, "output", "o", "text", "Output format: text or json")
}

func runAsk(cmd *cobra.Command, queries []string) error {
	if askOutput != "text" && askOutput != "json" {
		return fmt.Errorf("unsupported output %q (text, json)", askOutput)
	}
	if askParallel < 1 {
		return fmt.Errorf("--parallel must be at least 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg, nil, nil)
	if err != nil {
		return err
	}
	defer rt.Close()
	if rt.credential == "" {
		return missingKeyError(cfg)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results := make([]session.Snapshot, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(askParallel)
	for i, query := range queries {
		g.Go(func() error {
			snap, err := askOne(gctx, rt, query)
			if err != nil {
				return fmt.Errorf("query %d: %w", i+1, err)
			}
			results[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if askOutput == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(results)
	}
	for i, snap := range results {
		if i > 0 {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		printSnapshot(cmd.OutOrStdout(), snap)
	}
	return nil
}

// askOne runs query to completion in a fresh session.
func askOne(ctx context.Context, rt *runtime, query string) (session.Snapshot, error) {
	sess, err := rt.factory.New("")
	if err != nil {
		return session.Snapshot{}, err
	}
	defer sess.Close()

	if err := sess.SetCredential(rt.credential); err != nil {
		return session.Snapshot{}, err
	}
	turn, err := sess.Submit(query)
	if err != nil {
		return session.Snapshot{}, err
	}
	if _, err := turn.Wait(ctx); err != nil {
		return session.Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

func printSnapshot(w io.Writer, snap session.Snapshot) {
	fmt.Fprintf(w, "=== session %s\n", snap.ID)
	for _, msg := range snap.Transcript {
		switch msg.Role {
		case session.RoleUser:
			fmt.Fprintf(w, "[user] %s\n", msg.Content)
		case session.RoleSystem:
			fmt.Fprintf(w, "[system] %s\n", msg.Content)
		default:
			label := msg.Agent.DisplayName()
			if msg.Metadata != nil && msg.Metadata.Secure {
				label += " (secure)"
			}
			fmt.Fprintf(w, "[%s]\n%s\n", label, msg.Content)
		}
	}
	fmt.Fprintln(w, "--- log")
	for _, entry := range snap.Logs {
		fmt.Fprintf(w, "%s %-7s %s\n", entry.Timestamp.Format("15:04:05"), entry.Level, entry.Message)
	}
}

package commands

import (
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/moolen/medidesk/internal/agents"
	"github.com/moolen/medidesk/internal/delegation"
)

var agentsOutput string

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the coordinator and its specialist sub-agents",
	RunE: func(cmd *cobra.Command, _ []string) error {
		defs := agents.All()
		out := cmd.OutOrStdout()

		switch agentsOutput {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(defs)
		case "table":
		default:
			return fmt.Errorf("unsupported output %q (table, json)", agentsOutput)
		}

		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("IDENTITY", "NAME", "FUNCTION", "SECURE", "DESCRIPTION")
		for _, def := range defs {
			secure := ""
			if def.Secure {
				secure = "yes"
			}
			t.Row(string(def.Identity), def.Name, functionFor(def.Identity), secure, def.Description)
		}
		_, err := fmt.Fprintln(out, t.Render())
		return err
	},
}

func init() {
	agentsCmd.Flags().StringVarP(&agentsOutput, "output", "o", "table", "Output format: table or json")
}

// functionFor returns the delegation function routed to id.
func functionFor(id agents.Identity) string {
	for _, fn := range []string{
		delegation.FnMedicalRecords,
		delegation.FnPatientManagement,
		delegation.FnAppointments,
		delegation.FnBilling,
	} {
		if delegation.Resolve(fn) == id {
			return fn
		}
	}
	return "-"
}

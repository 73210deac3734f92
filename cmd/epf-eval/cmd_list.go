package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emergent-company/epf-eval/internal/reporting"
	"github.com/emergent-company/epf-eval/internal/scenarios"
)

func newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available eval scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			all := scenarios.All()

			fmt.Fprintf(w, "\n%s %s Behaviors\n", reporting.PadRight("ID", 35), reporting.PadRight("Name", 45))
			fmt.Fprintln(w, strings.Repeat("-", 100))
			for _, s := range all {
				behaviors := make([]string, len(s.Behaviors))
				for i, b := range s.Behaviors {
					behaviors[i] = string(b)
				}
				fmt.Fprintf(w, "  %s %s %s\n", reporting.PadRight(s.ID, 33), reporting.PadRight(s.Name, 43), strings.Join(behaviors, ", "))
			}
			fmt.Fprintf(w, "\n%d scenarios available.\n\n", len(all))
			return nil
		},
	}
}

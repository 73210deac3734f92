package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emergent-company/epf-eval/internal/reporting"
	"github.com/emergent-company/epf-eval/internal/scenarios"
	"github.com/emergent-company/epf-eval/internal/tools"
)

func newShowSystemPromptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show-system-prompt",
		Short: "Show the system prompt used for eval scenarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), scenarios.SystemPrompt)
			return nil
		},
	}
}

func newShowToolsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show-tools",
		Short: "Show all tool definitions with their tier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for _, tier := range []tools.Tier{tools.TierEssential, tools.TierGuided, tools.TierSpecialized} {
				fmt.Fprintf(w, "\nTier %d (%s)\n", int(tier), tier)
				fmt.Fprintln(w, strings.Repeat("-", 60))
				for _, td := range tools.TierTools(tier) {
					params := make([]string, len(td.Parameters))
					for i, p := range td.Parameters {
						params[i] = p.Name
					}
					fmt.Fprintf(w, "  %s (%s)\n", reporting.PadRight(td.Name, 35), strings.Join(params, ", "))
				}
			}
			fmt.Fprintln(w)
			return nil
		},
	}
}

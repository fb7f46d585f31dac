package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xcbat/binskim/internal/rules"
)

// NewRulesCmd creates the rules command.
func NewRulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the available hardening rules",
		Long: `Rules lists every hardening rule binskim can evaluate, with its ID and
a short description of what it verifies.

Rule IDs are used with 'scan --disable' and in the .binskim config file.`,
		Run: func(cmd *cobra.Command, _ []string) {
			registry := rules.NewRegistry()

			infos := registry.Infos()
			fmt.Fprintf(cmd.OutOrStdout(), "Available rules (%d):\n\n", len(infos))
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s  %s\n", info.ID, info.Name)
				fmt.Fprintf(cmd.OutOrStdout(), "          %s\n\n", info.Summary)
			}
		},
	}
}

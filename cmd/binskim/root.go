// Package main provides the entry point for the binskim CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for binskim.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "binskim",
		Short: "Security mitigation checker for PE binaries",
		Long: `binskim verifies that Windows PE binaries were built with compiler and
linker security mitigations enabled. It inspects the binary's headers and
debug symbols and reports a pass/fail verdict per rule.

Scans are local file operations; no network access is required.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
	cmd.AddCommand(NewRulesCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

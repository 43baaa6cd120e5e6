// Package main provides the entry point for the stackscan CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for stackscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stackscan",
		Short: "Website technology stack scanner",
		Long: `stackscan crawls websites and identifies the technologies they are built with.

It detects platforms (WordPress, Drupal, React, ...), JavaScript libraries,
CDN providers, analytics tools, and server software by matching page content
against a signature database.

Scan results are saved locally so that repeated scans of the same site can
be compared over time.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewScanCmd())
	cmd.AddCommand(NewCompareCmd())
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

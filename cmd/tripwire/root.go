package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "tripwire",
	Short: "Tripwire - trigger-style policy engine for row mutations",
	Long: `Tripwire is a policy engine that intercepts row mutations before they
reach storage, the way database triggers do.

It provides:
  - Protect policies that reject forbidden inserts, updates, and deletes
  - Transform policies that rewrite mutations in flight (soft delete, versioning)
  - Finite-state-machine guards over field transitions
  - An append-only audit event log with per-entity ordering`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

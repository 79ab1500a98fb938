package main

import (
	"os"

	"github.com/spf13/cobra"
)

func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pg-schema-fx",
		Short: "Manage versioned Postgres views and functions without losing the indexes built on them",
	}
	rootCmd.AddCommand(buildMigrateCmd())
	rootCmd.AddCommand(buildDumpCmd())
	rootCmd.AddCommand(buildIndexesCmd())
	rootCmd.AddCommand(buildVersionCmd())
	return rootCmd
}

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Exit codes for the permanode CLI.
const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// rootCmd is the entry point when permanode is invoked without a
// subcommand.
var rootCmd = &cobra.Command{
	Use:   "permanode",
	Short: "Ingest a DAG ledger's confirmed history into an append-only archive",
	Long: `permanode runs the Collector/Solidifier/Archiver pipeline that
consumes a node's confirmed milestones and messages, fans writes out to a
KV store, and maintains a gap-free, rotated append-only log of every
milestone bundle processed.`,
	SilenceUsage: true,
}

var rootConfigPath string

// SetVersion injects the build-time version into the version command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command and translates a returned error into a
// process exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "permanode version %s\n" .Version}}`)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitCodeError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "", "path to config.yaml (default: ./config.yaml)")
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
}

func configPath() string {
	if rootConfigPath != "" {
		return rootConfigPath
	}
	return "config.yaml"
}

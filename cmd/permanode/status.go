package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"permanode/internal/archiver"
	"permanode/internal/config"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the on-disk archive state: sealed ranges and in-progress log files",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	files, err := archiver.ScanDir(cfg.LogsDir)
	if err != nil {
		return fmt.Errorf("scanning %s: %w", cfg.LogsDir, err)
	}

	next, err := archiver.ResolveStartupWatermark(cfg.LogsDir)
	if err != nil {
		return fmt.Errorf("resolving watermark: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "logs_dir: %s\n", cfg.LogsDir)
	fmt.Fprintf(cmd.OutOrStdout(), "next contiguous milestone: %d\n\n", next)

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"From", "To", "State", "Bytes"})
	for _, f := range files {
		state := "sealed"
		to := fmt.Sprintf("%d", f.To)
		if !f.Sealed {
			state = "in-progress"
			to = "-"
		}
		t.AppendRow(table.Row{f.From, to, state, f.Size})
	}
	t.Render()

	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no log files found)")
	}

	return nil
}

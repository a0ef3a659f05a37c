package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, logsDir string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf("logs_dir: %q\n", logsDir)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRunStatusListsSealedAndInProgressFiles(t *testing.T) {
	logsDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, "0to10.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(logsDir, "10.part"), []byte("xy"), 0o644))

	original := rootConfigPath
	defer func() { rootConfigPath = original }()
	rootConfigPath = writeConfig(t, logsDir)

	cmd := newStatusCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, runStatus(cmd, nil))

	out := buf.String()
	require.Contains(t, out, "next contiguous milestone: 10")
	require.Contains(t, out, "sealed")
	require.Contains(t, out, "in-progress")
}

func TestRunStatusReportsEmptyLogsDir(t *testing.T) {
	logsDir := t.TempDir()

	original := rootConfigPath
	defer func() { rootConfigPath = original }()
	rootConfigPath = writeConfig(t, logsDir)

	cmd := newStatusCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, runStatus(cmd, nil))

	require.Contains(t, buf.String(), "no log files found")
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default().CollectorsCount, cfg.CollectorsCount)
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("collectors_count: 8\nmax_log_size: 1024\nlogs_dir: "+dir+"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.CollectorsCount)
	require.Equal(t, int64(1024), cfg.MaxLogSize)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := Default()
	cfg.CollectorsCount = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidCollectorsCount)

	cfg = Default()
	cfg.MaxLogSize = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidMaxLogSize)

	cfg = Default()
	cfg.LogsDir = ""
	require.ErrorIs(t, cfg.Validate(), ErrMissingLogsDir)
}

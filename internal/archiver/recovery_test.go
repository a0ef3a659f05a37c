package archiver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
}

func TestResolveStartupWatermarkEmptyDir(t *testing.T) {
	dir := t.TempDir()
	next, err := ResolveStartupWatermark(dir)
	require.NoError(t, err)
	require.Equal(t, uint32(0), uint32(next))
}

func TestResolveStartupWatermarkMissingDir(t *testing.T) {
	next, err := ResolveStartupWatermark(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	require.Equal(t, uint32(0), uint32(next))
}

func TestResolveStartupWatermarkContiguousRuns(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "0to10.log")
	touch(t, dir, "10to20.log")
	touch(t, dir, "25to30.log") // gap at 20-25, must not count
	touch(t, dir, "20.part")    // in-progress, not sealed

	next, err := ResolveStartupWatermark(dir)
	require.NoError(t, err)
	require.Equal(t, uint32(20), uint32(next))
}

func TestScanDirReportsSealedAndPartFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "0to10.log")
	touch(t, dir, "10.part")

	files, err := ScanDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.True(t, files[0].Sealed)
	require.False(t, files[1].Sealed)
}

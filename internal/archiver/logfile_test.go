package archiver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"permanode/internal/ids"
)

func TestLogFileCreateOpensPartFile(t *testing.T) {
	dir := t.TempDir()
	lf, err := Create(dir, 10, nil)
	require.NoError(t, err)
	require.Equal(t, ids.MilestoneIndex(10), lf.From)
	require.Equal(t, ids.MilestoneIndex(10), lf.To)
	require.FileExists(t, filepath.Join(dir, "10.part"))
}

func TestLogFileAppendAdvancesWatermark(t *testing.T) {
	dir := t.TempDir()
	lf, err := Create(dir, 0, nil)
	require.NoError(t, err)

	require.NoError(t, lf.AppendLine([]byte("line-a\n")))
	require.Equal(t, ids.MilestoneIndex(1), lf.To)
	require.EqualValues(t, len("line-a\n"), lf.Len)

	require.NoError(t, lf.AppendLine([]byte("line-b\n")))
	require.Equal(t, ids.MilestoneIndex(2), lf.To)
}

func TestLogFileFits(t *testing.T) {
	dir := t.TempDir()
	lf, err := Create(dir, 0, nil)
	require.NoError(t, err)
	require.NoError(t, lf.AppendLine([]byte("12345")))

	require.True(t, lf.Fits(5, 10))
	require.False(t, lf.Fits(6, 10))
}

func TestLogFileFinishSealsAndRenames(t *testing.T) {
	dir := t.TempDir()
	lf, err := Create(dir, 3, nil)
	require.NoError(t, err)
	require.NoError(t, lf.AppendLine([]byte("a\n")))
	require.NoError(t, lf.AppendLine([]byte("b\n")))

	require.NoError(t, lf.Finish())
	require.True(t, lf.Finished)

	require.NoFileExists(t, filepath.Join(dir, "3.part"))
	require.FileExists(t, filepath.Join(dir, "3to5.log"))

	// idempotent
	require.NoError(t, lf.Finish())
}

func TestLogFileForbidsAppendAfterFinish(t *testing.T) {
	dir := t.TempDir()
	lf, err := Create(dir, 0, nil)
	require.NoError(t, err)
	require.NoError(t, lf.Finish())

	err = lf.AppendLine([]byte("too-late\n"))
	require.Error(t, err)
}

func TestLogFileCreateDefaultsUpperToMax(t *testing.T) {
	dir := t.TempDir()
	lf, err := Create(dir, 0, nil)
	require.NoError(t, err)
	require.Equal(t, ids.MaxMilestoneIndex, lf.Upper)
}

func TestLogFileCreateRespectsUpperLimit(t *testing.T) {
	dir := t.TempDir()
	upper := ids.MilestoneIndex(42)
	lf, err := Create(dir, 0, &upper)
	require.NoError(t, err)
	require.Equal(t, upper, lf.Upper)
}

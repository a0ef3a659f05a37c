package archiver

import (
	"fmt"
	"os"
	"path/filepath"

	"permanode/internal/ids"
)

// LogFile is an open append-only file bound to a half-open milestone
// range [From, To) with an upper bound on how far it is allowed to grow,
// per spec.md §4.4. It is owned exclusively by the Archiver task.
type LogFile struct {
	From  ids.MilestoneIndex
	To    ids.MilestoneIndex // the next expected write; exclusive watermark
	Upper ids.MilestoneIndex // upper_ms_limit

	Len      int64
	Finished bool

	file *os.File
	dir  string
}

func partPath(dir string, from ids.MilestoneIndex) string {
	return filepath.Join(dir, fmt.Sprintf("%d.part", from))
}

func sealedPath(dir string, from, to ids.MilestoneIndex) string {
	return filepath.Join(dir, fmt.Sprintf("%dto%d.log", from, to))
}

// Create opens `<dir>/<from>.part` for append. upper, if nil, defaults to
// ids.MaxMilestoneIndex (no cap).
func Create(dir string, from ids.MilestoneIndex, upper *ids.MilestoneIndex) (*LogFile, error) {
	limit := ids.MaxMilestoneIndex
	if upper != nil {
		limit = *upper
	}
	f, err := os.OpenFile(partPath(dir, from), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("archiver: creating log file for %d: %w", from, err)
	}
	return &LogFile{From: from, To: from, Upper: limit, file: f, dir: dir}, nil
}

// AppendLine writes line (expected to already end in '\n') and advances
// the watermark. It flushes immediately: durability requires every append
// to hit disk before the Archiver's corresponding SyncRecord write is
// considered meaningful.
func (lf *LogFile) AppendLine(line []byte) error {
	if lf.Finished {
		return fmt.Errorf("archiver: cannot append to finished log file %d", lf.From)
	}
	n, err := lf.file.Write(line)
	if err != nil {
		return fmt.Errorf("archiver: appending to log file %d: %w", lf.From, err)
	}
	if err := lf.file.Sync(); err != nil {
		return fmt.Errorf("archiver: flushing log file %d: %w", lf.From, err)
	}
	lf.Len += int64(n)
	lf.To++
	return nil
}

// Fits reports whether appending a line of the given size would stay
// within the configured max log size.
func (lf *LogFile) Fits(lineSize int64, maxSize int64) bool {
	return lf.Len+lineSize <= maxSize
}

// Finish flushes, closes, and atomically renames the file from its
// `.part` name to the sealed `<from>to<to>.log` name. Re-opening a
// finished file is forbidden; callers must create a new LogFile instead.
func (lf *LogFile) Finish() error {
	if lf.Finished {
		return nil
	}
	if err := lf.file.Sync(); err != nil {
		return fmt.Errorf("archiver: flushing log file %d before finish: %w", lf.From, err)
	}
	if err := lf.file.Close(); err != nil {
		return fmt.Errorf("archiver: closing log file %d: %w", lf.From, err)
	}
	if err := os.Rename(partPath(lf.dir, lf.From), sealedPath(lf.dir, lf.From, lf.To)); err != nil {
		return fmt.Errorf("archiver: sealing log file %d: %w", lf.From, err)
	}
	lf.Finished = true
	return nil
}

// Range returns the half-open range this file currently covers.
func (lf *LogFile) Range() (from, to ids.MilestoneIndex) { return lf.From, lf.To }

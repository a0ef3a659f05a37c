package config

import "errors"

// ErrInvalidCollectorsCount is returned by Validate when collectors_count
// is not positive; it determines the Solidifier partition space and the
// Archiver's reorder-window size, so zero or negative is unusable.
var ErrInvalidCollectorsCount = errors.New("config: collectors_count must be positive")

// ErrInvalidMaxLogSize is returned when max_log_size would make rotation
// impossible (a single bundle line could never fit).
var ErrInvalidMaxLogSize = errors.New("config: max_log_size must be positive")

// ErrMissingLogsDir is returned when logs_dir is empty.
var ErrMissingLogsDir = errors.New("config: logs_dir must not be empty")

// Validate checks the structural invariants the ingestion pipeline
// depends on at startup.
func (c Config) Validate() error {
	if c.CollectorsCount <= 0 {
		return ErrInvalidCollectorsCount
	}
	if c.MaxLogSize <= 0 {
		return ErrInvalidMaxLogSize
	}
	if c.LogsDir == "" {
		return ErrMissingLogsDir
	}
	return nil
}

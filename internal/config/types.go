// Package config loads and validates the ingestion pipeline's
// configuration: partition counts, retry budgets, archive directory, and
// KV/requester connection settings.
package config

import "time"

// Config is the top-level configuration structure for the ingestion core.
type Config struct {
	// CollectorsCount is C: the number of Collector/Solidifier partitions.
	// Also referred to as solidifiers_count.
	CollectorsCount int `yaml:"collectors_count"`

	// RetriesPerQuery bounds the best-effort KV insert worker's retries.
	RetriesPerQuery int `yaml:"retries_per_query"`

	// ConfirmedRetries bounds the atomic solidifier worker's retries.
	ConfirmedRetries int `yaml:"confirmed_retries"`

	// LogsDir is the directory archive log files are written into. May
	// contain template placeholders resolved via internal/config's
	// template renderer (e.g. "{{ env \"PERMANODE_HOME\" }}/logs").
	LogsDir string `yaml:"logs_dir"`

	// MaxLogSize is the byte ceiling at which a LogFile rotates.
	MaxLogSize int64 `yaml:"max_log_size"`

	// PartitionBuckets is the number of secondary KV-row partition
	// buckets used for parents/addresses/indexes rows.
	PartitionBuckets int `yaml:"partition_buckets"`

	// APIEndpoints are the remote gateway URLs fed into the Requester pool.
	APIEndpoints []string `yaml:"api_endpoints"`

	// KVAddr is the Valkey connection address(es).
	KVAddr []string `yaml:"kv_addr"`

	// KVRetryBackoff is the base backoff between KV retry attempts.
	KVRetryBackoff time.Duration `yaml:"kv_retry_backoff"`

	// RequesterTimeout bounds a single outbound fetch.
	RequesterTimeout time.Duration `yaml:"requester_timeout"`

	// RequesterConcurrency bounds concurrent in-flight fetches.
	RequesterConcurrency int `yaml:"requester_concurrency"`

	// LogLevel is one of debug/info/warn/error.
	LogLevel string `yaml:"log_level"`
}

// SolidifiersCount is an alias accessor: spec.md uses collectors_count and
// solidifiers_count interchangeably, both equal to C.
func (c Config) SolidifiersCount() int { return c.CollectorsCount }

package config

import "time"

// Default returns a Config populated with sane defaults, mirroring the
// teacher's GetDefaultConfigWithRoles pattern of "start from defaults,
// overlay what the file provides".
func Default() Config {
	return Config{
		CollectorsCount:      4,
		RetriesPerQuery:      3,
		ConfirmedRetries:     5,
		LogsDir:              "./logs",
		MaxLogSize:           64 * 1024 * 1024,
		PartitionBuckets:     10,
		APIEndpoints:         nil,
		KVAddr:               []string{"127.0.0.1:6379"},
		KVRetryBackoff:       200 * time.Millisecond,
		RequesterTimeout:     10 * time.Second,
		RequesterConcurrency: 8,
		LogLevel:             "info",
	}
}

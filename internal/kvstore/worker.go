package kvstore

import (
	"context"
	"fmt"
	"time"
)

// InsertOp is a single idempotent KV write.
type InsertOp func(ctx context.Context) error

// RunBestEffort executes op, retrying up to `retries` additional times on
// failure and waiting the same fixed backoff after every failed attempt,
// the last one included. This is the "best-effort insert worker" of
// spec.md §4.1, intended to be launched via `go` so the caller's event
// loop does not wait on it.
func RunBestEffort(ctx context.Context, op InsertOp, retries int, backoff time.Duration) error {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if err := op(ctx); err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("kvstore: best-effort insert exhausted %d retries: %w", retries, lastErr)
}

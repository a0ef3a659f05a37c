// Package kvstore implements the wide-column-store interface the
// Collector and Archiver write through. The concrete implementation talks
// to Valkey (a Redis-protocol store) via valkey-go, grounded on the
// teacher's own use of a Valkey-backed storage adapter
// (github.com/giantswarm/mcp-oauth/storage/valkey) for its OAuth session
// store: this module repurposes the same client library for the
// permanode KV schema described in spec.md §6.
package kvstore

import (
	"fmt"

	"permanode/internal/ids"
)

// Row keys. Kept as small pure functions so the schema lives in one place
// and both the real Valkey-backed Store and any test fake agree on it.

func messageKey(id ids.MessageID) string {
	return "msg:" + id.String()
}

func parentsKey(parentID ids.MessageID, partitionID int) string {
	return fmt.Sprintf("parents:%s:%d", parentID, partitionID)
}

func indexKey(indexationKey string, partitionID int) string {
	return fmt.Sprintf("idx:%s:%d", indexationKey, partitionID)
}

func addressKey(address, addressType string, partitionID int) string {
	return fmt.Sprintf("addr:%s:%s:%d", address, addressType, partitionID)
}

func transactionKey(transactionID ids.MessageID, idx uint16, variant string) string {
	return fmt.Sprintf("tx:%s:%d:%s", transactionID, idx, variant)
}

func milestoneKey(index ids.MilestoneIndex) string {
	return fmt.Sprintf("ms:%d", index)
}

func hintKey(hint, variant string) string {
	return fmt.Sprintf("hint:%s:%s", hint, variant)
}

func syncKey(key string, index ids.MilestoneIndex) string {
	return fmt.Sprintf("sync:%s:%d", key, index)
}

// PartitionBucket is the secondary, configurable hash-and-bucket
// partition function (b) from spec.md §9 DESIGN NOTES: it bounds the
// width of any single parents/indexes/addresses wide row and must never
// be confused with ids.PartitionOf, which selects a Solidifier.
func PartitionBucket(messageID ids.MessageID, buckets int) int {
	if buckets <= 0 {
		return 0
	}
	var sum uint32
	for _, b := range messageID {
		sum = sum*31 + uint32(b)
	}
	return int(sum % uint32(buckets))
}

// Package ids defines the identifier types shared across the ingestion
// pipeline: message identifiers and the monotonic milestone counter.
package ids

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// MessageID is the 32-byte hash identifying a message. It is small enough
// to copy by value everywhere it is used.
type MessageID [32]byte

// String renders the id as lowercase hex.
func (id MessageID) String() string {
	return hex.EncodeToString(id[:])
}

// MarshalJSON renders the id as a hex string, matching the wire format
// produced by the remote gateway.
func (id MessageID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON parses a hex-encoded message id.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return id.UnmarshalText([]byte(s))
}

// UnmarshalText implements encoding.TextUnmarshaler so MessageID can be
// used directly as a map key in YAML/text contexts.
func (id *MessageID) UnmarshalText(text []byte) error {
	b, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("ids: invalid message id %q: %w", text, err)
	}
	if len(b) != len(id) {
		return fmt.Errorf("ids: message id %q has %d bytes, want %d", text, len(b), len(id))
	}
	copy(id[:], b)
	return nil
}

// MilestoneIndex is the monotonically increasing checkpoint counter.
type MilestoneIndex uint32

// MaxMilestoneIndex is the sentinel "no upper bound" value used by LogFile
// when a range is not capped.
const MaxMilestoneIndex MilestoneIndex = ^MilestoneIndex(0)

// PartitionOf returns the solidifier partition id for a milestone index
// given the collector/solidifier count C. This is the "select the
// solidifier" partition function; it must never be confused with the
// KV-row partition function in internal/kvstore.
func PartitionOf(ms MilestoneIndex, collectorsCount int) int {
	if collectorsCount <= 0 {
		return 0
	}
	return int(uint32(ms) % uint32(collectorsCount))
}

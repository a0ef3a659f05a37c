// Package model defines the wire-level entities consumed and produced by
// the ingestion pipeline: messages, metadata, and the assembled milestone
// bundles written to disk.
package model

import (
	"encoding/json"
	"fmt"

	"permanode/internal/ids"
)

// PayloadKind discriminates the tagged union carried by a Message.
type PayloadKind string

const (
	PayloadIndexation PayloadKind = "Indexation"
	PayloadTransaction PayloadKind = "Transaction"
	PayloadMilestone   PayloadKind = "Milestone"
	PayloadTreasury    PayloadKind = "Treasury"
)

// Payload is implemented by every concrete payload type. Kind is used both
// for JSON discrimination and for routing in the collector's write fan-out.
type Payload interface {
	Kind() PayloadKind
}

// IndexationPayload carries a free-form index key used for the `indexes`
// KV table.
type IndexationPayload struct {
	Index string `json:"index"`
	Data  []byte `json:"data,omitempty"`
}

func (IndexationPayload) Kind() PayloadKind { return PayloadIndexation }

// TxIO is one input, output, or unlock block of a Transaction payload.
type TxIO struct {
	Index       uint16 `json:"index"`
	Address     string `json:"address,omitempty"`
	AddressType string `json:"address_type,omitempty"`
	Amount      uint64 `json:"amount,omitempty"`
	OutputType  string `json:"output_type,omitempty"`
}

// TransactionPayload is the payload fanned out into the transactions,
// addresses, and unlocks rows described in spec.md §6.
type TransactionPayload struct {
	TransactionID ids.MessageID `json:"transaction_id"`
	Inputs        []TxIO        `json:"inputs"`
	Outputs       []TxIO        `json:"outputs"`
	Unlocks       []TxIO        `json:"unlocks"`
}

func (TransactionPayload) Kind() PayloadKind { return PayloadTransaction }

// MilestonePayload is the payload of the milestone message itself: it
// seeds a Solidifier's to-resolve set with its parents.
type MilestonePayload struct {
	Index     ids.MilestoneIndex `json:"index"`
	Timestamp int64              `json:"timestamp"`
}

func (MilestonePayload) Kind() PayloadKind { return PayloadMilestone }

// TreasuryPayload moves funds out of the protocol-owned treasury output.
type TreasuryPayload struct {
	Amount uint64 `json:"amount"`
}

func (TreasuryPayload) Kind() PayloadKind { return PayloadTreasury }

// Message is a DAG node: a set of parents plus an optional payload and the
// raw bytes as received from the network.
type Message struct {
	ID      ids.MessageID   `json:"id"`
	Parents []ids.MessageID `json:"parents"`
	Payload Payload         `json:"payload,omitempty"`
	Raw     []byte          `json:"raw,omitempty"`
}

// payloadEnvelope is the JSON-on-the-wire shape for Payload, needed
// because Go's encoding/json has no native sum-type support.
type payloadEnvelope struct {
	Kind PayloadKind     `json:"kind"`
	Body json.RawMessage `json:"body"`
}

type messageJSON struct {
	ID      ids.MessageID    `json:"id"`
	Parents []ids.MessageID  `json:"parents"`
	Payload *payloadEnvelope `json:"payload,omitempty"`
	Raw     []byte           `json:"raw,omitempty"`
}

// MarshalJSON encodes the payload as a kind-tagged envelope so it survives
// the round trip required by spec.md §8.
func (m Message) MarshalJSON() ([]byte, error) {
	out := messageJSON{ID: m.ID, Parents: m.Parents, Raw: m.Raw}
	if m.Payload != nil {
		body, err := json.Marshal(m.Payload)
		if err != nil {
			return nil, err
		}
		out.Payload = &payloadEnvelope{Kind: m.Payload.Kind(), Body: body}
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the kind-tagged envelope back into the concrete
// Payload type.
func (m *Message) UnmarshalJSON(data []byte) error {
	var in messageJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	m.ID, m.Parents, m.Raw = in.ID, in.Parents, in.Raw
	if in.Payload == nil {
		m.Payload = nil
		return nil
	}
	payload, err := decodePayload(in.Payload.Kind, in.Payload.Body)
	if err != nil {
		return err
	}
	m.Payload = payload
	return nil
}

func decodePayload(kind PayloadKind, body json.RawMessage) (Payload, error) {
	switch kind {
	case PayloadIndexation:
		var p IndexationPayload
		return p, json.Unmarshal(body, &p)
	case PayloadTransaction:
		var p TransactionPayload
		return p, json.Unmarshal(body, &p)
	case PayloadMilestone:
		var p MilestonePayload
		return p, json.Unmarshal(body, &p)
	case PayloadTreasury:
		var p TreasuryPayload
		return p, json.Unmarshal(body, &p)
	default:
		return nil, fmt.Errorf("model: unknown payload kind %q", kind)
	}
}

// Clone returns a deep-enough copy of m suitable for handing to a write
// worker that outlives the caller's cache entry.
func (m Message) Clone() Message {
	out := m
	out.Parents = append([]ids.MessageID(nil), m.Parents...)
	out.Raw = append([]byte(nil), m.Raw...)
	return out
}

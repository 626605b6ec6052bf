package entity

import (
	"encoding/json"
	"time"
)

// Kind names an entity collection. The queue orders mutations per
// (Kind, EntityID) stream.
type Kind string

const (
	KindRoom         Kind = "room"
	KindStaff        Kind = "staff"
	KindIncident     Kind = "incident"
	KindInventory    Kind = "inventory"
	KindAnnouncement Kind = "announcement"
	KindAsset        Kind = "asset"
	KindCleaningType Kind = "cleaning_type"
	KindAvailability Kind = "availability"
	KindShift        Kind = "shift"
)

// Operation is the write kind a mutation performs.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Mutation is one not-yet-confirmed write. Payload is an opaque JSON
// document; for updates only the fields present in it are touched.
// Sequence is assigned by the queue when the mutation is persisted and
// stays zero for writes that never made it to durable storage.
type Mutation struct {
	Sequence   uint64          `json:"sequence"`
	Kind       Kind            `json:"entity_kind"`
	EntityID   string          `json:"entity_id"`
	Op         Operation       `json:"operation"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	AtRisk     bool            `json:"at_risk,omitempty"`
}

// StreamKey identifies the per-entity ordering stream a mutation belongs to.
func (m *Mutation) StreamKey() string {
	return string(m.Kind) + "/" + m.EntityID
}

// NewMutation builds a mutation with the payload marshalled from v.
func NewMutation(kind Kind, id string, op Operation, v any) (*Mutation, error) {
	var payload json.RawMessage
	if v != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		payload = raw
	}
	return &Mutation{Kind: kind, EntityID: id, Op: op, Payload: payload}, nil
}

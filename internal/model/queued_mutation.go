package model

import "time"

// QueuedMutation is one row of the durable offline mutation log. Sequence is
// assigned by the database and is the global dispatch order; rows are removed
// only after a confirmed server acknowledgment.
type QueuedMutation struct {
	Sequence   uint64    `gorm:"primaryKey;autoIncrement"`
	EntityKind string    `gorm:"size:32;not null;index"`
	EntityID   string    `gorm:"size:64;not null;index"`
	Operation  string    `gorm:"size:16;not null"`
	Payload    []byte    `gorm:"type:blob"`
	EnqueuedAt time.Time `gorm:"not null"`
	AtRisk     bool      `gorm:"not null;default:false"`
}

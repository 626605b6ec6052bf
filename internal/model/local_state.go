package model

import "time"

// LocalState is the durable key-value store for the auth token, the
// serialized user profile and the active session snapshot.
type LocalState struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     []byte `gorm:"type:blob"`
	UpdatedAt time.Time
}

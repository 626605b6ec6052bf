package localstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotelflow-core/internal/model"
)

const (
	KeyAuthToken = "auth_token"
	KeyProfile   = "user_profile"
	KeySession   = "work_session"
)

// ErrNotFound is returned when a key has never been written.
var ErrNotFound = errors.New("local state key not found")

// Store is the durable key-value store for the auth token, the serialized
// user profile and the active session snapshot.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Put upserts a raw value under key.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	rec := model.LocalState{Key: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to persist local state %q: %w", key, err)
	}
	return nil
}

// Get reads a raw value, returning ErrNotFound for unknown keys.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var rec model.LocalState
	err := s.db.WithContext(ctx).First(&rec, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local state %q: %w", key, err)
	}
	return rec.Value, nil
}

// Delete removes a key; deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&model.LocalState{}, "key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete local state %q: %w", key, err)
	}
	return nil
}

// PutJSON marshals v and stores it under key.
func (s *Store) PutJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode local state %q: %w", key, err)
	}
	return s.Put(ctx, key, raw)
}

// GetJSON reads key and unmarshals it into v.
func (s *Store) GetJSON(ctx context.Context, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode local state %q: %w", key, err)
	}
	return nil
}

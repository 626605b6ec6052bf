package queue

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/model"
)

// Queue is the durable, ordered log of not-yet-confirmed writes. It survives
// process restarts: the database row order is the dispatch order.
type Queue interface {
	Enqueue(ctx context.Context, m *entity.Mutation) error
	PeekBatch(ctx context.Context, n int) ([]entity.Mutation, error)
	Acknowledge(ctx context.Context, sequences ...uint64) error
	Size(ctx context.Context) (int, error)
	AtRiskCount(ctx context.Context) (int, error)
	PendingStreams(ctx context.Context) (map[string]bool, error)
	Reset(ctx context.Context) error
}

type gormQueue struct {
	db *gorm.DB
}

// NewGormQueue creates a GORM-backed queue.
func NewGormQueue(db *gorm.DB) Queue {
	return &gormQueue{db: db}
}

// Enqueue appends the mutation to the tail and persists it before returning.
// The database assigns the monotonically increasing sequence number, which is
// written back into m. A persistence failure is returned loudly: the caller
// must not assume the action survives a crash.
func (q *gormQueue) Enqueue(ctx context.Context, m *entity.Mutation) error {
	rec := model.QueuedMutation{
		EntityKind: string(m.Kind),
		EntityID:   m.EntityID,
		Operation:  string(m.Op),
		Payload:    []byte(m.Payload),
		EnqueuedAt: time.Now().UTC(),
	}
	if err := q.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to persist mutation for %s/%s: %w", m.Kind, m.EntityID, err)
	}
	m.Sequence = rec.Sequence
	m.EnqueuedAt = rec.EnqueuedAt
	return nil
}

// PeekBatch returns the oldest n unacknowledged mutations without removing
// them.
func (q *gormQueue) PeekBatch(ctx context.Context, n int) ([]entity.Mutation, error) {
	var recs []model.QueuedMutation
	if err := q.db.WithContext(ctx).Order("sequence asc").Limit(n).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to read queue head: %w", err)
	}
	out := make([]entity.Mutation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, entity.Mutation{
			Sequence:   rec.Sequence,
			Kind:       entity.Kind(rec.EntityKind),
			EntityID:   rec.EntityID,
			Op:         entity.Operation(rec.Operation),
			Payload:    rec.Payload,
			EnqueuedAt: rec.EnqueuedAt,
			AtRisk:     rec.AtRisk,
		})
	}
	return out, nil
}

// Acknowledge removes confirmed mutations. Safe to call with a subset of a
// batch; the order of the remaining entries is unchanged.
func (q *gormQueue) Acknowledge(ctx context.Context, sequences ...uint64) error {
	if len(sequences) == 0 {
		return nil
	}
	if err := q.db.WithContext(ctx).Delete(&model.QueuedMutation{}, "sequence IN ?", sequences).Error; err != nil {
		return fmt.Errorf("failed to acknowledge mutations: %w", err)
	}
	return nil
}

// Size counts unacknowledged mutations (the "queued actions" indicator).
func (q *gormQueue) Size(ctx context.Context) (int, error) {
	var count int64
	if err := q.db.WithContext(ctx).Model(&model.QueuedMutation{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count queue: %w", err)
	}
	return int(count), nil
}

// AtRiskCount counts queued writes flagged as at risk of loss on crash.
func (q *gormQueue) AtRiskCount(ctx context.Context) (int, error) {
	var count int64
	if err := q.db.WithContext(ctx).Model(&model.QueuedMutation{}).Where("at_risk = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count at-risk entries: %w", err)
	}
	return int(count), nil
}

// PendingStreams returns the set of entity streams ("kind/id") that still
// have queued writes. A full refresh must not clobber these.
func (q *gormQueue) PendingStreams(ctx context.Context) (map[string]bool, error) {
	var recs []model.QueuedMutation
	if err := q.db.WithContext(ctx).Select("entity_kind", "entity_id").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to read pending streams: %w", err)
	}
	streams := make(map[string]bool, len(recs))
	for _, rec := range recs {
		streams[rec.EntityKind+"/"+rec.EntityID] = true
	}
	return streams, nil
}

// Reset empties the queue. Last resort for corrupted durable storage; the
// caller must warn the user that unsynced changes may have been lost.
func (q *gormQueue) Reset(ctx context.Context) error {
	if err := q.db.WithContext(ctx).Where("1 = 1").Delete(&model.QueuedMutation{}).Error; err != nil {
		return fmt.Errorf("failed to reset queue: %w", err)
	}
	return nil
}

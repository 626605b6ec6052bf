package sync

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hotelflow-core/config"
	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/model"
	"hotelflow-core/internal/queue"
	"hotelflow-core/internal/remote"
	"hotelflow-core/internal/store"
)

// mockDispatcher scripts per-call outcomes and records dispatch order.
type mockDispatcher struct {
	dispatched []string
	results    map[string]error
	echo       map[string]json.RawMessage
	fetch      map[entity.Kind][]json.RawMessage
	fetchErr   error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, mu *entity.Mutation) ([]byte, error) {
	key := mu.StreamKey()
	m.dispatched = append(m.dispatched, key)
	if err, ok := m.results[key]; ok && err != nil {
		return nil, err
	}
	if body, ok := m.echo[key]; ok {
		return body, nil
	}
	return nil, nil
}

func (m *mockDispatcher) FetchCollection(ctx context.Context, kind entity.Kind) ([]json.RawMessage, error) {
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return m.fetch[kind], nil
}

func newTestEngine(t *testing.T, d Dispatcher) (*Engine, *store.EntityStore, queue.Queue) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.QueuedMutation{}))

	st := store.New()
	q := queue.NewGormQueue(db)
	cfg := &config.SyncConfig{Interval: time.Minute, BatchSize: 10}
	return NewEngine(cfg, st, q, d), st, q
}

func submitStatus(t *testing.T, e *Engine, id string, status entity.RoomStatus) {
	t.Helper()
	m, err := entity.NewMutation(entity.KindRoom, id, entity.OpUpdate, map[string]entity.RoomStatus{"status": status})
	require.NoError(t, err)
	require.NoError(t, e.Submit(context.Background(), m))
}

func TestSubmitAppliesOptimistically(t *testing.T) {
	e, st, q := newTestEngine(t, &mockDispatcher{})

	submitStatus(t, e, "r1", entity.RoomInProgress)

	room, ok := st.Room("r1")
	require.True(t, ok)
	assert.Equal(t, entity.RoomInProgress, room.Status)

	size, err := q.Size(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, size)
}

// failingQueue simulates durable storage that refuses every write.
type failingQueue struct {
	queue.Queue
	enqueueErr error
}

func (f *failingQueue) Enqueue(ctx context.Context, m *entity.Mutation) error {
	return f.enqueueErr
}

func TestEnqueueFailureCountsWriteAtRisk(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.QueuedMutation{}))

	st := store.New()
	q := &failingQueue{Queue: queue.NewGormQueue(db), enqueueErr: errors.New("disk full")}
	e := NewEngine(&config.SyncConfig{Interval: time.Minute, BatchSize: 10}, st, q, &mockDispatcher{})
	ctx := context.Background()

	m, err := entity.NewMutation(entity.KindRoom, "r1", entity.OpUpdate,
		map[string]entity.RoomStatus{"status": entity.RoomInProgress})
	require.NoError(t, err)

	err = e.Submit(ctx, m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at risk")
	assert.True(t, m.AtRisk)

	// The optimistic apply still lands so the UI stays responsive.
	room, ok := st.Room("r1")
	require.True(t, ok)
	assert.Equal(t, entity.RoomInProgress, room.Status)

	// The unpersisted write stays visible in the status until restart.
	status := e.Status(ctx)
	assert.Equal(t, 1, status.AtRisk)
}

func TestOfflineEditsDrainInOrderOnReconnect(t *testing.T) {
	d := &mockDispatcher{results: map[string]error{}}
	e, _, q := newTestEngine(t, d)
	ctx := context.Background()

	// Authority unreachable: everything queues up.
	d.results["room/r1"] = &remote.TransientError{Err: errors.New("no route to host")}
	submitStatus(t, e, "r1", entity.RoomInProgress)
	submitStatus(t, e, "r2", entity.RoomInProgress)
	submitStatus(t, e, "r3", entity.RoomCompleted)

	e.DrainOnce(ctx)
	assert.Equal(t, StateOffline, e.State())
	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size)

	// Connectivity returns.
	delete(d.results, "room/r1")
	d.dispatched = nil
	e.DrainOnce(ctx)

	assert.Equal(t, []string{"room/r1", "room/r2", "room/r3"}, d.dispatched)
	assert.Equal(t, StateIdle, e.State())
	size, err = q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)
}

func TestTransientFailureStopsBatchAndKeepsQueue(t *testing.T) {
	d := &mockDispatcher{results: map[string]error{
		"room/r2": &remote.TransientError{Err: errors.New("timeout")},
	}}
	e, _, q := newTestEngine(t, d)
	ctx := context.Background()

	submitStatus(t, e, "r1", entity.RoomInProgress)
	submitStatus(t, e, "r2", entity.RoomInProgress)
	submitStatus(t, e, "r3", entity.RoomInProgress)

	e.DrainOnce(ctx)

	assert.Equal(t, StateOffline, e.State())
	// r1 confirmed, r2 blocked the batch, r3 never attempted.
	batch, err := q.PeekBatch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "r2", batch[0].EntityID)
	assert.Equal(t, "r3", batch[1].EntityID)

	status := e.Status(ctx)
	assert.Equal(t, "OFFLINE", status.State)
	assert.NotEmpty(t, status.LastErr)
}

func TestRejectedMutationIsDroppedAndReportedOnce(t *testing.T) {
	d := &mockDispatcher{results: map[string]error{
		"room/r1": &remote.RejectedError{Status: 403, Body: "forbidden"},
	}}
	e, st, q := newTestEngine(t, d)
	ctx := context.Background()

	submitStatus(t, e, "r1", entity.RoomCompleted)
	submitStatus(t, e, "r2", entity.RoomInProgress)

	e.DrainOnce(ctx)

	assert.Equal(t, StateIdle, e.State())
	size, err := q.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	status := e.Status(ctx)
	require.Len(t, status.Rejected, 1)
	assert.Equal(t, "r1", status.Rejected[0].EntityID)

	// The alert is delivered exactly once.
	assert.Empty(t, e.Status(ctx).Rejected)

	// The rejected kind is flagged for a forced refresh.
	assert.Equal(t, []entity.Kind{entity.KindRoom}, st.TakeStale())
}

func TestConfirmAppliesServerEcho(t *testing.T) {
	d := &mockDispatcher{echo: map[string]json.RawMessage{
		"room/r1": json.RawMessage(`{"status":"COMPLETED","notes":"checked by server"}`),
	}}
	e, st, _ := newTestEngine(t, d)

	submitStatus(t, e, "r1", entity.RoomCompleted)
	e.DrainOnce(context.Background())

	room, ok := st.Room("r1")
	require.True(t, ok)
	assert.Equal(t, entity.RoomCompleted, room.Status)
	assert.Equal(t, "checked by server", room.Notes)
}

func TestRefreshSkipsEntitiesWithQueuedWrites(t *testing.T) {
	d := &mockDispatcher{fetch: map[entity.Kind][]json.RawMessage{
		entity.KindRoom: {
			json.RawMessage(`{"id":"r1","status":"PENDING"}`),
			json.RawMessage(`{"id":"r2","status":"PENDING"}`),
		},
	}}
	e, st, _ := newTestEngine(t, d)

	// r1 has an unsynced local edit; the refresh must not clobber it.
	submitStatus(t, e, "r1", entity.RoomInProgress)

	require.NoError(t, e.Refresh(context.Background(), entity.KindRoom))

	r1, _ := st.Room("r1")
	assert.Equal(t, entity.RoomInProgress, r1.Status)
	r2, ok := st.Room("r2")
	require.True(t, ok)
	assert.Equal(t, entity.RoomPending, r2.Status)
}

func TestRefreshHandlesNumericIDs(t *testing.T) {
	d := &mockDispatcher{fetch: map[entity.Kind][]json.RawMessage{
		entity.KindRoom: {json.RawMessage(`{"id":17,"number":"204"}`)},
	}}
	e, st, _ := newTestEngine(t, d)

	require.NoError(t, e.Refresh(context.Background(), entity.KindRoom))

	room, ok := st.Room("17")
	require.True(t, ok)
	assert.Equal(t, "204", room.Number)
}

func TestDefaultRefreshPullsRosterCollections(t *testing.T) {
	d := &mockDispatcher{fetch: map[entity.Kind][]json.RawMessage{
		entity.KindShift: {
			json.RawMessage(`{"id":"s1","user_id":"u1","date":"2026-08-31","start_time":"09:00","end_time":"17:00"}`),
		},
		entity.KindAvailability: {
			json.RawMessage(`{"id":"av1","user_id":"u1","date":"2026-09-01","status":"OFF"}`),
		},
	}}
	e, st, _ := newTestEngine(t, d)

	// No explicit kinds: the default set must include the roster data the
	// forecast and generator read.
	require.NoError(t, e.Refresh(context.Background()))

	shifts := st.Shifts()
	require.Len(t, shifts, 1)
	assert.Equal(t, "u1", shifts[0].StaffID)
	assert.Equal(t, "09:00", shifts[0].Start)

	availability := st.Availability()
	require.Len(t, availability, 1)
	assert.Equal(t, entity.AvailabilityOff, availability[0].Status)
}

func TestRefreshTransientFailureGoesOffline(t *testing.T) {
	d := &mockDispatcher{fetchErr: &remote.TransientError{Err: errors.New("dns failure")}}
	e, _, _ := newTestEngine(t, d)

	err := e.Refresh(context.Background(), entity.KindRoom)
	require.Error(t, err)
	assert.Equal(t, StateOffline, e.State())
}

func TestAnnouncementFanOutFiresOncePerID(t *testing.T) {
	d := &mockDispatcher{fetch: map[entity.Kind][]json.RawMessage{
		entity.KindAnnouncement: {json.RawMessage(`{"id":"a1","text":"pool closed","author":"frontdesk"}`)},
	}}
	e, _, _ := newTestEngine(t, d)

	var got []entity.Announcement
	e.OnAnnouncement(func(a entity.Announcement) { got = append(got, a) })

	require.NoError(t, e.Refresh(context.Background(), entity.KindAnnouncement))
	require.NoError(t, e.Refresh(context.Background(), entity.KindAnnouncement))

	require.Len(t, got, 1)
	assert.Equal(t, "pool closed", got[0].Text)
}

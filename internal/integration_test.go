package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
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
	syncengine "hotelflow-core/internal/sync"
)

// mockAuthority simulates the backend REST service with a connectivity
// switch and records the write order it observes.
type mockAuthority struct {
	mu      sync.Mutex
	online  bool
	writes  []string
	rejects map[string]int
}

func (a *mockAuthority) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		defer a.mu.Unlock()

		if !a.online {
			http.Error(w, "gateway unavailable", http.StatusServiceUnavailable)
			return
		}
		if status, ok := a.rejects[r.URL.Path]; ok {
			http.Error(w, "rejected", status)
			return
		}
		if r.Method == http.MethodGet {
			w.Write([]byte(`[]`))
			return
		}
		a.writes = append(a.writes, r.Method+" "+r.URL.Path)
		w.Write([]byte(`{"status":"COMPLETED","notes":"confirmed"}`))
	}
}

func (a *mockAuthority) setOnline(v bool) {
	a.mu.Lock()
	a.online = v
	a.mu.Unlock()
}

func (a *mockAuthority) observedWrites() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.writes...)
}

func openDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.QueuedMutation{}))
	return db
}

func submit(t *testing.T, e *syncengine.Engine, id string, status entity.RoomStatus) {
	t.Helper()
	m, err := entity.NewMutation(entity.KindRoom, id, entity.OpUpdate, map[string]entity.RoomStatus{"status": status})
	require.NoError(t, err)
	require.NoError(t, e.Submit(context.Background(), m))
}

// TestOfflineLifecycle walks the core flow: edits while offline queue up and
// stay visible locally, survive a process restart, and drain in order once
// connectivity returns.
func TestOfflineLifecycle(t *testing.T) {
	authority := &mockAuthority{}
	server := httptest.NewServer(authority.handler())
	defer server.Close()

	cfg := &config.Config{
		Remote: config.RemoteConfig{BaseURL: server.URL, Timeout: 2 * time.Second},
		Sync:   config.SyncConfig{Interval: time.Minute, BatchSize: 10},
	}

	dsn := filepath.Join(t.TempDir(), "hotelflow.db")
	ctx := context.Background()

	// --- Phase 1: offline edits ---
	db1 := openDB(t, dsn)
	st1 := store.New()
	q1 := queue.NewGormQueue(db1)
	client := remote.NewClient(&cfg.Remote)
	engine1 := syncengine.NewEngine(&cfg.Sync, st1, q1, client)

	submit(t, engine1, "r1", entity.RoomInProgress)
	submit(t, engine1, "r2", entity.RoomInProgress)
	submit(t, engine1, "r3", entity.RoomCompleted)

	engine1.DrainOnce(ctx)
	assert.Equal(t, syncengine.StateOffline, engine1.State())

	// The optimistic state is immediately visible regardless of connectivity.
	r3, ok := st1.Room("r3")
	require.True(t, ok)
	assert.Equal(t, entity.RoomCompleted, r3.Status)

	status := engine1.Status(ctx)
	assert.Equal(t, 3, status.Queued)

	// --- Phase 2: process restart with the same database file ---
	sqlDB, err := db1.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	db2 := openDB(t, dsn)
	st2 := store.New()
	q2 := queue.NewGormQueue(db2)
	engine2 := syncengine.NewEngine(&cfg.Sync, st2, q2, client)

	size, err := q2.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, size, "queued edits must survive restart")

	// --- Phase 3: connectivity returns, drain in order ---
	authority.setOnline(true)
	engine2.DrainOnce(ctx)

	assert.Equal(t, syncengine.StateIdle, engine2.State())
	assert.Equal(t, []string{
		"PATCH /housekeeping/rooms/r1/",
		"PATCH /housekeeping/rooms/r2/",
		"PATCH /housekeeping/rooms/r3/",
	}, authority.observedWrites())

	size, err = q2.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, size)

	// The server echo was reconciled into the local model.
	r1, ok := st2.Room("r1")
	require.True(t, ok)
	assert.Equal(t, "confirmed", r1.Notes)
}

// TestRejectedWriteIsDroppedNotRetried verifies a 4xx write never wedges the
// queue: it is dropped, reported, and later writes still go through.
func TestRejectedWriteIsDroppedNotRetried(t *testing.T) {
	authority := &mockAuthority{
		online:  true,
		rejects: map[string]int{"/housekeeping/rooms/locked/": http.StatusForbidden},
	}
	server := httptest.NewServer(authority.handler())
	defer server.Close()

	cfg := &config.Config{
		Remote: config.RemoteConfig{BaseURL: server.URL, Timeout: 2 * time.Second},
		Sync:   config.SyncConfig{Interval: time.Minute, BatchSize: 10},
	}

	db := openDB(t, filepath.Join(t.TempDir(), "hotelflow.db"))
	st := store.New()
	q := queue.NewGormQueue(db)
	engine := syncengine.NewEngine(&cfg.Sync, st, q, remote.NewClient(&cfg.Remote))
	ctx := context.Background()

	submit(t, engine, "locked", entity.RoomCompleted)
	submit(t, engine, "open", entity.RoomCompleted)

	engine.DrainOnce(ctx)

	assert.Equal(t, syncengine.StateIdle, engine.State())
	assert.Equal(t, []string{"PATCH /housekeeping/rooms/open/"}, authority.observedWrites())

	status := engine.Status(ctx)
	assert.Equal(t, 0, status.Queued)
	require.Len(t, status.Rejected, 1)
	assert.Equal(t, "locked", status.Rejected[0].EntityID)

	// The affected collection is flagged so a refresh can heal the
	// optimistic discrepancy.
	assert.Contains(t, st.TakeStale(), entity.KindRoom)
}

// TestRefreshRoundTrip exercises Refresh against JSON the way the backend
// serializes it, including numeric ids.
func TestRefreshRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/housekeeping/rooms/":
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": 1, "number": "101", "status": "PENDING", "cleaning_type": "DEPARTURE"},
				{"id": 2, "number": "102", "status": "PENDING", "cleaning_type": "PREARRIVAL"},
			})
		default:
			w.Write([]byte(`[]`))
		}
	}))
	defer server.Close()

	cfg := &config.Config{
		Remote: config.RemoteConfig{BaseURL: server.URL, Timeout: 2 * time.Second},
		Sync:   config.SyncConfig{Interval: time.Minute, BatchSize: 10},
	}

	db := openDB(t, filepath.Join(t.TempDir(), "hotelflow.db"))
	st := store.New()
	engine := syncengine.NewEngine(&cfg.Sync, st, queue.NewGormQueue(db), remote.NewClient(&cfg.Remote))

	require.NoError(t, engine.Refresh(context.Background(), entity.KindRoom))

	rooms := st.Rooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, "101", rooms[0].Number)
	assert.Equal(t, entity.CleanPrearrival, rooms[1].CleaningType)
}

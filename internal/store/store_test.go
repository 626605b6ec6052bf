package store

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelflow-core/internal/entity"
)

func roomMutation(t *testing.T, seq uint64, id string, op entity.Operation, patch any) *entity.Mutation {
	t.Helper()
	m, err := entity.NewMutation(entity.KindRoom, id, op, patch)
	require.NoError(t, err)
	m.Sequence = seq
	return m
}

func TestApplyCreatesAndUpdates(t *testing.T) {
	s := New()

	require.NoError(t, s.Apply(roomMutation(t, 1, "r1", entity.OpCreate, map[string]any{
		"number": "101",
		"status": entity.RoomPending,
		"floor":  1,
	})))
	require.NoError(t, s.Apply(roomMutation(t, 2, "r1", entity.OpUpdate, map[string]any{
		"status": entity.RoomInProgress,
	})))

	room, ok := s.Room("r1")
	require.True(t, ok)
	assert.Equal(t, "101", room.Number)
	assert.Equal(t, entity.RoomInProgress, room.Status)
	// Fields absent from the patch are untouched.
	assert.Equal(t, 1, room.Floor)
}

func TestApplyIsIdempotentPerSequence(t *testing.T) {
	s := New()

	m1 := roomMutation(t, 1, "r1", entity.OpCreate, map[string]any{"status": entity.RoomPending})
	m2 := roomMutation(t, 2, "r1", entity.OpUpdate, map[string]any{"status": entity.RoomCompleted})

	require.NoError(t, s.Apply(m1))
	require.NoError(t, s.Apply(m2))

	// Replaying the full log from the start must not regress the state.
	require.NoError(t, s.Apply(m1))
	require.NoError(t, s.Apply(m2))

	room, ok := s.Room("r1")
	require.True(t, ok)
	assert.Equal(t, entity.RoomCompleted, room.Status)
}

func TestConfirmDoesNotClobberNewerLocalWrite(t *testing.T) {
	s := New()

	require.NoError(t, s.Apply(roomMutation(t, 1, "r1", entity.OpCreate, map[string]any{"status": entity.RoomPending})))
	// A newer local edit lands while sequence 1 is in flight.
	require.NoError(t, s.Apply(roomMutation(t, 2, "r1", entity.OpUpdate, map[string]any{"status": entity.RoomInProgress})))

	// Server echo for sequence 1 arrives late; it must lose.
	echo := json.RawMessage(`{"status":"PENDING"}`)
	require.NoError(t, s.Confirm(entity.KindRoom, "r1", echo, 1))

	room, _ := s.Room("r1")
	assert.Equal(t, entity.RoomInProgress, room.Status)

	// An echo for the newest sequence wins normally.
	require.NoError(t, s.Confirm(entity.KindRoom, "r1", json.RawMessage(`{"status":"COMPLETED"}`), 2))
	room, _ = s.Room("r1")
	assert.Equal(t, entity.RoomCompleted, room.Status)
}

func TestDeleteRemovesFromOrder(t *testing.T) {
	s := New()
	require.NoError(t, s.Apply(roomMutation(t, 1, "a", entity.OpCreate, map[string]any{"number": "101"})))
	require.NoError(t, s.Apply(roomMutation(t, 2, "b", entity.OpCreate, map[string]any{"number": "102"})))
	require.NoError(t, s.Apply(roomMutation(t, 3, "a", entity.OpDelete, nil)))

	rooms := s.Rooms()
	require.Len(t, rooms, 1)
	assert.Equal(t, "102", rooms[0].Number)

	// Deleting an absent entity is a no-op, not an error.
	require.NoError(t, s.Apply(roomMutation(t, 4, "ghost", entity.OpDelete, nil)))
}

func TestRemoveMissingKeepsPendingStreams(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyServer(entity.KindRoom, "a", json.RawMessage(`{"number":"101"}`)))
	require.NoError(t, s.ApplyServer(entity.KindRoom, "b", json.RawMessage(`{"number":"102"}`)))
	require.NoError(t, s.ApplyServer(entity.KindRoom, "c", json.RawMessage(`{"number":"103"}`)))

	// Server now only reports "a". "b" has a queued local write, so it stays.
	s.RemoveMissing(entity.KindRoom,
		map[string]bool{"a": true},
		map[string]bool{"room/b": true},
	)

	rooms := s.Rooms()
	require.Len(t, rooms, 2)
	assert.Equal(t, "101", rooms[0].Number)
	assert.Equal(t, "102", rooms[1].Number)
}

func TestSubscribeCoalescesAndNeverBlocks(t *testing.T) {
	s := New()
	ch := s.Subscribe()

	// Many writes without a reader must not block.
	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, s.Apply(roomMutation(t, i, "r1", entity.OpUpdate, map[string]any{"floor": int(i)})))
	}

	select {
	case <-ch:
	default:
		t.Fatal("expected a pending change signal")
	}
	// Coalesced: at most one signal is buffered.
	select {
	case <-ch:
		t.Fatal("expected signals to be coalesced")
	default:
	}
}

func TestRoomStats(t *testing.T) {
	s := New()
	for i, status := range []entity.RoomStatus{
		entity.RoomPending, entity.RoomPending, entity.RoomInProgress,
		entity.RoomInspection, entity.RoomCompleted, entity.RoomMaintenance,
	} {
		id := string(rune('a' + i))
		require.NoError(t, s.ApplyServer(entity.KindRoom, id, mustJSON(t, map[string]any{"status": status})))
	}

	stats := s.RoomStats()
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.InProgress)
	assert.Equal(t, 1, stats.Inspection)
	assert.Equal(t, 1, stats.Completed)
}

func TestSnapshotsAreDeepCopies(t *testing.T) {
	s := New()
	require.NoError(t, s.ApplyServer(entity.KindRoom, "r1", json.RawMessage(
		`{"number":"101","incidents":[{"id":"i1","text":"broken lamp"}]}`)))

	rooms := s.Rooms()
	require.Len(t, rooms, 1)
	rooms[0].Number = "mutated"
	rooms[0].Incidents[0].Text = "mutated"

	fresh, _ := s.Room("r1")
	assert.Equal(t, "101", fresh.Number)
	assert.Equal(t, "broken lamp", fresh.Incidents[0].Text)
}

func TestApplyServerToleratesNumericIDs(t *testing.T) {
	s := New()

	// Integer primary and foreign keys, top level and nested, the way the
	// backend serializes them.
	doc := json.RawMessage(`{
		"id": 17,
		"number": "204",
		"status": "PENDING",
		"incidents": [{"id": 4, "room_id": 17, "text": "dripping tap"}]
	}`)
	require.NoError(t, s.ApplyServer(entity.KindRoom, "17", doc))

	room, ok := s.Room("17")
	require.True(t, ok)
	assert.Equal(t, "17", room.ID)
	assert.Equal(t, "204", room.Number)
	require.Len(t, room.Incidents, 1)
	assert.Equal(t, "4", room.Incidents[0].ID)
	assert.Equal(t, "17", room.Incidents[0].RoomID)
	assert.Equal(t, "dripping tap", room.Incidents[0].Text)

	// String ids still pass through untouched.
	require.NoError(t, s.ApplyServer(entity.KindStaff, "u1", json.RawMessage(`{"id":"u1","name":"Ana"}`)))
	staff := s.StaffList()
	require.Len(t, staff, 1)
	assert.Equal(t, "u1", staff[0].ID)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"hotelflow-core/internal/entity"
)

// EntityStore is the canonical in-memory model every screen reads from.
// All writes arrive as mutations through Apply (optimistic local edits) or
// ApplyServer/Confirm (authoritative server state); nothing mutates the
// collections in place from outside.
//
// Apply is idempotent with respect to a mutation's sequence number: the
// store tracks the highest locally applied sequence per entity stream and
// replaying an already-applied mutation is a no-op.
type EntityStore struct {
	mu          sync.RWMutex
	collections map[entity.Kind]*collection
	lastSeq     map[string]uint64
	stale       map[entity.Kind]bool
	subs        []chan struct{}
}

type collection struct {
	order []string
	items map[string]any
}

// New creates an empty store.
func New() *EntityStore {
	return &EntityStore{
		collections: make(map[entity.Kind]*collection),
		lastSeq:     make(map[string]uint64),
		stale:       make(map[entity.Kind]bool),
	}
}

// newEntity returns a pointer to a zero value of the kind's concrete type.
func newEntity(kind entity.Kind) (any, error) {
	switch kind {
	case entity.KindRoom:
		return &entity.Room{}, nil
	case entity.KindStaff:
		return &entity.Staff{}, nil
	case entity.KindIncident:
		return &entity.Incident{}, nil
	case entity.KindInventory:
		return &entity.InventoryItem{}, nil
	case entity.KindAnnouncement:
		return &entity.Announcement{}, nil
	case entity.KindAsset:
		return &entity.Asset{}, nil
	case entity.KindCleaningType:
		return &entity.CleaningTypeDef{}, nil
	case entity.KindAvailability:
		return &entity.StaffAvailability{}, nil
	case entity.KindShift:
		return &entity.WorkShift{}, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

func setEntityID(item any, id string) {
	switch v := item.(type) {
	case *entity.Room:
		v.ID = id
	case *entity.Staff:
		v.ID = id
	case *entity.Incident:
		v.ID = id
	case *entity.InventoryItem:
		v.ID = id
	case *entity.Announcement:
		v.ID = id
	case *entity.Asset:
		v.ID = id
	case *entity.CleaningTypeDef:
		v.ID = id
	case *entity.StaffAvailability:
		v.ID = id
	case *entity.WorkShift:
		v.ID = id
	}
}

func (s *EntityStore) coll(kind entity.Kind) *collection {
	c, ok := s.collections[kind]
	if !ok {
		c = &collection{items: make(map[string]any)}
		s.collections[kind] = c
	}
	return c
}

// Get returns the entity of the given kind and id, or false when absent.
// The returned value is a pointer into the store; callers must treat it as
// read-only and should prefer the typed snapshot accessors.
func (s *EntityStore) Get(kind entity.Kind, id string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[kind]
	if !ok {
		return nil, false
	}
	item, ok := c.items[id]
	return item, ok
}

// List returns the kind's entities in insertion order.
func (s *EntityStore) List(kind entity.Kind) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[kind]
	if !ok {
		return nil
	}
	out := make([]any, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out
}

// Apply applies a local mutation to the in-memory model. Replaying a
// mutation whose sequence was already applied to its entity stream is a
// no-op, so interrupted replays can safely be resumed from the start.
func (s *EntityStore) Apply(m *entity.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := m.StreamKey()
	if m.Sequence != 0 && m.Sequence <= s.lastSeq[key] {
		return nil
	}
	if err := s.applyLocked(m.Kind, m.EntityID, m.Op, m.Payload); err != nil {
		return err
	}
	if m.Sequence > s.lastSeq[key] {
		s.lastSeq[key] = m.Sequence
	}
	s.notifyLocked()
	return nil
}

// Confirm applies the server's authoritative echo for an acknowledged
// mutation. The server value wins, except when a strictly newer local
// mutation for the same entity has been applied since the dispatch started;
// then the echo must not clobber it.
func (s *EntityStore) Confirm(kind entity.Kind, id string, payload json.RawMessage, confirmedSeq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(kind) + "/" + id
	if s.lastSeq[key] > confirmedSeq {
		return nil
	}
	if len(payload) > 0 {
		if err := s.applyLocked(kind, id, entity.OpUpdate, payload); err != nil {
			return err
		}
	}
	s.notifyLocked()
	return nil
}

// ApplyServer force-applies authoritative server state, as fetched by a full
// refresh. Callers are responsible for skipping entities that still have
// pending local mutations.
func (s *EntityStore) ApplyServer(kind entity.Kind, id string, payload json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyLocked(kind, id, entity.OpUpdate, payload); err != nil {
		return err
	}
	s.notifyLocked()
	return nil
}

// RemoveMissing drops entities of a kind that the server no longer reports,
// keeping any listed in keep (typically streams with queued local writes).
func (s *EntityStore) RemoveMissing(kind entity.Kind, present map[string]bool, keep map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[kind]
	if !ok {
		return
	}
	kept := c.order[:0]
	for _, id := range c.order {
		if present[id] || keep[string(kind)+"/"+id] {
			kept = append(kept, id)
			continue
		}
		delete(c.items, id)
	}
	c.order = kept
	s.notifyLocked()
}

func (s *EntityStore) applyLocked(kind entity.Kind, id string, op entity.Operation, payload json.RawMessage) error {
	c := s.coll(kind)
	switch op {
	case entity.OpDelete:
		if _, ok := c.items[id]; !ok {
			return nil
		}
		delete(c.items, id)
		for i, existing := range c.order {
			if existing == id {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
		return nil
	case entity.OpCreate, entity.OpUpdate:
		item, ok := c.items[id]
		if !ok {
			fresh, err := newEntity(kind)
			if err != nil {
				return err
			}
			item = fresh
			c.items[id] = item
			c.order = append(c.order, id)
		}
		// Unmarshal onto the existing value: only fields present in the
		// payload are touched (field-level last-writer-wins).
		if len(payload) > 0 {
			norm, err := normalizeIDFields(payload)
			if err != nil {
				return fmt.Errorf("decode %s payload: %w", kind, err)
			}
			if err := json.Unmarshal(norm, item); err != nil {
				return fmt.Errorf("decode %s payload: %w", kind, err)
			}
		}
		setEntityID(item, id)
		return nil
	}
	return fmt.Errorf("unknown operation %q", op)
}

// normalizeIDFields rewrites numeric identifier fields as strings. The
// backend serializes integer primary and foreign keys; every local type
// carries string ids.
func normalizeIDFields(payload json.RawMessage) (json.RawMessage, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	normalizeIDValue(doc)
	return json.Marshal(doc)
}

func normalizeIDValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		for key, val := range t {
			if n, ok := val.(json.Number); ok {
				if key == "id" || strings.HasSuffix(key, "_id") {
					t[key] = n.String()
				}
				continue
			}
			normalizeIDValue(val)
		}
	case []any:
		for _, item := range t {
			normalizeIDValue(item)
		}
	}
}

// Subscribe returns a channel that receives a coalesced signal whenever the
// store changes. Signals are dropped, never blocked on.
func (s *EntityStore) Subscribe() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{}, 1)
	s.subs = append(s.subs, ch)
	return ch
}

func (s *EntityStore) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// MarkStale flags a kind for a forced refresh after a rejected mutation.
func (s *EntityStore) MarkStale(kind entity.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stale[kind] = true
}

// TakeStale returns and clears the kinds flagged for refresh.
func (s *EntityStore) TakeStale() []entity.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stale) == 0 {
		return nil
	}
	kinds := make([]entity.Kind, 0, len(s.stale))
	for k := range s.stale {
		kinds = append(kinds, k)
	}
	s.stale = make(map[entity.Kind]bool)
	return kinds
}

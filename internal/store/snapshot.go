package store

import "hotelflow-core/internal/entity"

// Stats are the dashboard counts over the current room set.
type Stats struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Inspection int `json:"inspection"`
	Completed  int `json:"completed"`
}

// Rooms returns a deep-copied snapshot of all rooms in insertion order. The
// scheduler runs over such a snapshot so it never observes a partial apply.
func (s *EntityStore) Rooms() []entity.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[entity.KindRoom]
	if !ok {
		return nil
	}
	out := make([]entity.Room, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, cloneRoom(c.items[id].(*entity.Room)))
	}
	return out
}

// Room returns a deep-copied room by id.
func (s *EntityStore) Room(id string) (entity.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[entity.KindRoom]
	if !ok {
		return entity.Room{}, false
	}
	item, ok := c.items[id]
	if !ok {
		return entity.Room{}, false
	}
	return cloneRoom(item.(*entity.Room)), true
}

// StaffList returns a snapshot of all staff in insertion order.
func (s *EntityStore) StaffList() []entity.Staff {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[entity.KindStaff]
	if !ok {
		return nil
	}
	out := make([]entity.Staff, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id].(*entity.Staff))
	}
	return out
}

// Incidents returns a snapshot of all incidents in insertion order.
func (s *EntityStore) Incidents() []entity.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[entity.KindIncident]
	if !ok {
		return nil
	}
	out := make([]entity.Incident, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id].(*entity.Incident))
	}
	return out
}

// Announcements returns a snapshot of all announcements in insertion order.
func (s *EntityStore) Announcements() []entity.Announcement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[entity.KindAnnouncement]
	if !ok {
		return nil
	}
	out := make([]entity.Announcement, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id].(*entity.Announcement))
	}
	return out
}

// CleaningTypes returns the cleaning-type time estimates keyed by name.
func (s *EntityStore) CleaningTypes() map[entity.CleaningType]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[entity.KindCleaningType]
	if !ok {
		return nil
	}
	out := make(map[entity.CleaningType]int, len(c.order))
	for _, id := range c.order {
		def := c.items[id].(*entity.CleaningTypeDef)
		out[entity.CleaningType(def.Name)] = def.Minutes
	}
	return out
}

// Availability returns a snapshot of all staff availability entries.
func (s *EntityStore) Availability() []entity.StaffAvailability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[entity.KindAvailability]
	if !ok {
		return nil
	}
	out := make([]entity.StaffAvailability, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id].(*entity.StaffAvailability))
	}
	return out
}

// Shifts returns a snapshot of all rostered shifts.
func (s *EntityStore) Shifts() []entity.WorkShift {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[entity.KindShift]
	if !ok {
		return nil
	}
	out := make([]entity.WorkShift, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.items[id].(*entity.WorkShift))
	}
	return out
}

// RoomStats counts rooms per lifecycle state.
func (s *EntityStore) RoomStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st Stats
	c, ok := s.collections[entity.KindRoom]
	if !ok {
		return st
	}
	for _, id := range c.order {
		switch c.items[id].(*entity.Room).Status {
		case entity.RoomPending:
			st.Pending++
		case entity.RoomInProgress:
			st.InProgress++
		case entity.RoomInspection:
			st.Inspection++
		case entity.RoomCompleted:
			st.Completed++
		}
	}
	return st
}

func cloneRoom(r *entity.Room) entity.Room {
	out := *r
	if len(r.Incidents) > 0 {
		out.Incidents = append([]entity.Incident(nil), r.Incidents...)
	}
	if len(r.Config.Extras) > 0 {
		out.Config.Extras = append([]string(nil), r.Config.Extras...)
	}
	return out
}

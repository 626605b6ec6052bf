// Package schedule computes the prioritized work queue per role/user. It is
// a pure function over a room snapshot: deterministic, derived, never
// stored, and recomputed whenever the underlying room state changes.
package schedule

import (
	"sort"

	"hotelflow-core/internal/entity"
)

// Filters narrow the candidate set before ranking.
type Filters struct {
	// Group restricts a supervisor view to one team ("" = all).
	Group string
	// IncidentRole keeps only rooms with an open incident targeting the role.
	IncidentRole entity.Role
	// ShowAll keeps finished rooms (COMPLETED/INSPECTION) in view; the
	// terminal penalty sorts them to the bottom instead of hiding them.
	ShowAll bool
}

// baseRank is the fixed cleaning-type-to-priority map. Lower ranks first.
var baseRank = map[entity.CleaningType]int{
	entity.CleanPrearrival: 1,
	entity.CleanDeparture:  2,
	entity.CleanHoldover:   3,
	entity.CleanWeekly:     4,
	entity.CleanRubbish:    5,
	entity.CleanDayuse:     6,
}

const (
	unknownRank     = 10
	terminalPenalty = 2000
)

// Score is the numeric priority of a room; lower means sooner.
func Score(r entity.Room) int {
	rank, ok := baseRank[r.CleaningType]
	if !ok {
		rank = unknownRank
	}
	if r.Status.Terminal() {
		rank += terminalPenalty
	}
	return rank
}

// Schedule returns the ordered room list for the given viewer. An empty
// candidate set yields an empty list, never an error.
func Schedule(rooms []entity.Room, viewer entity.Staff, f Filters) []entity.Room {
	candidates := make([]entity.Room, 0, len(rooms))
	for _, r := range rooms {
		if !visible(r, viewer, f) {
			continue
		}
		candidates = append(candidates, r)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return less(candidates[i], candidates[j])
	})
	return candidates
}

func visible(r entity.Room, viewer entity.Staff, f Filters) bool {
	if r.Status == entity.RoomMaintenance {
		return false
	}
	if r.Status.Terminal() && !f.ShowAll {
		return false
	}

	switch viewer.Role {
	case entity.RoleSupervisor, entity.RoleAdmin, entity.RoleReception:
		if f.Group != "" && r.AssignedGroup != f.Group {
			return false
		}
		if f.IncidentRole != "" && !hasOpenIncidentFor(r, f.IncidentRole) {
			return false
		}
	default:
		// A cleaner only sees rooms matching their group or personal
		// assignment; unassigned rooms stay visible to everyone.
		if viewer.GroupID != "" && r.AssignedGroup != "" && r.AssignedGroup != viewer.GroupID {
			if r.AssignedCleaner != viewer.ID {
				return false
			}
		}
	}
	return true
}

func hasOpenIncidentFor(r entity.Room, role entity.Role) bool {
	for _, inc := range r.Incidents {
		if inc.TargetRole == role && inc.Status == entity.IncidentOpen {
			return true
		}
	}
	return false
}

// less orders two rooms: score ascending, then arrival time among
// pre-arrivals, then manual reception priority, then room number.
func less(a, b entity.Room) bool {
	sa, sb := Score(a), Score(b)
	if sa != sb {
		return sa < sb
	}

	if a.CleaningType == entity.CleanPrearrival && b.CleaningType == entity.CleanPrearrival {
		if c := compareSparse(a.Guest.NextArrival, b.Guest.NextArrival); c != 0 {
			return c < 0
		}
	}

	if c := comparePriority(a.ReceptionPriority, b.ReceptionPriority); c != 0 {
		return c < 0
	}

	return a.Number < b.Number
}

// compareSparse orders "HH:MM" strings ascending with unset values last.
func compareSparse(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// comparePriority orders manual priorities ascending (1 is highest) with
// unset (zero) values last.
func comparePriority(a, b int) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return 1
	case b == 0:
		return -1
	case a < b:
		return -1
	}
	return 1
}

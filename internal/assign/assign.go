// Package assign implements bulk and automatic room assignment. Every
// change goes through the same mutation pipeline as a manual edit; nothing
// here mutates entities in place.
package assign

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"hotelflow-core/internal/entity"
)

// ErrNoActiveGroups means no team currently has staff; auto-assign has
// nobody to distribute to. ErrNothingToAssign means the candidate room set
// is empty. Both are validation results for the caller to render, not
// failures of the engine itself.
var (
	ErrNoActiveGroups  = errors.New("no active teams available")
	ErrNothingToAssign = errors.New("no rooms to assign")
)

// Submitter is the mutation pipeline entry point.
type Submitter interface {
	Submit(ctx context.Context, m *entity.Mutation) error
}

// Assignment pairs a room with its newly assigned group.
type Assignment struct {
	RoomID string `json:"room_id"`
	Number string `json:"number"`
	Group  string `json:"group"`
}

// Result summarizes a bulk operation. Failed lists rooms whose mutation
// could not be queued; partial failure never rolls back the others.
type Result struct {
	Assignments []Assignment `json:"assignments"`
	Failed      []string     `json:"failed,omitempty"`
}

// Engine distributes rooms across active teams.
type Engine struct {
	submit Submitter
}

func NewEngine(s Submitter) *Engine {
	return &Engine{submit: s}
}

// ActiveGroups derives the sorted set of teams that currently have staff.
func ActiveGroups(staff []entity.Staff) []string {
	seen := make(map[string]bool)
	var groups []string
	for _, s := range staff {
		if s.GroupID == "" || seen[s.GroupID] {
			continue
		}
		seen[s.GroupID] = true
		groups = append(groups, s.GroupID)
	}
	sort.Strings(groups)
	return groups
}

// workable reports whether a room can still be assigned and cleaned today.
func workable(r entity.Room) bool {
	return r.Status != entity.RoomMaintenance && !r.Status.Terminal()
}

// planRoundRobin assigns room i to groups[i mod len(groups)], preserving the
// rooms' current order.
func planRoundRobin(rooms []entity.Room, groups []string) []Assignment {
	out := make([]Assignment, 0, len(rooms))
	for i, r := range rooms {
		out = append(out, Assignment{
			RoomID: r.ID,
			Number: r.Number,
			Group:  groups[i%len(groups)],
		})
	}
	return out
}

// AutoAssign distributes every unassigned, workable room round-robin across
// the active groups. It reports ErrNoActiveGroups or ErrNothingToAssign
// instead of silently doing nothing.
func (e *Engine) AutoAssign(ctx context.Context, rooms []entity.Room, staff []entity.Staff) (*Result, error) {
	groups := ActiveGroups(staff)
	if len(groups) == 0 {
		return nil, ErrNoActiveGroups
	}

	var unassigned []entity.Room
	for _, r := range rooms {
		if r.AssignedGroup == "" && workable(r) {
			unassigned = append(unassigned, r)
		}
	}
	if len(unassigned) == 0 {
		return nil, ErrNothingToAssign
	}

	return e.apply(ctx, planRoundRobin(unassigned, groups))
}

// Rebalance re-runs the distribution over the current PENDING set only, so
// it never interrupts a room a cleaner is actively working.
func (e *Engine) Rebalance(ctx context.Context, rooms []entity.Room, staff []entity.Staff) (*Result, error) {
	groups := ActiveGroups(staff)
	if len(groups) == 0 {
		return nil, ErrNoActiveGroups
	}

	var pending []entity.Room
	for _, r := range rooms {
		if r.Status == entity.RoomPending {
			pending = append(pending, r)
		}
	}
	if len(pending) == 0 {
		return nil, ErrNothingToAssign
	}

	return e.apply(ctx, planRoundRobin(pending, groups))
}

// AssignGroup assigns one group to a selection of rooms, one mutation per
// room.
func (e *Engine) AssignGroup(ctx context.Context, roomIDs []string, group string) (*Result, error) {
	if len(roomIDs) == 0 {
		return nil, ErrNothingToAssign
	}
	assignments := make([]Assignment, 0, len(roomIDs))
	for _, id := range roomIDs {
		assignments = append(assignments, Assignment{RoomID: id, Group: group})
	}
	return e.apply(ctx, assignments)
}

// Prioritize marks a selection of rooms with a manual reception priority,
// one mutation per room.
func (e *Engine) Prioritize(ctx context.Context, roomIDs []string, priority int) (*Result, error) {
	if len(roomIDs) == 0 {
		return nil, ErrNothingToAssign
	}
	result := &Result{}
	for _, id := range roomIDs {
		m, err := entity.NewMutation(entity.KindRoom, id, entity.OpUpdate, map[string]int{"priority": priority})
		if err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		if err := e.submit.Submit(ctx, m); err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Assignments = append(result.Assignments, Assignment{RoomID: id})
	}
	return result, nil
}

func (e *Engine) apply(ctx context.Context, assignments []Assignment) (*Result, error) {
	result := &Result{}
	for _, a := range assignments {
		m, err := entity.NewMutation(entity.KindRoom, a.RoomID, entity.OpUpdate, map[string]string{"assigned_group": a.Group})
		if err != nil {
			return nil, fmt.Errorf("failed to build assignment mutation: %w", err)
		}
		if err := e.submit.Submit(ctx, m); err != nil {
			result.Failed = append(result.Failed, a.RoomID)
			continue
		}
		result.Assignments = append(result.Assignments, a)
	}
	return result, nil
}

// NextGroup is the finite transition table behind the "cycle group" action:
// unassigned -> first group -> ... -> last group -> unassigned.
func NextGroup(current string, groups []string) string {
	if len(groups) == 0 {
		return ""
	}
	if current == "" {
		return groups[0]
	}
	for i, g := range groups {
		if g == current {
			if i == len(groups)-1 {
				return ""
			}
			return groups[i+1]
		}
	}
	return groups[0]
}

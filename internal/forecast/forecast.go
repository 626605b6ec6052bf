// Package forecast projects housekeeping demand against rostered capacity
// and generates roster shifts to cover the gap.
package forecast

import (
	"fmt"
	"math"
	"sort"

	"hotelflow-core/config"
	"hotelflow-core/internal/entity"
)

// Staffing classifies one day's capacity against its demand.
type Staffing string

const (
	Understaffed Staffing = "UNDERSTAFFED"
	Balanced     Staffing = "BALANCED"
	Overstaffed  Staffing = "OVERSTAFFED"
)

// GroupLoad is the demand attributed to one team.
type GroupLoad struct {
	Group         string `json:"group"`
	Rooms         int    `json:"rooms"`
	DemandMinutes int    `json:"demand_minutes"`
}

// DayForecast is the projection for a single date.
type DayForecast struct {
	Date            string      `json:"date"`
	DemandMinutes   int         `json:"demand_minutes"`
	CapacityMinutes int         `json:"capacity_minutes"`
	Classification  Staffing    `json:"classification"`
	StaffNeeded     int         `json:"staff_needed"`
	Groups          []GroupLoad `json:"groups,omitempty"`
}

// Engine turns room snapshots and rostered shifts into staffing projections.
// It is stateless; every input comes from the caller's snapshot.
type Engine struct {
	cfg *config.ForecastConfig
}

func NewEngine(cfg *config.ForecastConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Classify compares capacity against demand. Capacity below demand is
// understaffed; capacity above demand times the configured margin is
// overstaffed; anything between is balanced. Both boundaries are inclusive
// on the balanced side.
func (e *Engine) Classify(capacityMinutes, demandMinutes int) Staffing {
	switch {
	case capacityMinutes < demandMinutes:
		return Understaffed
	case float64(capacityMinutes) > float64(demandMinutes)*e.cfg.OverstaffedMargin:
		return Overstaffed
	}
	return Balanced
}

// Demand sums the cleaning minutes the given rooms require. Each room
// contributes its cleaning type's estimate; stayovers use the configured
// light-touch estimate, and types without a definition fall back to it too.
// Rooms already finished or under maintenance contribute nothing.
func (e *Engine) Demand(rooms []entity.Room, estimates map[string]int) int {
	total := 0
	for _, r := range rooms {
		total += e.roomMinutes(r, estimates)
	}
	return total
}

func (e *Engine) roomMinutes(r entity.Room, estimates map[string]int) int {
	if r.Status == entity.RoomMaintenance || r.Status.Terminal() {
		return 0
	}
	if minutes, ok := estimates[string(r.CleaningType)]; ok && minutes > 0 {
		return minutes
	}
	return e.cfg.StayoverMinutes
}

// Capacity sums the rostered minutes across shifts. Shifts without explicit
// times count as the configured default shift length.
func (e *Engine) Capacity(shifts []entity.WorkShift) int {
	total := 0
	for _, s := range shifts {
		total += e.shiftMinutes(s.Start, s.End)
	}
	return total
}

func (e *Engine) shiftMinutes(start, end string) int {
	sm, err1 := parseClock(start)
	em, err2 := parseClock(end)
	if err1 != nil || err2 != nil || em <= sm {
		return e.cfg.DefaultShiftMinutes
	}
	return em - sm
}

// parseClock converts an "HH:MM" wall-clock string to minutes past midnight.
func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, err
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	return h*60 + m, nil
}

// Day builds the full projection for one date from the current room
// snapshot, the cleaning-type estimates and the day's rostered shifts.
func (e *Engine) Day(date string, rooms []entity.Room, estimates map[string]int, shifts []entity.WorkShift) DayForecast {
	demand := e.Demand(rooms, estimates)
	capacity := e.Capacity(shifts)

	return DayForecast{
		Date:            date,
		DemandMinutes:   demand,
		CapacityMinutes: capacity,
		Classification:  e.Classify(capacity, demand),
		StaffNeeded:     e.StaffNeeded(demand),
		Groups:          e.groupLoads(rooms, estimates),
	}
}

// StaffNeeded converts a demand total into a head count: one cleaner covers
// a seven-hour working day, and any demand at all needs at least one person.
func (e *Engine) StaffNeeded(demandMinutes int) int {
	if demandMinutes <= 0 {
		return 0
	}
	needed := int(math.Round(float64(demandMinutes) / (7 * 60)))
	if needed < 1 {
		needed = 1
	}
	return needed
}

func (e *Engine) groupLoads(rooms []entity.Room, estimates map[string]int) []GroupLoad {
	byGroup := make(map[string]*GroupLoad)
	for _, r := range rooms {
		minutes := e.roomMinutes(r, estimates)
		if minutes == 0 {
			continue
		}
		key := r.AssignedGroup
		load, ok := byGroup[key]
		if !ok {
			load = &GroupLoad{Group: key}
			byGroup[key] = load
		}
		load.Rooms++
		load.DemandMinutes += minutes
	}

	out := make([]GroupLoad, 0, len(byGroup))
	for _, load := range byGroup {
		out = append(out, *load)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

package forecast

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/model"
)

const (
	defaultShiftStart = "09:00"
	defaultShiftEnd   = "17:00"
)

// Generator produces a week of roster shifts and persists them locally. The
// (staff, date) upsert key makes generation idempotent: regenerating a week
// updates shift times instead of duplicating rows.
type Generator struct {
	db     *gorm.DB
	engine *Engine
}

func NewGenerator(db *gorm.DB, engine *Engine) *Generator {
	return &Generator{db: db, engine: engine}
}

// WeekInput carries everything a generation run needs from the snapshot.
type WeekInput struct {
	// StartDate is the Monday of the week, "YYYY-MM-DD".
	StartDate string
	// Rooms is the current room snapshot used to estimate daily demand.
	Rooms []entity.Room
	// Estimates maps cleaning type name to minutes.
	Estimates map[string]int
	// Staff is the pool of cleaners eligible for rostering.
	Staff []entity.Staff
	// Availability is the declared availability for the week.
	Availability []entity.StaffAvailability
}

// GenerateWeek rosters staff for each of the seven days starting at
// StartDate. Staff marked OFF or VACATION for a day are skipped, candidates
// are chosen least-loaded-first so work spreads evenly across the week, and
// declared availability windows override the default shift times.
func (g *Generator) GenerateWeek(ctx context.Context, in WeekInput) ([]model.ShiftRecord, error) {
	start, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", in.StartDate, err)
	}

	cleaners := eligibleCleaners(in.Staff)
	if len(cleaners) == 0 {
		return nil, fmt.Errorf("no staff available to roster")
	}

	availability := indexAvailability(in.Availability)
	needed := g.engine.StaffNeeded(g.engine.Demand(in.Rooms, in.Estimates))
	if needed < 1 {
		needed = 1
	}

	assigned := make(map[string]int, len(cleaners))
	var records []model.ShiftRecord

	for day := 0; day < 7; day++ {
		date := start.AddDate(0, 0, day).Format("2006-01-02")

		candidates := make([]entity.Staff, 0, len(cleaners))
		for _, s := range cleaners {
			if av, ok := availability[s.ID+"|"+date]; ok && av.Status != entity.AvailabilityAvailable {
				continue
			}
			candidates = append(candidates, s)
		}

		// Least-loaded-first, with name as a stable tie-break.
		sort.SliceStable(candidates, func(i, j int) bool {
			ci, cj := assigned[candidates[i].ID], assigned[candidates[j].ID]
			if ci != cj {
				return ci < cj
			}
			return candidates[i].Name < candidates[j].Name
		})

		count := needed
		if count > len(candidates) {
			count = len(candidates)
		}
		for _, s := range candidates[:count] {
			startTime, endTime := defaultShiftStart, defaultShiftEnd
			if av, ok := availability[s.ID+"|"+date]; ok && av.Start != "" && av.End != "" {
				startTime, endTime = av.Start, av.End
			}
			records = append(records, model.ShiftRecord{
				StaffID:   s.ID,
				Date:      date,
				StartTime: startTime,
				EndTime:   endTime,
			})
			assigned[s.ID]++
		}
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no staff available for week of %s", in.StartDate)
	}

	err = g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "staff_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"start_time", "end_time", "updated_at"}),
	}).Create(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to persist roster: %w", err)
	}
	return records, nil
}

// WeekShifts loads the locally persisted roster for the week at startDate.
func (g *Generator) WeekShifts(ctx context.Context, startDate string) ([]model.ShiftRecord, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q: %w", startDate, err)
	}
	end := start.AddDate(0, 0, 7).Format("2006-01-02")

	var records []model.ShiftRecord
	err = g.db.WithContext(ctx).
		Where("date >= ? AND date < ?", startDate, end).
		Order("date asc, staff_id asc").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}
	return records, nil
}

func eligibleCleaners(staff []entity.Staff) []entity.Staff {
	var out []entity.Staff
	for _, s := range staff {
		if s.Role == entity.RoleCleaner || s.Role == entity.RoleHouseman {
			out = append(out, s)
		}
	}
	return out
}

func indexAvailability(items []entity.StaffAvailability) map[string]entity.StaffAvailability {
	idx := make(map[string]entity.StaffAvailability, len(items))
	for _, av := range items {
		idx[av.StaffID+"|"+av.Date] = av
	}
	return idx
}

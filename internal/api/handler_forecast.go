package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/forecast"
	"hotelflow-core/internal/model"
)

// GetForecast projects demand against rostered capacity for the week
// starting at ?start (default: today). Demand uses the current room mix as
// the best available estimate for future days.
func (h *Handler) GetForecast(c *gin.Context) {
	start := c.Query("start")
	if start == "" {
		start = time.Now().Format("2006-01-02")
	}
	startDay, err := time.Parse("2006-01-02", start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be YYYY-MM-DD"})
		return
	}

	rooms := h.store.Rooms()
	estimates := estimateMap(h.store.CleaningTypes())

	// Capacity counts the synced roster plus locally generated shifts that
	// have not reached the authority yet.
	shifts := h.store.Shifts()
	if local, err := h.roster.WeekShifts(c.Request.Context(), start); err == nil {
		shifts = mergeShifts(shifts, local)
	}

	byDate := make(map[string][]entity.WorkShift)
	for _, s := range shifts {
		byDate[s.Date] = append(byDate[s.Date], s)
	}

	days := make([]forecast.DayForecast, 0, 7)
	for i := 0; i < 7; i++ {
		date := startDay.AddDate(0, 0, i).Format("2006-01-02")
		days = append(days, h.forecasts.Day(date, rooms, estimates, byDate[date]))
	}
	c.JSON(http.StatusOK, gin.H{"start": start, "days": days})
}

type generateRosterRequest struct {
	StartDate string `json:"start_date" binding:"required"`
}

// PostRosterGenerate builds and persists a week of shifts. Regeneration is
// idempotent: existing (staff, date) shifts are updated in place.
func (h *Handler) PostRosterGenerate(c *gin.Context) {
	var req generateRosterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records, err := h.roster.GenerateWeek(c.Request.Context(), forecast.WeekInput{
		StartDate:    req.StartDate,
		Rooms:        h.store.Rooms(),
		Estimates:    estimateMap(h.store.CleaningTypes()),
		Staff:        h.store.StaffList(),
		Availability: h.store.Availability(),
	})
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"shifts": records})
}

// GetRosterWeek returns the locally generated roster for one week.
func (h *Handler) GetRosterWeek(c *gin.Context) {
	start := c.Query("start")
	if start == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start is required"})
		return
	}
	records, err := h.roster.WeekShifts(c.Request.Context(), start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"start": start, "shifts": records})
}

// mergeShifts overlays locally generated shifts onto the synced roster; the
// authority's copy wins for a (staff, date) it already knows about.
func mergeShifts(synced []entity.WorkShift, local []model.ShiftRecord) []entity.WorkShift {
	seen := make(map[string]bool, len(synced))
	for _, s := range synced {
		seen[s.StaffID+"|"+s.Date] = true
	}
	out := synced
	for _, rec := range local {
		if seen[rec.StaffID+"|"+rec.Date] {
			continue
		}
		out = append(out, entity.WorkShift{
			StaffID: rec.StaffID,
			Date:    rec.Date,
			Start:   rec.StartTime,
			End:     rec.EndTime,
		})
	}
	return out
}

func estimateMap(types map[entity.CleaningType]int) map[string]int {
	out := make(map[string]int, len(types))
	for name, minutes := range types {
		out[string(name)] = minutes
	}
	return out
}

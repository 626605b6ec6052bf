package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelflow-core/internal/assign"
	"hotelflow-core/internal/entity"
)

func nextGroup(current string, staff []entity.Staff) string {
	return assign.NextGroup(current, assign.ActiveGroups(staff))
}

func (h *Handler) renderAssignResult(c *gin.Context, result *assign.Result, err error) {
	switch {
	case errors.Is(err, assign.ErrNoActiveGroups), errors.Is(err, assign.ErrNothingToAssign):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, result)
	}
}

// PostAssignAuto distributes unassigned rooms round-robin over active teams.
func (h *Handler) PostAssignAuto(c *gin.Context) {
	result, err := h.assigner.AutoAssign(c.Request.Context(), h.store.Rooms(), h.store.StaffList())
	h.renderAssignResult(c, result, err)
}

// PostAssignRebalance redistributes the pending rooms over active teams.
func (h *Handler) PostAssignRebalance(c *gin.Context) {
	result, err := h.assigner.Rebalance(c.Request.Context(), h.store.Rooms(), h.store.StaffList())
	h.renderAssignResult(c, result, err)
}

type bulkAssignRequest struct {
	RoomIDs  []string `json:"room_ids" binding:"required"`
	Group    string   `json:"group"`
	Priority int      `json:"priority"`
}

// PostAssignBulk applies a group or a priority to a selection of rooms, one
// independent mutation per room.
func (h *Handler) PostAssignBulk(c *gin.Context) {
	var req bulkAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	if req.Priority > 0 {
		result, err := h.assigner.Prioritize(ctx, req.RoomIDs, req.Priority)
		h.renderAssignResult(c, result, err)
		return
	}
	result, err := h.assigner.AssignGroup(ctx, req.RoomIDs, req.Group)
	h.renderAssignResult(c, result, err)
}

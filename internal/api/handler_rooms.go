package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/schedule"
)

// GetRooms returns the scheduler-ordered room list for the requesting
// viewer. The order is recomputed from the current snapshot on every call.
func (h *Handler) GetRooms(c *gin.Context) {
	filters := schedule.Filters{
		Group:        c.Query("group"),
		IncidentRole: entity.Role(c.Query("incident_role")),
		ShowAll:      c.Query("show_all") == "true",
	}
	rooms := schedule.Schedule(h.store.Rooms(), viewer(c), filters)
	c.JSON(http.StatusOK, rooms)
}

// GetRoomStats returns the dashboard counts.
func (h *Handler) GetRoomStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.RoomStats())
}

func (h *Handler) submitRoomUpdate(c *gin.Context, roomID string, patch any) {
	if _, ok := h.store.Room(roomID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	m, err := entity.NewMutation(entity.KindRoom, roomID, entity.OpUpdate, patch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.Submit(c.Request.Context(), m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	room, _ := h.store.Room(roomID)
	c.JSON(http.StatusOK, room)
}

type statusRequest struct {
	Status entity.RoomStatus `json:"status" binding:"required"`
}

// PostRoomStatus advances a room through its cleaning lifecycle.
func (h *Handler) PostRoomStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	switch req.Status {
	case entity.RoomPending, entity.RoomInProgress, entity.RoomInspection, entity.RoomCompleted:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid status %q", req.Status)})
		return
	}
	h.submitRoomUpdate(c, c.Param("id"), map[string]any{
		"status":       req.Status,
		"last_updated": time.Now().UTC(),
	})
}

type priorityRequest struct {
	Priority int `json:"priority"`
}

// PostRoomPriority sets or clears (zero) the manual reception priority.
func (h *Handler) PostRoomPriority(c *gin.Context) {
	var req priorityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Priority < 0 || req.Priority > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "priority must be 0..5"})
		return
	}
	h.submitRoomUpdate(c, c.Param("id"), map[string]int{"priority": req.Priority})
}

type guestStatusRequest struct {
	GuestStatus entity.GuestStatus `json:"guest_status" binding:"required"`
}

// PostRoomGuestStatus records whether the room can be entered.
func (h *Handler) PostRoomGuestStatus(c *gin.Context) {
	var req guestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.submitRoomUpdate(c, c.Param("id"), map[string]entity.GuestStatus{"guest_status": req.GuestStatus})
}

type maintenanceRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PostRoomMaintenance takes a room out of service.
func (h *Handler) PostRoomMaintenance(c *gin.Context) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.submitRoomUpdate(c, c.Param("id"), map[string]any{
		"status":             entity.RoomMaintenance,
		"maintenance_reason": req.Reason,
	})
}

type groupRequest struct {
	Group string `json:"group"`
	// Cycle advances to the next group instead of setting one directly.
	Cycle bool `json:"cycle"`
}

// PostRoomGroup assigns a team to a room, or cycles through the active
// teams when Cycle is set.
func (h *Handler) PostRoomGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group := req.Group
	if req.Cycle {
		room, ok := h.store.Room(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		group = nextGroup(room.AssignedGroup, h.store.StaffList())
	}
	h.submitRoomUpdate(c, c.Param("id"), map[string]string{"assigned_group": group})
}

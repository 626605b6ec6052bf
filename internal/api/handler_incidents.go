package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"hotelflow-core/internal/entity"
)

type incidentRequest struct {
	RoomID     string                  `json:"room_id"`
	Text       string                  `json:"text" binding:"required"`
	TargetRole entity.Role             `json:"target_role" binding:"required"`
	Category   entity.IncidentCategory `json:"category"`
	PhotoRef   string                  `json:"photo_ref"`
}

// PostIncident reports a new incident through the mutation pipeline. The
// local id is provisional; the server echo replaces the record under its
// authoritative id on the next refresh.
func (h *Handler) PostIncident(c *gin.Context) {
	var req incidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	who := viewer(c)
	incident := entity.Incident{
		ID:         fmt.Sprintf("local-%d", time.Now().UnixNano()),
		RoomID:     req.RoomID,
		Text:       req.Text,
		User:       who.ID,
		TargetRole: req.TargetRole,
		Status:     entity.IncidentOpen,
		Category:   req.Category,
		Timestamp:  time.Now().UTC(),
		PhotoRef:   req.PhotoRef,
		Group:      who.GroupID,
	}

	m, err := entity.NewMutation(entity.KindIncident, incident.ID, entity.OpCreate, incident)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.Submit(c.Request.Context(), m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, incident)
}

// PostIncidentResolve marks an incident resolved. Incidents are never
// deleted, only transitioned.
func (h *Handler) PostIncidentResolve(c *gin.Context) {
	id := c.Param("id")
	m, err := entity.NewMutation(entity.KindIncident, id, entity.OpUpdate, map[string]entity.IncidentStatus{
		"status": entity.IncidentResolved,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.Submit(c.Request.Context(), m); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": entity.IncidentResolved})
}

package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelflow-core/internal/session"
)

// GetSession returns the active session with a live elapsed total.
func (h *Handler) GetSession(c *gin.Context) {
	s := h.sessions.Current()
	if s == nil {
		c.JSON(http.StatusOK, gin.H{"is_active": false})
		return
	}
	c.JSON(http.StatusOK, s)
}

// PostSessionStart begins a work session.
func (h *Handler) PostSessionStart(c *gin.Context) {
	s, err := h.sessions.Start(c.Request.Context())
	if errors.Is(err, session.ErrAlreadyActive) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, s)
}

type breakRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}

// PostSessionBreak records break minutes against the active session.
func (h *Handler) PostSessionBreak(c *gin.Context) {
	var req breakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s, err := h.sessions.AddBreak(c.Request.Context(), req.Minutes)
	if errors.Is(err, session.ErrNotActive) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s)
}

// PostSessionComplete ends the active session. Completion is offered in the
// UI once every assigned room is finished; the API does not enforce that so
// supervisors can close out early.
func (h *Handler) PostSessionComplete(c *gin.Context) {
	s, err := h.sessions.Complete(c.Request.Context())
	if errors.Is(err, session.ErrNotActive) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	allDone := session.AllFinished(h.store.Rooms(), viewer(c).GroupID)
	c.JSON(http.StatusOK, gin.H{"session": s, "all_rooms_finished": allDone})
}

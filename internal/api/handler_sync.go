package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetSyncStatus reports the sync engine state and queue depth. Rejected
// actions are included exactly once each; the UI shows them as alerts.
func (h *Handler) GetSyncStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.engine.Status(c.Request.Context()))
}

// PostSyncRefresh forces a full pull from the authority.
func (h *Handler) PostSyncRefresh(c *gin.Context) {
	if err := h.engine.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	h.engine.Kick()
	c.Status(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/localstate"
	"hotelflow-core/internal/remote"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PostLogin authenticates against the remote authority and persists the
// token and profile so a restart resumes the session without re-login.
func (h *Handler) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	result, err := h.client.Login(ctx, req.Username, req.Password)
	if err != nil {
		if remote.IsTransient(err) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authority unreachable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	profile := entity.Profile{
		Username: req.Username,
		Name:     result.Name,
		Role:     result.Role,
		GroupID:  result.GroupID,
	}
	if err := h.state.Put(ctx, localstate.KeyAuthToken, []byte(result.Token)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.state.PutJSON(ctx, localstate.KeyProfile, &profile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.engine.Kick()
	c.JSON(http.StatusOK, profile)
}

// PostLogout clears the persisted credentials.
func (h *Handler) PostLogout(c *gin.Context) {
	ctx := c.Request.Context()
	h.client.SetToken("")
	if err := h.state.Delete(ctx, localstate.KeyAuthToken); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.state.Delete(ctx, localstate.KeyProfile); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

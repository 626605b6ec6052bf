package api

import (
	"gorm.io/gorm"

	"hotelflow-core/internal/assign"
	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/forecast"
	"hotelflow-core/internal/localstate"
	"hotelflow-core/internal/remote"
	"hotelflow-core/internal/session"
	"hotelflow-core/internal/store"
	syncengine "hotelflow-core/internal/sync"

	"github.com/gin-gonic/gin"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     *store.EntityStore
	engine    *syncengine.Engine
	assigner  *assign.Engine
	forecasts *forecast.Engine
	roster    *forecast.Generator
	sessions  *session.Manager
	client    *remote.Client
	state     *localstate.Store
	db        *gorm.DB
}

// NewHandler creates a new API handler.
func NewHandler(
	st *store.EntityStore,
	engine *syncengine.Engine,
	assigner *assign.Engine,
	forecasts *forecast.Engine,
	roster *forecast.Generator,
	sessions *session.Manager,
	client *remote.Client,
	state *localstate.Store,
	db *gorm.DB,
) *Handler {
	return &Handler{
		store:     st,
		engine:    engine,
		assigner:  assigner,
		forecasts: forecasts,
		roster:    roster,
		sessions:  sessions,
		client:    client,
		state:     state,
		db:        db,
	}
}

// viewer reconstructs the requesting identity from headers. The app shell
// sets these after login; absent headers mean an anonymous cleaner view.
func viewer(c *gin.Context) entity.Staff {
	return entity.Staff{
		ID:      c.GetHeader("X-User"),
		Role:    entity.Role(c.GetHeader("X-Role")),
		GroupID: c.GetHeader("X-Group"),
	}
}

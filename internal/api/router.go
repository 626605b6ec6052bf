package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"hotelflow-core/config"
	"hotelflow-core/internal/mw"
)

// NewRouter creates and configures the gin router.
func NewRouter(h *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	limit := rate.Limit(cfg.RateLimitPerSec)
	if limit <= 0 {
		limit = rate.Limit(10)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 5
	}
	rateLimiter := mw.RateLimiter(limit, burst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	cacheStore := cache.New(ttl, 10*ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", h.PostLogin)
		api.POST("/logout", h.PostLogout)

		api.GET("/rooms", h.GetRooms)
		api.GET("/rooms/stats", h.GetRoomStats)
		api.POST("/rooms/:id/status", h.PostRoomStatus)
		api.POST("/rooms/:id/priority", h.PostRoomPriority)
		api.POST("/rooms/:id/guest-status", h.PostRoomGuestStatus)
		api.POST("/rooms/:id/maintenance", h.PostRoomMaintenance)
		api.POST("/rooms/:id/group", h.PostRoomGroup)

		api.POST("/incidents", h.PostIncident)
		api.POST("/incidents/:id/resolve", h.PostIncidentResolve)

		api.GET("/sync/status", h.GetSyncStatus)
		api.POST("/sync/refresh", h.PostSyncRefresh)

		api.POST("/assign/auto", h.PostAssignAuto)
		api.POST("/assign/rebalance", h.PostAssignRebalance)
		api.POST("/assign/bulk", h.PostAssignBulk)

		// The forecast is the one expensive read; the cache absorbs dashboard
		// refreshes inside a TTL window.
		api.GET("/forecast", caching, h.GetForecast)
		api.POST("/roster/generate", h.PostRosterGenerate)
		api.GET("/roster/week", h.GetRosterWeek)

		api.GET("/session", h.GetSession)
		api.POST("/session/start", h.PostSessionStart)
		api.POST("/session/break", h.PostSessionBreak)
		api.POST("/session/complete", h.PostSessionComplete)

		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
	}

	return r
}

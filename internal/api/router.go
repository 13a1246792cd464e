package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"dorm-allocation-backend/internal/mw"
)

// RouterConfig holds the transport settings of the router.
type RouterConfig struct {
	RateLimit rate.Limit
	RateBurst int
	// Metrics, when set, is served at GET /metrics outside the rate limit.
	Metrics http.Handler
}

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(mw.RequestID(), mw.Logger(h.log), gin.Recovery())

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics))
	}

	api := r.Group("/api")
	if cfg.RateLimit > 0 {
		api.Use(mw.RateLimiter(cfg.RateLimit, cfg.RateBurst))
	}

	reads := api.Group("")
	if h.cache != nil {
		reads.Use(h.cache.Middleware())
	}
	{
		reads.GET("/rooms/available", h.GetAvailableRooms)
		reads.GET("/rooms/lookup", h.LookupRoom)
		reads.GET("/rooms/:room_id", h.GetRoom)
		reads.GET("/students/:student_id/assignments", h.GetStudentAssignments)
	}

	writes := api.Group("", mw.Actor())
	{
		writes.POST("/assignments", h.CreateAssignment)
		writes.POST("/assignments/:assignment_id/move-out", h.MoveOut)
		writes.POST("/rooms/:room_id/assignments/batch", h.BatchAssign)
		writes.POST("/reconcile", h.Reconcile)
	}

	api.GET("/subscriptions", h.GetSubscription)
	api.PUT("/subscriptions", h.PutSubscription)
	api.DELETE("/subscriptions", h.DeleteSubscription)
	api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

	return r
}

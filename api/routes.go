package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestLogger logs one line per admin request.
func RequestLogger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("[%s] %s %s %d %s %s\n",
			param.TimeStamp.Format(time.RFC3339),
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.ClientIP,
		)
	})
}

// ErrorRecovery turns a handler panic into a JSON 500.
func ErrorRecovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, NewErrorResponse(
			fmt.Errorf("internal server error: %v", recovered),
			http.StatusInternalServerError,
			"An unexpected error occurred",
		))
	})
}

// RouteOptions configures the admin router.
type RouteOptions struct {
	RequestLog bool
	Limiter    *LimiterStore
}

// NewRouter builds the admin API engine.
func NewRouter(h *APIHandler, opts RouteOptions) *gin.Engine {
	router := gin.New()
	if opts.RequestLog {
		router.Use(RequestLogger())
	}
	router.Use(ErrorRecovery())

	SetupRoutes(router, h, opts.Limiter)
	return router
}

// SetupRoutes registers the admin endpoints. When limiter is set, the /api
// group is rate limited per client address; /metrics never is.
func SetupRoutes(router *gin.Engine, h *APIHandler, limiter *LimiterStore) {
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics.PromHTTPHandler()))
	}

	api := router.Group("/api")
	if limiter != nil {
		api.Use(RateLimit(limiter))
	}
	{
		api.GET("/health", h.Health)
		api.GET("/stats", h.GetStats)
		api.GET("/events", h.GetEvents)

		api.GET("/pending", h.GetPending)
		api.DELETE("/pending", h.ClearPending)
		api.POST("/pending/presets/:name", h.LoadPreset)

		api.GET("/presets", h.ListPresets)
	}
}

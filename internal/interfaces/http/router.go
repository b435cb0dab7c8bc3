// Package http wires the gin route tree and the HTTP server lifecycle.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/propsignal/propsignal/internal/config"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/logging"
	"github.com/propsignal/propsignal/internal/infrastructure/monitoring/prometheus"
	"github.com/propsignal/propsignal/internal/interfaces/http/handlers"
	"github.com/propsignal/propsignal/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and cross-cutting dependencies the
// route tree needs.
type RouterConfig struct {
	ReportHandler   *handlers.ReportHandler
	FlipHandler     *handlers.FlipHandler
	PropertyHandler *handlers.PropertyHandler
	MarketHandler   *handlers.MarketHandler
	HealthHandler   *handlers.HealthHandler

	Server  config.ServerConfig
	Logger  logging.Logger
	Metrics *prometheus.Metrics
}

// NewRouter builds the complete route tree: public health and metrics
// endpoints, then the authenticated /api/v1 resource groups.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger, cfg.Metrics))
	}
	if cfg.Server.RateLimitPerMinute > 0 {
		r.Use(middleware.NewRateLimiter(cfg.Server.RateLimitPerMinute).Handler())
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	api.Use(middleware.TokenAuth(cfg.Server.APITokens))

	if h := cfg.ReportHandler; h != nil {
		api.POST("/reports", h.Run)
		api.GET("/reports", h.List)
		api.GET("/reports/:id", h.Get)
		api.DELETE("/reports/:id", h.Delete)
		api.POST("/reports/:id/rerun", h.Rerun)
		api.PATCH("/reports/:id/comparables/:compID", h.ToggleComparable)
		api.GET("/reports/:id/history", h.History)
	}

	if h := cfg.FlipHandler; h != nil {
		api.POST("/flips", h.Run)
		api.GET("/flips", h.List)
		api.GET("/flips/:id", h.Get)
		api.PUT("/flips/:id/inputs", h.UpdateInputs)
		api.DELETE("/flips/:id", h.Delete)
	}

	if h := cfg.PropertyHandler; h != nil {
		api.GET("/properties", h.Search)
		api.GET("/properties/:id", h.Get)
		api.PUT("/properties", h.Upsert)
	}

	if h := cfg.MarketHandler; h != nil {
		api.GET("/markets/:city", h.Latest)
		api.GET("/markets/:city/history", h.History)
		api.POST("/markets", h.Ingest)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{"code": "NOT_FOUND", "message": "route not found"},
		})
	})
	return r
}

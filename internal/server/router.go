package server

import (
	"github.com/gin-gonic/gin"

	"github.com/silknow/explorer-api/internal/http/handlers"
	"github.com/silknow/explorer-api/internal/http/middleware"
	"github.com/silknow/explorer-api/internal/observability"
	"github.com/silknow/explorer-api/internal/platform/logger"
)

type RouterConfig struct {
	Log           *logger.Logger
	SearchHandler *handlers.SearchHandler
	HealthHandler *handlers.HealthHandler
	Metrics       *observability.Metrics
	CORSOrigins   []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestContext())
	router.Use(middleware.RequestLogger(cfg.Log))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		router.GET("/healthz", cfg.HealthHandler.Healthz)
	}
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	if cfg.SearchHandler != nil {
		api := router.Group("/api")
		{
			api.GET("/search", cfg.SearchHandler.Search)
			api.GET("/detail", cfg.SearchHandler.Detail)
			api.GET("/autocomplete", cfg.SearchHandler.Autocomplete)
			api.POST("/similar", cfg.SearchHandler.Similar)
		}
	}
	return router
}

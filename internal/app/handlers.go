package app

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/silknow/explorer-api/internal/http/handlers"
	"github.com/silknow/explorer-api/internal/platform/logger"
	"github.com/silknow/explorer-api/internal/server"
)

type Handlers struct {
	Health *handlers.HealthHandler
	Search *handlers.SearchHandler
}

func wireHandlers(log *logger.Logger, cfg Config, services Services, clients Clients) (Handlers, error) {
	log.Info("Wiring handlers...")
	searchHandler, err := handlers.NewSearchHandler(log, services.Search, clients.Similarity, cfg.DefaultLanguage)
	if err != nil {
		return Handlers{}, fmt.Errorf("init search handler: %w", err)
	}
	return Handlers{
		Health: handlers.NewHealthHandler(),
		Search: searchHandler,
	}, nil
}

func wireRouter(log *logger.Logger, cfg Config, h Handlers, services Services) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		Log:           log,
		SearchHandler: h.Search,
		HealthHandler: h.Health,
		Metrics:       services.Metrics,
		CORSOrigins:   cfg.CORSOrigins,
	})
}

package app

import (
	"fmt"

	"github.com/silknow/explorer-api/internal/observability"
	"github.com/silknow/explorer-api/internal/platform/logger"
	"github.com/silknow/explorer-api/internal/routes"
	"github.com/silknow/explorer-api/internal/search"
	"github.com/silknow/explorer-api/internal/vocabulary"
)

type Services struct {
	Metrics  *observability.Metrics
	Executor *search.Executor
	Vocab    *vocabulary.Resolver
	Search   search.Service
}

func wireServices(log *logger.Logger, cfg Config, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	metrics := observability.NewMetrics()

	executor, err := search.NewExecutor(log, search.ExecutorOptions{
		Endpoint: cfg.SPARQLEndpoint,
		Store:    clients.Store,
		TTL:      cfg.CacheTTL,
		Timeout:  cfg.QueryTimeout,
		Metrics:  metrics,
		Debug:    cfg.Debug,
	})
	if err != nil {
		return Services{}, fmt.Errorf("init executor: %w", err)
	}

	vocab, err := vocabulary.NewResolver(log, executor, routes.Vocabularies(), cfg.CacheTTL)
	if err != nil {
		return Services{}, fmt.Errorf("init vocabulary resolver: %w", err)
	}

	searchService, err := search.NewService(log, routes.Table(), executor, vocab, search.NoopFavorites(), cfg.Debug)
	if err != nil {
		return Services{}, fmt.Errorf("init search service: %w", err)
	}

	return Services{
		Metrics:  metrics,
		Executor: executor,
		Vocab:    vocab,
		Search:   searchService,
	}, nil
}

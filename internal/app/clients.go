package app

import (
	"fmt"
	"net/http"

	"github.com/silknow/explorer-api/internal/cache"
	"github.com/silknow/explorer-api/internal/platform/logger"
	"github.com/silknow/explorer-api/internal/similarity"
)

type Clients struct {
	Store      cache.Store
	Similarity similarity.Client
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	var store cache.Store
	if cfg.RedisAddr != "" {
		redisStore, err := cache.NewRedis(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		store = redisStore
	} else {
		log.Warn("REDIS_ADDR not set, falling back to in-process cache")
		store = cache.NewMemory()
	}

	var sim similarity.Client
	if cfg.SimilarityBaseURL != "" {
		client, err := similarity.NewClient(log, cfg.SimilarityBaseURL, http.DefaultClient)
		if err != nil {
			return Clients{}, fmt.Errorf("init similarity client: %w", err)
		}
		sim = client
	} else {
		log.Warn("SIMILARITY_BASE_URL not set, image similarity disabled")
	}

	return Clients{Store: store, Similarity: sim}, nil
}

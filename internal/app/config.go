package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/silknow/explorer-api/internal/platform/envutil"
	"github.com/silknow/explorer-api/internal/platform/logger"
)

type Config struct {
	Addr              string
	SPARQLEndpoint    string
	SimilarityBaseURL string
	RedisAddr         string
	CacheTTL          time.Duration
	QueryTimeout      time.Duration
	CORSOrigins       []string
	DefaultLanguage   string
	Debug             bool
}

// fileConfig is the optional YAML overlay. Environment variables win over
// the file so a deployment can patch a single value without editing it.
type fileConfig struct {
	Addr              string   `yaml:"addr"`
	SPARQLEndpoint    string   `yaml:"sparql_endpoint"`
	SimilarityBaseURL string   `yaml:"similarity_base_url"`
	RedisAddr         string   `yaml:"redis_addr"`
	CacheTTL          string   `yaml:"cache_ttl"`
	QueryTimeout      string   `yaml:"query_timeout"`
	CORSOrigins       []string `yaml:"cors_origins"`
	DefaultLanguage   string   `yaml:"default_language"`
	Debug             bool     `yaml:"debug"`
}

func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		Addr:            ":8080",
		CacheTTL:        24 * time.Hour,
		QueryTimeout:    60 * time.Second,
		DefaultLanguage: "en",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
		log.Info("Loaded config file", "path", path)
	}

	cfg.Addr = envutil.String("ADDR", cfg.Addr)
	cfg.SPARQLEndpoint = envutil.String("SPARQL_ENDPOINT", cfg.SPARQLEndpoint)
	cfg.SimilarityBaseURL = envutil.String("SIMILARITY_BASE_URL", cfg.SimilarityBaseURL)
	cfg.RedisAddr = envutil.String("REDIS_ADDR", cfg.RedisAddr)
	cfg.CacheTTL = envutil.Duration("CACHE_TTL", cfg.CacheTTL)
	cfg.QueryTimeout = envutil.Duration("QUERY_TIMEOUT", cfg.QueryTimeout)
	cfg.DefaultLanguage = envutil.String("DEFAULT_LANGUAGE", cfg.DefaultLanguage)
	cfg.Debug = envutil.Bool("DEBUG", cfg.Debug)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitOrigins(origins)
	}

	if cfg.SPARQLEndpoint == "" {
		return Config{}, fmt.Errorf("SPARQL_ENDPOINT is required")
	}
	return cfg, nil
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	if fc.Addr != "" {
		cfg.Addr = fc.Addr
	}
	if fc.SPARQLEndpoint != "" {
		cfg.SPARQLEndpoint = fc.SPARQLEndpoint
	}
	if fc.SimilarityBaseURL != "" {
		cfg.SimilarityBaseURL = fc.SimilarityBaseURL
	}
	if fc.RedisAddr != "" {
		cfg.RedisAddr = fc.RedisAddr
	}
	if fc.CacheTTL != "" {
		d, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("cache_ttl: %w", err)
		}
		cfg.CacheTTL = d
	}
	if fc.QueryTimeout != "" {
		d, err := time.ParseDuration(fc.QueryTimeout)
		if err != nil {
			return fmt.Errorf("query_timeout: %w", err)
		}
		cfg.QueryTimeout = d
	}
	if len(fc.CORSOrigins) > 0 {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	if fc.DefaultLanguage != "" {
		cfg.DefaultLanguage = fc.DefaultLanguage
	}
	if fc.Debug {
		cfg.Debug = true
	}
	return nil
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/silknow/explorer-api/internal/cache"
	"github.com/silknow/explorer-api/internal/observability"
	"github.com/silknow/explorer-api/internal/platform/logger"
	"github.com/silknow/explorer-api/internal/sparql"
)

const defaultQueryTimeout = 60 * time.Second

// Doer is the transport seam: http.Client in production, counting mocks in
// tests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Executor compiles templates to SPARQL text, runs them against the remote
// endpoint and caches raw responses keyed by the exact query text. Every
// failure path degrades to "no results": the endpoint being flaky must not
// surface as a hard error to the caller.
type Executor struct {
	log      *logger.Logger
	endpoint string
	client   Doer
	store    cache.Store
	ttl      time.Duration
	timeout  time.Duration
	metrics  *observability.Metrics
	debug    bool
}

type ExecutorOptions struct {
	Endpoint string
	Client   Doer
	Store    cache.Store
	TTL      time.Duration
	Timeout  time.Duration
	Metrics  *observability.Metrics
	// Debug logs the offending SPARQL text on endpoint failures.
	Debug bool
}

func NewExecutor(log *logger.Logger, opts ExecutorOptions) (*Executor, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(opts.Endpoint) == "" {
		return nil, fmt.Errorf("missing sparql endpoint")
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Executor{
		log:      log.With("service", "SparqlExecutor"),
		endpoint: opts.Endpoint,
		client:   client,
		store:    opts.Store,
		ttl:      opts.TTL,
		timeout:  timeout,
		metrics:  opts.Metrics,
		debug:    opts.Debug,
	}, nil
}

// Query compiles and runs a template, returning the reshaped graph. The
// compiled query text comes back alongside for debug output. A nil graph
// means "no results", never an error to propagate.
func (e *Executor) Query(ctx context.Context, tpl *sparql.Template) (sparql.Graph, string) {
	query, err := tpl.Compile()
	if err != nil {
		e.log.Warn("template compile failed", "error", err)
		return nil, ""
	}
	resp := e.Select(ctx, query)
	if resp == nil {
		return nil, query
	}
	return tpl.Reshape(resp), query
}

// Select runs raw SPARQL text through the cache and the endpoint, returning
// the parsed response or nil on any failure.
func (e *Executor) Select(ctx context.Context, query string) *sparql.Response {
	raw, ok := e.fetch(ctx, query)
	if !ok {
		return nil
	}
	resp, err := sparql.ParseResponse(raw)
	if err != nil {
		e.logQueryError("malformed endpoint response", err, query)
		return nil
	}
	return resp
}

func (e *Executor) fetch(ctx context.Context, query string) ([]byte, bool) {
	key := cacheKey(query)

	if e.store != nil {
		cached, hit, err := e.store.Get(ctx, key)
		if err != nil {
			// Unavailable cache reads as a miss; the live endpoint still
			// answers the request.
			e.log.Warn("cache read failed", "error", err)
		} else if hit {
			e.metrics.CacheHit()
			return []byte(cached), true
		}
		e.metrics.CacheMiss()
	}

	raw, err := e.post(ctx, query)
	if err != nil {
		e.logQueryError("sparql query failed", err, query)
		e.metrics.QueryDone("error")
		return nil, false
	}
	e.metrics.QueryDone("ok")

	if e.store != nil {
		// Fire-and-forget: a failed cache write never fails the request.
		if err := e.store.Set(ctx, key, string(raw), e.ttl); err != nil {
			e.log.Warn("cache write failed", "error", err)
		}
	}
	return raw, true
}

func (e *Executor) post(ctx context.Context, query string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, strings.NewReader(query))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/sparql-query")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("endpoint request: %w", err)
	}
	defer resp.Body.Close()
	e.metrics.ObserveQueryLatency(time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("endpoint status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return raw, nil
}

func (e *Executor) logQueryError(msg string, err error, query string) {
	if e.debug {
		e.log.Error(msg, "error", err, "query", query)
		return
	}
	e.log.Error(msg, "error", err)
}

func cacheKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return "sparql:" + hex.EncodeToString(sum[:])
}

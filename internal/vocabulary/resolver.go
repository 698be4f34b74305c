// Package vocabulary resolves controlled-vocabulary references in entity
// records into full terms with human-readable labels.
package vocabulary

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/silknow/explorer-api/internal/platform/logger"
	"github.com/silknow/explorer-api/internal/sparql"
)

// Executor is the narrow query dependency; internal/search's Executor
// satisfies it.
type Executor interface {
	Query(ctx context.Context, tpl *sparql.Template) (sparql.Graph, string)
}

type entry struct {
	terms     map[string]map[string]any
	fetchedAt time.Time
}

// Resolver lazily loads and caches vocabulary term lists. The cache is an
// injected, TTL-bounded service rather than ambient package state, so tests
// construct their own and staleness stays configurable. Concurrent first
// accesses to one vocabulary may fetch redundantly; the fetch is idempotent
// and last-writer-wins.
type Resolver struct {
	log     *logger.Logger
	exec    Executor
	sources map[string]*sparql.Template
	ttl     time.Duration

	mu     sync.RWMutex
	cached map[string]entry
	now    func() time.Time
}

func NewResolver(log *logger.Logger, exec Executor, sources map[string]*sparql.Template, ttl time.Duration) (*Resolver, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor required")
	}
	return &Resolver{
		log:     log.With("service", "VocabularyResolver"),
		exec:    exec,
		sources: sources,
		ttl:     ttl,
		cached:  map[string]entry{},
		now:     time.Now,
	}, nil
}

// Resolve merges vocabulary term attributes into every value of record
// whose field matches a configured vocabulary and whose "@id" matches a
// term. Unmatched values stay as bare references; that is incomplete
// enrichment, not an error.
func (r *Resolver) Resolve(ctx context.Context, record map[string]any) map[string]any {
	if record == nil {
		return nil
	}
	for field, value := range record {
		tpl, ok := r.sources[field]
		if !ok || tpl == nil {
			continue
		}
		terms := r.terms(ctx, field, tpl)
		if len(terms) == 0 {
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			enrich(v, terms)
		case []any:
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					enrich(m, terms)
				}
			}
		}
	}
	return record
}

func enrich(value map[string]any, terms map[string]map[string]any) {
	id, _ := value["@id"].(string)
	if id == "" {
		return
	}
	term, ok := terms[id]
	if !ok {
		return
	}
	for k, attr := range term {
		if _, exists := value[k]; !exists {
			value[k] = attr
		}
	}
}

// terms returns the cached term index for one vocabulary, fetching it when
// absent or past its TTL.
func (r *Resolver) terms(ctx context.Context, id string, tpl *sparql.Template) map[string]map[string]any {
	r.mu.RLock()
	e, ok := r.cached[id]
	r.mu.RUnlock()
	if ok && (r.ttl <= 0 || r.now().Sub(e.fetchedAt) < r.ttl) {
		return e.terms
	}

	graph, _ := r.exec.Query(ctx, tpl)
	if graph == nil {
		// Keep a stale index over an empty one.
		if ok {
			return e.terms
		}
		return nil
	}

	terms := make(map[string]map[string]any, len(graph))
	for _, rec := range graph {
		termID := sparql.UnwrapValue(rec["@id"])
		if termID == "" {
			termID = sparql.UnwrapValue(rec["id"])
		}
		if termID == "" {
			continue
		}
		term := make(map[string]any, len(rec))
		for k, v := range rec {
			if k == "id" {
				continue
			}
			term[k] = v
		}
		term["@id"] = termID
		terms[termID] = term
	}

	r.mu.Lock()
	r.cached[id] = entry{terms: terms, fetchedAt: r.now()}
	r.mu.Unlock()
	r.log.Debug("vocabulary loaded", "vocabulary", id, "terms", len(terms))
	return terms
}

package search

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/silknow/explorer-api/internal/sparql"
)

// detailConcurrency bounds in-flight detail queries so one result page does
// not become one request per row against the shared endpoint.
const detailConcurrency = 3

// fetchDetails runs the detail template once per entity id with bounded
// concurrency. A failed fetch contributes no record and never aborts its
// siblings, so the page can legitimately come back shorter than requested.
// Successful records keep the input id order.
func (s *service) fetchDetails(ctx context.Context, route *Route, req *Request, ids []string) []map[string]any {
	results := make([]map[string]any, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			s.executor.metrics.DetailInflightInc()
			defer s.executor.metrics.DetailInflightDec()
			rec := s.fetchDetail(gctx, route, req, id)
			if rec != nil {
				results[i] = rec
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]map[string]any, 0, len(ids))
	for _, rec := range results {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

func (s *service) fetchDetail(ctx context.Context, route *Route, req *Request, id string) map[string]any {
	term := sparql.FormatURI(id)
	if term == "" {
		return nil
	}
	bound, err := sparql.Bind(route.Detail, sparql.BindParams{
		Lang:   req.Lang,
		Values: map[string][]string{"id": {term}},
	})
	if err != nil {
		s.log.Warn("detail bind failed", "error", err, "id", id)
		return nil
	}
	graph, _ := s.executor.Query(ctx, bound)
	if len(graph) == 0 {
		return nil
	}
	return scrubEmpty(graph[0])
}

// scrubEmpty removes fields whose value is an empty object, the artifact
// OPTIONAL blocks leave behind when nothing bound.
func scrubEmpty(rec map[string]any) map[string]any {
	for field, v := range rec {
		switch t := v.(type) {
		case map[string]any:
			scrubEmpty(t)
			if len(t) == 0 {
				delete(rec, field)
			}
		case []any:
			kept := t[:0]
			for _, item := range t {
				if m, ok := item.(map[string]any); ok {
					scrubEmpty(m)
					if len(m) == 0 {
						continue
					}
				}
				kept = append(kept, item)
			}
			if len(kept) == 0 {
				delete(rec, field)
			} else {
				rec[field] = kept
			}
		}
	}
	return rec
}

package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/silknow/explorer-api/internal/platform/logger"
	"github.com/silknow/explorer-api/internal/sparql"
)

// ErrUnknownRoute is the only hard error the pipeline raises: no
// configuration exists for the requested type, the boundary's 404.
var ErrUnknownRoute = errors.New("unknown route type")

const autocompleteLimit = 10

// Option is one candidate filter value for UI lists and autocomplete.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Result is the assembled response of one search call.
type Result struct {
	Items     []map[string]any `json:"items"`
	Total     int              `json:"total"`
	Page      int              `json:"page"`
	PageSize  int              `json:"pageSize"`
	Favorites []string         `json:"favorites,omitempty"`
	// Query carries the compiled SPARQL text when debug output is on.
	Query string `json:"query,omitempty"`
}

// VocabularyResolver enriches records whose fields reference controlled
// vocabularies. The concrete implementation lives in internal/vocabulary.
type VocabularyResolver interface {
	Resolve(ctx context.Context, record map[string]any) map[string]any
}

// Service is the search orchestrator.
type Service interface {
	Search(ctx context.Context, req *Request, sessionToken string) (*Result, error)
	Detail(ctx context.Context, routeType, id, lang string) (map[string]any, error)
	Autocomplete(ctx context.Context, routeType, filterID, prefix, lang string) ([]Option, int, error)
}

type service struct {
	log       *logger.Logger
	routes    map[string]*Route
	executor  *Executor
	vocab     VocabularyResolver
	favorites FavoritesProvider
	debug     bool
}

func NewService(
	baseLog *logger.Logger,
	routes map[string]*Route,
	executor *Executor,
	vocab VocabularyResolver,
	favorites FavoritesProvider,
	debug bool,
) (Service, error) {
	if baseLog == nil {
		return nil, fmt.Errorf("logger required")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor required")
	}
	if len(routes) == 0 {
		return nil, fmt.Errorf("no routes configured")
	}
	if favorites == nil {
		favorites = NoopFavorites()
	}
	return &service{
		log:       baseLog.With("service", "SearchService"),
		routes:    routes,
		executor:  executor,
		vocab:     vocab,
		favorites: favorites,
		debug:     debug,
	}, nil
}

func (s *service) Search(ctx context.Context, req *Request, sessionToken string) (*Result, error) {
	route, ok := s.routes[req.RouteType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoute, req.RouteType)
	}
	s.executor.metrics.SearchRequest(req.RouteType)

	bound, err := sparql.Bind(route.List, sparql.BindParams{
		Lang:   req.Lang,
		Limit:  req.EffectivePageSize(),
		Offset: req.Offset(),
	})
	if err != nil {
		// Malformed configuration degrades to an empty result, not a crash.
		s.log.Warn("list template bind failed", "error", err, "type", req.RouteType)
		return s.emptyResult(req), nil
	}
	applyFilters(bound, route, req)
	s.applySort(bound, route, req)

	var (
		graph sparql.Graph
		query string
		total int
	)
	// The main and counting queries share the WHERE body but are
	// independent; run them concurrently.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		graph, query = s.executor.Query(gctx, bound)
		return nil
	})
	g.Go(func() error {
		total = s.executor.Count(gctx, bound, false)
		return nil
	})
	_ = g.Wait()

	ids := recordIDs(graph)

	var items []map[string]any
	if route.Detail != nil {
		items = s.fetchDetails(ctx, route, req, ids)
	} else {
		items = make([]map[string]any, 0, len(graph))
		for _, rec := range graph {
			items = append(items, scrubEmpty(rec))
		}
	}
	items = s.resolveAll(ctx, items)

	result := &Result{
		Items:     items,
		Total:     total,
		Page:      req.EffectivePage(),
		PageSize:  req.EffectivePageSize(),
		Favorites: s.favoritedIDs(ctx, sessionToken, ids),
	}
	if s.debug {
		result.Query = query
	}
	return result, nil
}

func (s *service) Detail(ctx context.Context, routeType, id, lang string) (map[string]any, error) {
	route, ok := s.routes[routeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoute, routeType)
	}
	id = route.QualifiedID(id)
	req := &Request{RouteType: routeType, Lang: lang}
	if route.Detail != nil {
		return s.fetchDetailResolved(ctx, route, req, id), nil
	}
	// Routes without a dedicated detail template reuse the list template
	// restricted to the one id.
	term := sparql.FormatURI(id)
	if term == "" {
		return nil, nil
	}
	bound, err := sparql.Bind(route.List, sparql.BindParams{
		Lang:   lang,
		Values: map[string][]string{"id": {term}},
	})
	if err != nil {
		s.log.Warn("detail bind failed", "error", err, "type", routeType)
		return nil, nil
	}
	graph, _ := s.executor.Query(ctx, bound)
	if len(graph) == 0 {
		return nil, nil
	}
	rec := scrubEmpty(graph[0])
	if s.vocab != nil {
		rec = s.vocab.Resolve(ctx, rec)
	}
	return rec, nil
}

func (s *service) fetchDetailResolved(ctx context.Context, route *Route, req *Request, id string) map[string]any {
	rec := s.fetchDetail(ctx, route, req, id)
	if rec == nil {
		return nil
	}
	if s.vocab != nil {
		rec = s.vocab.Resolve(ctx, rec)
	}
	return rec
}

func (s *service) Autocomplete(ctx context.Context, routeType, filterID, prefix, lang string) ([]Option, int, error) {
	route, ok := s.routes[routeType]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknownRoute, routeType)
	}
	filter := route.FilterByID(filterID)
	if filter == nil || filter.Options == nil {
		return nil, 0, nil
	}

	bound, err := sparql.Bind(filter.Options, sparql.BindParams{
		Lang:  lang,
		Limit: autocompleteLimit,
	})
	if err != nil {
		s.log.Warn("options bind failed", "error", err, "filter", filterID)
		return nil, 0, nil
	}
	if prefix = strings.TrimSpace(prefix); prefix != "" {
		labelVar := filter.OptionsLabelVar
		if labelVar == "" {
			labelVar = "label"
		}
		bound.Filter = append(bound.Filter,
			fmt.Sprintf(`REGEX(STR(?%s), "^%s", "i")`, labelVar, sparql.EscapeRegex(prefix)))
	}

	graph, _ := s.executor.Query(ctx, bound)
	// Typeahead never needs an exact total; the capped counting query is
	// far cheaper on the endpoint.
	total := s.executor.Count(ctx, bound, true)

	options := make([]Option, 0, len(graph))
	for _, rec := range graph {
		id := sparql.UnwrapValue(rec["id"])
		label := sparql.UnwrapValue(rec["label"])
		if id == "" {
			continue
		}
		options = append(options, Option{ID: id, Label: label})
	}
	return options, total, nil
}

// applySort switches the template's ordering to the requested sort key,
// appending the patterns that bind the sort variable alongside.
func (s *service) applySort(tpl *sparql.Template, route *Route, req *Request) {
	if req.SortBy == "" || len(route.SortFields) == 0 {
		return
	}
	sf, ok := route.SortFields[req.SortBy]
	if !ok || sf.Var == "" {
		return
	}
	tpl.Where = append(tpl.Where, sf.Where...)
	tpl.OrderBy = &sparql.Order{Var: sf.Var, Desc: req.SortDesc}
}

func (s *service) resolveAll(ctx context.Context, items []map[string]any) []map[string]any {
	if s.vocab == nil {
		return items
	}
	for i, rec := range items {
		items[i] = s.vocab.Resolve(ctx, rec)
	}
	return items
}

// favoritedIDs intersects the caller's saved items with the page's ids.
// Collaborator failure degrades to "nothing favorited".
func (s *service) favoritedIDs(ctx context.Context, sessionToken string, ids []string) []string {
	if sessionToken == "" || len(ids) == 0 {
		return nil
	}
	saved, err := s.favorites.FavoriteIDs(ctx, sessionToken)
	if err != nil {
		s.log.Warn("favorites lookup failed", "error", err)
		return nil
	}
	if len(saved) == 0 {
		return nil
	}
	savedSet := make(map[string]bool, len(saved))
	for _, id := range saved {
		savedSet[id] = true
	}
	var out []string
	for _, id := range ids {
		if savedSet[id] {
			out = append(out, id)
		}
	}
	return out
}

func (s *service) emptyResult(req *Request) *Result {
	return &Result{
		Items:    []map[string]any{},
		Page:     req.EffectivePage(),
		PageSize: req.EffectivePageSize(),
	}
}

func recordIDs(graph sparql.Graph) []string {
	ids := make([]string, 0, len(graph))
	for _, rec := range graph {
		if id := sparql.UnwrapValue(rec["id"]); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

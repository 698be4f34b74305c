package search

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoRowResponse = `{"head":{"vars":["id"]},"results":{"bindings":[` +
	`{"id":{"type":"uri","value":"http://ex.org/object/1"}},` +
	`{"id":{"type":"uri","value":"http://ex.org/object/2"}}]}}`

// pipelineDoer routes counting queries and list queries to different canned
// responses, recording every query text it saw.
type pipelineDoer struct {
	mu        sync.Mutex
	queries   []string
	countBody string
	listBody  string
}

func (d *pipelineDoer) Do(req *http.Request) (*http.Response, error) {
	raw, _ := io.ReadAll(req.Body)
	query := string(raw)
	d.mu.Lock()
	d.queries = append(d.queries, query)
	d.mu.Unlock()

	body := d.listBody
	if strings.Contains(query, "COUNT(DISTINCT ?id)") {
		body = d.countBody
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}, nil
}

func (d *pipelineDoer) seen(substr string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, q := range d.queries {
		if strings.Contains(q, substr) {
			out = append(out, q)
		}
	}
	return out
}

type stubResolver struct{}

func (stubResolver) Resolve(ctx context.Context, record map[string]any) map[string]any {
	record["resolved"] = true
	return record
}

type stubFavorites struct {
	saved []string
	err   error
	token string
}

func (s *stubFavorites) FavoriteIDs(ctx context.Context, sessionToken string) ([]string, error) {
	s.token = sessionToken
	return s.saved, s.err
}

func newPipelineService(t *testing.T, doer Doer, favorites FavoritesProvider, debug bool) Service {
	t.Helper()
	e := newTestExecutor(t, doer, nil)
	route := &Route{
		Type:    "objects",
		URIBase: "http://ex.org/object",
		List:    baseTemplate(),
		Filters: []*Filter{materialFilter(CondOr)},
		SortFields: map[string]SortField{
			"label": {
				Var:   "label",
				Where: []string{"OPTIONAL { ?id rdfs:label ?label }"},
			},
		},
	}
	svc, err := NewService(testLogger(t), map[string]*Route{"objects": route}, e, stubResolver{}, favorites, debug)
	require.NoError(t, err)
	return svc
}

func TestSearchAssemblesResult(t *testing.T) {
	doer := &pipelineDoer{countBody: countResponse(42), listBody: twoRowResponse}
	favorites := &stubFavorites{saved: []string{"http://ex.org/object/2", "http://ex.org/object/999"}}
	svc := newPipelineService(t, doer, favorites, false)

	result, err := svc.Search(context.Background(), &Request{
		RouteType: "objects",
		Page:      2,
		PageSize:  10,
	}, "session-token")
	require.NoError(t, err)

	assert.Equal(t, 42, result.Total, "the total comes from the counting query, not the page")
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.PageSize)
	assert.Equal(t, []string{"http://ex.org/object/2"}, result.Favorites, "favorites intersect the page's ids")
	assert.Equal(t, "session-token", favorites.token)
	assert.Empty(t, result.Query, "debug output is off")

	for _, item := range result.Items {
		assert.Equal(t, true, item["resolved"], "records pass through the vocabulary resolver")
	}

	listQueries := doer.seen("LIMIT 10")
	require.NotEmpty(t, listQueries, "the page window applies to the main query")
	assert.Contains(t, listQueries[0], "OFFSET 10")
	countQueries := doer.seen("COUNT(DISTINCT ?id)")
	require.Len(t, countQueries, 1)
	assert.NotContains(t, countQueries[0], "LIMIT", "the exact total ignores the page window")
}

func TestSearchUnknownRoute(t *testing.T) {
	svc := newPipelineService(t, &pipelineDoer{countBody: countResponse(0), listBody: twoRowResponse}, nil, false)

	_, err := svc.Search(context.Background(), &Request{RouteType: "paintings"}, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRoute))
}

func TestSearchDebugEchoesQuery(t *testing.T) {
	doer := &pipelineDoer{countBody: countResponse(0), listBody: twoRowResponse}
	svc := newPipelineService(t, doer, nil, true)

	result, err := svc.Search(context.Background(), &Request{RouteType: "objects"}, "")
	require.NoError(t, err)
	assert.Contains(t, result.Query, "SELECT DISTINCT ?id")
}

func TestSearchSortBindsOrderingVariable(t *testing.T) {
	doer := &pipelineDoer{countBody: countResponse(2), listBody: twoRowResponse}
	svc := newPipelineService(t, doer, nil, false)

	_, err := svc.Search(context.Background(), &Request{RouteType: "objects", SortBy: "label"}, "")
	require.NoError(t, err)

	sorted := doer.seen("ORDER BY ASC(?label)")
	require.NotEmpty(t, sorted, "the requested sort key replaces the default ordering")
	assert.Contains(t, sorted[0], "OPTIONAL { ?id rdfs:label ?label }",
		"the sort variable is bound by its own pattern, not left dangling")

	doer = &pipelineDoer{countBody: countResponse(2), listBody: twoRowResponse}
	svc = newPipelineService(t, doer, nil, false)
	_, err = svc.Search(context.Background(), &Request{RouteType: "objects", SortBy: "label", SortDesc: true}, "")
	require.NoError(t, err)
	assert.NotEmpty(t, doer.seen("ORDER BY DESC(?label)"))
}

func TestSearchUnknownSortKeepsDefaultOrder(t *testing.T) {
	doer := &pipelineDoer{countBody: countResponse(2), listBody: twoRowResponse}
	svc := newPipelineService(t, doer, nil, false)

	_, err := svc.Search(context.Background(), &Request{RouteType: "objects", SortBy: "color"}, "")
	require.NoError(t, err)
	assert.Empty(t, doer.seen("ORDER BY"), "an unconfigured sort key changes nothing")
}

func TestSearchFavoritesFailureDegrades(t *testing.T) {
	doer := &pipelineDoer{countBody: countResponse(2), listBody: twoRowResponse}
	svc := newPipelineService(t, doer, &stubFavorites{err: errors.New("favorites down")}, false)

	result, err := svc.Search(context.Background(), &Request{RouteType: "objects"}, "tok")
	require.NoError(t, err)
	assert.Nil(t, result.Favorites)
	assert.Len(t, result.Items, 2, "the page itself is unaffected")
}

func TestDetailViaListTemplate(t *testing.T) {
	doer := &pipelineDoer{
		countBody: countResponse(1),
		listBody:  `{"head":{"vars":["id"]},"results":{"bindings":[{"id":{"type":"uri","value":"http://ex.org/object/1"}}]}}`,
	}
	svc := newPipelineService(t, doer, nil, false)

	rec, err := svc.Detail(context.Background(), "objects", "http://ex.org/object/1", "en")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, true, rec["resolved"])

	restricted := doer.seen("VALUES ?id { <http://ex.org/object/1> }")
	assert.NotEmpty(t, restricted, "the list template is restricted to the one id")
}

func TestDetailQualifiesBareID(t *testing.T) {
	doer := &pipelineDoer{
		listBody: `{"head":{"vars":["id"]},"results":{"bindings":[{"id":{"type":"uri","value":"http://ex.org/object/1"}}]}}`,
	}
	svc := newPipelineService(t, doer, nil, false)

	rec, err := svc.Detail(context.Background(), "objects", "1", "en")
	require.NoError(t, err)
	require.NotNil(t, rec)

	expanded := doer.seen("VALUES ?id { <http://ex.org/object/1> }")
	assert.NotEmpty(t, expanded, "a bare identifier expands against the route's URI base")
}

func TestDetailMissingRecord(t *testing.T) {
	doer := &pipelineDoer{listBody: `{"head":{"vars":["id"]},"results":{"bindings":[]}}`}
	svc := newPipelineService(t, doer, nil, false)

	rec, err := svc.Detail(context.Background(), "objects", "http://ex.org/object/nope", "en")
	require.NoError(t, err)
	assert.Nil(t, rec, "absence is not an error; the boundary turns it into a 404")

	rec, err = svc.Detail(context.Background(), "objects", "not a uri", "en")
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, err = svc.Detail(context.Background(), "paintings", "http://ex.org/1", "en")
	assert.True(t, errors.Is(err, ErrUnknownRoute))
}

func TestAutocomplete(t *testing.T) {
	optionsBody := `{"head":{"vars":["id","label"]},"results":{"bindings":[` +
		`{"id":{"type":"uri","value":"http://vocab/satin"},"label":{"type":"literal","value":"Satin"}},` +
		`{"id":{"type":"uri","value":"http://vocab/satinette"},"label":{"type":"literal","value":"Satinette"}}]}}`
	doer := &pipelineDoer{countBody: countResponse(500), listBody: optionsBody}
	e := newTestExecutor(t, doer, nil)

	filter := materialFilter(CondOr)
	filter.Options = detailFixture()
	route := &Route{Type: "objects", List: baseTemplate(), Filters: []*Filter{filter}}
	svc, err := NewService(testLogger(t), map[string]*Route{"objects": route}, e, nil, nil, false)
	require.NoError(t, err)

	options, total, err := svc.Autocomplete(context.Background(), "objects", "material", "sat", "en")
	require.NoError(t, err)
	assert.Equal(t, []Option{
		{ID: "http://vocab/satin", Label: "Satin"},
		{ID: "http://vocab/satinette", Label: "Satinette"},
	}, options)
	assert.Equal(t, 500, total)

	prefixed := doer.seen(`REGEX(STR(?label), "^sat", "i")`)
	assert.NotEmpty(t, prefixed, "the prefix narrows on the label variable")
	capped := doer.seen("LIMIT 1000")
	assert.NotEmpty(t, capped, "the total is approximate")

	options, total, err = svc.Autocomplete(context.Background(), "objects", "no-such-filter", "x", "en")
	require.NoError(t, err)
	assert.Nil(t, options)
	assert.Zero(t, total)
}

package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silknow/explorer-api/internal/sparql"
)

var valuesIDRe = regexp.MustCompile(`VALUES \?id \{ <([^>]+)> \}`)

// detailDoer answers one record per detail query, keyed on the id the query
// restricts to, and tracks how many requests overlap in flight.
type detailDoer struct {
	mu       sync.Mutex
	inflight int
	maxSeen  int
	calls    int
	failURIs map[string]bool
}

func (d *detailDoer) Do(req *http.Request) (*http.Response, error) {
	raw, _ := io.ReadAll(req.Body)
	query := string(raw)

	d.mu.Lock()
	d.calls++
	d.inflight++
	if d.inflight > d.maxSeen {
		d.maxSeen = d.inflight
	}
	d.mu.Unlock()

	// Give siblings a chance to overlap so the concurrency bound is real.
	time.Sleep(5 * time.Millisecond)

	d.mu.Lock()
	d.inflight--
	d.mu.Unlock()

	m := valuesIDRe.FindStringSubmatch(query)
	if m == nil {
		return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	uri := m[1]
	if d.failURIs[uri] {
		return &http.Response{StatusCode: http.StatusInternalServerError, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	body := fmt.Sprintf(`{"head":{"vars":["id","label"]},"results":{"bindings":[{"id":{"type":"uri","value":"%s"},"label":{"type":"literal","value":"record"}}]}}`, uri)
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body))}, nil
}

func detailFixture() *sparql.Template {
	return &sparql.Template{
		Projection: sparql.Object(map[string]*sparql.Node{
			"id":    sparql.Leaf("id"),
			"label": sparql.Leaf("label"),
		}),
		Where: []string{"?id rdfs:label ?label"},
		Prefixes: map[string]string{
			"rdfs": "http://www.w3.org/2000/01/rdf-schema#",
		},
	}
}

func newDetailService(t *testing.T, doer Doer) (*service, *Route) {
	t.Helper()
	e := newTestExecutor(t, doer, nil)
	route := &Route{Type: "objects", List: baseTemplate(), Detail: detailFixture()}
	svc, err := NewService(testLogger(t), map[string]*Route{"objects": route}, e, nil, nil, false)
	require.NoError(t, err)
	return svc.(*service), route
}

func TestFetchDetailsFailureIsolation(t *testing.T) {
	doer := &detailDoer{failURIs: map[string]bool{"http://ex.org/object/3": true}}
	s, route := newDetailService(t, doer)

	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		ids = append(ids, fmt.Sprintf("http://ex.org/object/%d", i))
	}

	out := s.fetchDetails(context.Background(), route, &Request{Lang: "en"}, ids)

	require.Len(t, out, 9, "one failed fetch drops one record, not the page")
	assert.Equal(t, 10, doer.calls, "every id was attempted")

	got := make([]string, 0, len(out))
	for _, rec := range out {
		got = append(got, sparql.UnwrapValue(rec["id"]))
	}
	want := append(append([]string{}, ids[:3]...), ids[4:]...)
	assert.Equal(t, want, got, "survivors keep the input order")
}

func TestFetchDetailsBoundedConcurrency(t *testing.T) {
	doer := &detailDoer{}
	s, route := newDetailService(t, doer)

	ids := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		ids = append(ids, fmt.Sprintf("http://ex.org/object/%d", i))
	}
	s.fetchDetails(context.Background(), route, &Request{Lang: "en"}, ids)

	assert.LessOrEqual(t, doer.maxSeen, detailConcurrency)
}

func TestFetchDetailInvalidIDSkipsNetwork(t *testing.T) {
	doer := &detailDoer{}
	s, route := newDetailService(t, doer)

	rec := s.fetchDetail(context.Background(), route, &Request{}, "not a uri")
	assert.Nil(t, rec)
	assert.Equal(t, 0, doer.calls)
}

func TestScrubEmpty(t *testing.T) {
	rec := map[string]any{
		"id":    "http://ex.org/1",
		"label": "Chasuble",
		"material": map[string]any{
			"@id": "http://ex.org/silk",
		},
		"location": map[string]any{},
		"images": []any{
			map[string]any{"@id": "http://ex.org/img1"},
			map[string]any{},
		},
		"empties": []any{map[string]any{}, map[string]any{}},
	}

	scrubEmpty(rec)

	assert.NotContains(t, rec, "location")
	assert.NotContains(t, rec, "empties")
	assert.Equal(t, []any{map[string]any{"@id": "http://ex.org/img1"}}, rec["images"])
	assert.Contains(t, rec, "material")
	assert.Equal(t, "Chasuble", rec["label"])
}

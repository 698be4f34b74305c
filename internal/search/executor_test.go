package search

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/silknow/explorer-api/internal/cache"
	"github.com/silknow/explorer-api/internal/platform/logger"
	"github.com/silknow/explorer-api/internal/sparql"
)

const singleRowResponse = `{"head":{"vars":["id"]},"results":{"bindings":[{"id":{"type":"uri","value":"http://ex.org/1"}}]}}`

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	return log
}

// countingDoer answers every request with a fixed body and remembers how
// often the network was actually hit.
type countingDoer struct {
	mu     sync.Mutex
	calls  int
	status int
	body   string
	last   *http.Request
	sent   string
}

func (d *countingDoer) Do(req *http.Request) (*http.Response, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	d.last = req
	if req.Body != nil {
		raw, _ := io.ReadAll(req.Body)
		d.sent = string(raw)
	}
	status := d.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     http.Header{},
	}, nil
}

func (d *countingDoer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func newTestExecutor(t *testing.T, doer Doer, store cache.Store) *Executor {
	t.Helper()
	e, err := NewExecutor(testLogger(t), ExecutorOptions{
		Endpoint: "http://sparql.test/query",
		Client:   doer,
		Store:    store,
	})
	require.NoError(t, err)
	return e
}

func TestExecutorPostsSparqlQuery(t *testing.T) {
	doer := &countingDoer{body: singleRowResponse}
	e := newTestExecutor(t, doer, nil)

	tpl := baseTemplate()
	graph, query := e.Query(context.Background(), tpl)

	require.Len(t, graph, 1)
	assert.NotEmpty(t, query)
	assert.Equal(t, http.MethodPost, doer.last.Method)
	assert.Equal(t, "application/sparql-query", doer.last.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", doer.last.Header.Get("Accept"))
	assert.Equal(t, query, doer.sent, "the compiled text is sent verbatim")
}

func TestExecutorCacheIdempotence(t *testing.T) {
	doer := &countingDoer{body: singleRowResponse}
	store := cache.NewMemory()
	e := newTestExecutor(t, doer, store)
	ctx := context.Background()

	tpl := baseTemplate()
	query, err := tpl.Compile()
	require.NoError(t, err)

	first, ok := e.fetch(ctx, query)
	require.True(t, ok)
	second, ok := e.fetch(ctx, query)
	require.True(t, ok)

	assert.Equal(t, 1, doer.count(), "second identical query is served from cache")
	assert.Equal(t, first, second, "cached bytes are the raw endpoint response")

	cached, hit, err := store.Get(ctx, cacheKey(query))
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, singleRowResponse, cached)
}

func TestExecutorDistinctQueriesMissIndependently(t *testing.T) {
	doer := &countingDoer{body: singleRowResponse}
	e := newTestExecutor(t, doer, cache.NewMemory())
	ctx := context.Background()

	e.Select(ctx, "SELECT ?id WHERE { ?id ?p ?o }")
	e.Select(ctx, "SELECT ?id WHERE { ?id ?p ?o } LIMIT 5")

	assert.Equal(t, 2, doer.count(), "cache key is the exact query text")
}

func TestExecutorEndpointFailureIsNotCached(t *testing.T) {
	doer := &countingDoer{status: http.StatusInternalServerError}
	store := cache.NewMemory()
	e := newTestExecutor(t, doer, store)
	ctx := context.Background()

	tpl := baseTemplate()
	graph, query := e.Query(ctx, tpl)
	assert.Nil(t, graph)
	assert.NotEmpty(t, query)

	_, hit, err := store.Get(ctx, cacheKey(query))
	require.NoError(t, err)
	assert.False(t, hit, "failures must not poison the cache")

	e.Query(ctx, tpl)
	assert.Equal(t, 2, doer.count(), "a later identical query retries the endpoint")
}

func TestExecutorCompileFailureSkipsNetwork(t *testing.T) {
	doer := &countingDoer{body: singleRowResponse}
	e := newTestExecutor(t, doer, nil)

	graph, query := e.Query(context.Background(), &sparql.Template{})
	assert.Nil(t, graph)
	assert.Empty(t, query)
	assert.Equal(t, 0, doer.count())
}

func TestExecutorMalformedResponse(t *testing.T) {
	doer := &countingDoer{body: "<html>not json</html>"}
	e := newTestExecutor(t, doer, nil)

	graph, _ := e.Query(context.Background(), baseTemplate())
	assert.Nil(t, graph)
}

// failingStore simulates an unavailable cache backend.
type failingStore struct{ err error }

func (f failingStore) Exists(ctx context.Context, key string) (bool, error) { return false, f.err }
func (f failingStore) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, f.err
}
func (f failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return f.err
}

func TestExecutorCacheFailureDegradesToEndpoint(t *testing.T) {
	doer := &countingDoer{body: singleRowResponse}
	e := newTestExecutor(t, doer, failingStore{err: errors.New("redis down")})

	graph, _ := e.Query(context.Background(), baseTemplate())
	require.Len(t, graph, 1, "the live endpoint still answers")
	assert.Equal(t, 1, doer.count())
}

// Package observability carries the service's metrics registry with
// prometheus text exposition. The registry is hand-rolled: the handful of
// counters and gauges this service needs does not justify a client library
// dependency.
package observability

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

// Metrics aggregates the service's instruments. A nil *Metrics is valid
// everywhere; every method no-ops on it so metrics stay optional wiring.
type Metrics struct {
	queryTotal     *CounterVec
	queryLatency   *Histogram
	cacheHits      *Counter
	cacheMisses    *Counter
	searchTotal    *CounterVec
	detailInflight *Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		queryTotal:     NewCounterVec("sparql_queries_total", "SPARQL queries by outcome.", []string{"outcome"}),
		queryLatency:   NewHistogram("sparql_query_seconds", "SPARQL endpoint latency.", []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}),
		cacheHits:      NewCounter("sparql_cache_hits_total", "Query cache hits."),
		cacheMisses:    NewCounter("sparql_cache_misses_total", "Query cache misses."),
		searchTotal:    NewCounterVec("search_requests_total", "Search requests by route type.", []string{"type"}),
		detailInflight: NewGauge("detail_fanout_inflight", "In-flight detail queries."),
	}
}

func (m *Metrics) QueryDone(outcome string) {
	if m == nil {
		return
	}
	m.queryTotal.Inc(outcome)
}

func (m *Metrics) ObserveQueryLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.queryLatency.Observe(d.Seconds())
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) SearchRequest(routeType string) {
	if m == nil {
		return
	}
	m.searchTotal.Inc(routeType)
}

func (m *Metrics) DetailInflightInc() {
	if m == nil {
		return
	}
	m.detailInflight.Add(1)
}

func (m *Metrics) DetailInflightDec() {
	if m == nil {
		return
	}
	m.detailInflight.Add(-1)
}

// WritePrometheus renders every instrument in prometheus text format.
func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.queryTotal, m.queryLatency, m.cacheHits, m.cacheMisses, m.searchTotal, m.detailInflight,
	}
	for _, inst := range writers {
		if err := inst.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

// Handler serves the text exposition endpoint.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = m.WritePrometheus(w)
	})
}

type Counter struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewCounter(name, help string) *Counter {
	return &Counter{name: name, help: help}
}

func (c *Counter) Inc() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.val++
	c.mu.Unlock()
}

func (c *Counter) Value() float64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.val
}

func (c *Counter) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if err := writeHeader(w, c.name, c.help, "counter"); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, err := fmt.Fprintf(w, "%s %g\n", c.name, c.val)
	return err
}

type CounterVec struct {
	name       string
	help       string
	labelNames []string
	mu         sync.RWMutex
	values     map[string]float64
}

func NewCounterVec(name, help string, labels []string) *CounterVec {
	return &CounterVec{name: name, help: help, labelNames: labels, values: map[string]float64{}}
}

func (c *CounterVec) Inc(values ...string) {
	if c == nil {
		return
	}
	lbl := labelString(c.labelNames, values)
	c.mu.Lock()
	c.values[lbl]++
	c.mu.Unlock()
}

func (c *CounterVec) WritePrometheus(w io.Writer) error {
	if c == nil {
		return nil
	}
	if err := writeHeader(w, c.name, c.help, "counter"); err != nil {
		return err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, err := fmt.Fprintf(w, "%s%s %g\n", c.name, k, c.values[k]); err != nil {
			return err
		}
	}
	return nil
}

type Gauge struct {
	name string
	help string
	mu   sync.RWMutex
	val  float64
}

func NewGauge(name, help string) *Gauge {
	return &Gauge{name: name, help: help}
}

func (g *Gauge) Add(v float64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.val += v
	g.mu.Unlock()
}

func (g *Gauge) Set(v float64) {
	if g == nil {
		return
	}
	g.mu.Lock()
	g.val = v
	g.mu.Unlock()
}

func (g *Gauge) WritePrometheus(w io.Writer) error {
	if g == nil {
		return nil
	}
	if err := writeHeader(w, g.name, g.help, "gauge"); err != nil {
		return err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, err := fmt.Fprintf(w, "%s %g\n", g.name, g.val)
	return err
}

type Histogram struct {
	name    string
	help    string
	buckets []float64
	mu      sync.RWMutex
	counts  []float64
	sum     float64
	count   float64
}

func NewHistogram(name, help string, buckets []float64) *Histogram {
	return &Histogram{name: name, help: help, buckets: buckets, counts: make([]float64, len(buckets))}
}

func (h *Histogram) Observe(v float64) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, upper := range h.buckets {
		if v <= upper {
			h.counts[i]++
		}
	}
}

func (h *Histogram) WritePrometheus(w io.Writer) error {
	if h == nil {
		return nil
	}
	if err := writeHeader(w, h.name, h.help, "histogram"); err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i, upper := range h.buckets {
		if _, err := fmt.Fprintf(w, "%s_bucket{le=%q} %g\n", h.name, formatBound(upper), h.counts[i]); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %g\n", h.name, h.count); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "%s_sum %g\n", h.name, h.sum); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%s_count %g\n", h.name, h.count)
	return err
}

func writeHeader(w io.Writer, name, help, typ string) error {
	if _, err := fmt.Fprintf(w, "# HELP %s %s\n", name, help); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "# TYPE %s %s\n", name, typ)
	return err
}

func formatBound(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", v), "0"), ".")
}

func labelString(names, values []string) string {
	if len(names) == 0 {
		return ""
	}
	parts := make([]string, 0, len(names))
	for i, n := range names {
		v := ""
		if i < len(values) {
			v = values[i]
		}
		parts = append(parts, fmt.Sprintf("%s=%q", n, v))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

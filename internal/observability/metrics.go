package observability

import (
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MetricsRegistry holds counters and histograms for the pipeline and
// serves them in Prometheus text format.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*Counter
	histos   map[string]*Histogram
}

// Counter is a monotonically increasing metric.
type Counter struct {
	name  string
	help  string
	mu    sync.Mutex
	value float64
}

// Histogram tracks the distribution of observed values.
type Histogram struct {
	name    string
	help    string
	buckets []float64
	mu      sync.Mutex
	counts  []uint64
	sum     float64
	count   uint64
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*Counter),
		histos:   make(map[string]*Histogram),
	}
}

// NewCounter creates and registers a counter.
func (r *MetricsRegistry) NewCounter(name, help string) *Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := &Counter{name: name, help: help}
	r.counters[name] = c
	return c
}

// NewHistogram creates and registers a histogram. Nil buckets get the
// default latency buckets.
func (r *MetricsRegistry) NewHistogram(name, help string, buckets []float64) *Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if buckets == nil {
		buckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
	}
	h := &Histogram{name: name, help: help, buckets: buckets, counts: make([]uint64, len(buckets))}
	r.histos[name] = h
	return h
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.Add(1) }

// Add adds a value to the counter.
func (c *Counter) Add(v float64) {
	c.mu.Lock()
	c.value += v
	c.mu.Unlock()
}

// Value returns the counter value.
func (c *Counter) Value() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Observe records a value.
func (h *Histogram) Observe(v float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sum += v
	h.count++
	for i, bound := range h.buckets {
		if v <= bound {
			h.counts[i]++
			break
		}
	}
}

// ObserveDuration records the seconds elapsed since start.
func (h *Histogram) ObserveDuration(start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler serves the registry in Prometheus text format.
func (r *MetricsRegistry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		r.write(w)
	})
}

func (r *MetricsRegistry) write(w http.ResponseWriter) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range sortedKeys(r.counters) {
		c := r.counters[name]
		c.mu.Lock()
		w.Write([]byte("# HELP " + c.name + " " + c.help + "\n"))
		w.Write([]byte("# TYPE " + c.name + " counter\n"))
		w.Write([]byte(c.name + " " + formatFloat(c.value) + "\n"))
		c.mu.Unlock()
	}

	for _, name := range sortedKeys(r.histos) {
		h := r.histos[name]
		h.mu.Lock()
		w.Write([]byte("# HELP " + h.name + " " + h.help + "\n"))
		w.Write([]byte("# TYPE " + h.name + " histogram\n"))
		var cumulative uint64
		for i, bound := range h.buckets {
			cumulative += h.counts[i]
			w.Write([]byte(h.name + `_bucket{le="` + formatFloat(bound) + `"} ` + strconv.FormatUint(cumulative, 10) + "\n"))
		}
		w.Write([]byte(h.name + `_bucket{le="+Inf"} ` + strconv.FormatUint(h.count, 10) + "\n"))
		w.Write([]byte(h.name + "_sum " + formatFloat(h.sum) + "\n"))
		w.Write([]byte(h.name + "_count " + strconv.FormatUint(h.count, 10) + "\n"))
		h.mu.Unlock()
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

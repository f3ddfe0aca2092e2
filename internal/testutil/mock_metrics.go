package testutil

import (
	"net/http"
	"strings"
	"sync"

	"github.com/turtacn/deid-reconcile/internal/infrastructure/monitoring/prometheus"
)

// MockCollector implements prometheus.MetricsCollector in memory.  Values
// are keyed by metric name and label values so tests can assert on them
// without scraping.
type MockCollector struct {
	mu     sync.Mutex
	values map[string]float64
	counts map[string]int
}

// NewMockCollector creates an empty MockCollector.
func NewMockCollector() *MockCollector {
	return &MockCollector{values: make(map[string]float64), counts: make(map[string]int)}
}

// NewMockPipelineMetrics returns pipeline metrics backed by a fresh
// MockCollector.
func NewMockPipelineMetrics() (*prometheus.PipelineMetrics, *MockCollector) {
	c := NewMockCollector()
	return prometheus.NewPipelineMetrics(c), c
}

func metricKey(name string, lvs []string) string {
	if len(lvs) == 0 {
		return name
	}
	return name + "{" + strings.Join(lvs, ",") + "}"
}

// Value returns the current value of name with the given label values.
func (c *MockCollector) Value(name string, lvs ...string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[metricKey(name, lvs)]
}

// Observations returns how many times a histogram was observed.
func (c *MockCollector) Observations(name string, lvs ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[metricKey(name, lvs)]
}

func (c *MockCollector) add(key string, v float64) {
	c.mu.Lock()
	c.values[key] += v
	c.counts[key]++
	c.mu.Unlock()
}

func (c *MockCollector) set(key string, v float64) {
	c.mu.Lock()
	c.values[key] = v
	c.counts[key]++
	c.mu.Unlock()
}

func (c *MockCollector) RegisterCounter(name, _ string, _ ...string) prometheus.CounterVec {
	return &mockVec{c: c, name: name}
}

func (c *MockCollector) RegisterGauge(name, _ string, _ ...string) prometheus.GaugeVec {
	return &mockGaugeVec{c: c, name: name}
}

func (c *MockCollector) RegisterHistogram(name, _ string, _ []float64, _ ...string) prometheus.HistogramVec {
	return &mockHistogramVec{c: c, name: name}
}

func (c *MockCollector) Handler() http.Handler { return http.NotFoundHandler() }

func (c *MockCollector) WriteTextfile(string) error { return nil }

type mockVec struct {
	c    *MockCollector
	name string
}

func (v *mockVec) WithLabelValues(lvs ...string) prometheus.Counter {
	return &mockMetric{c: v.c, key: metricKey(v.name, lvs)}
}

type mockGaugeVec mockVec

func (v *mockGaugeVec) WithLabelValues(lvs ...string) prometheus.Gauge {
	return &mockMetric{c: v.c, key: metricKey(v.name, lvs)}
}

type mockHistogramVec mockVec

func (v *mockHistogramVec) WithLabelValues(lvs ...string) prometheus.Histogram {
	return &mockMetric{c: v.c, key: metricKey(v.name, lvs)}
}

type mockMetric struct {
	c   *MockCollector
	key string
}

func (m *mockMetric) Inc()              { m.c.add(m.key, 1) }
func (m *mockMetric) Add(v float64)     { m.c.add(m.key, v) }
func (m *mockMetric) Set(v float64)     { m.c.set(m.key, v) }
func (m *mockMetric) Observe(v float64) { m.c.add(m.key, v) }

var _ prometheus.MetricsCollector = (*MockCollector)(nil)

//Personal.AI order the ending

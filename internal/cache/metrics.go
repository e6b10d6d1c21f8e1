package cache

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of one cache.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	resolutions prometheus.Counter
	evictions   prometheus.Counter
}

// NewMetrics creates the cache collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, storeID string) (*Metrics, error) {
	labels := prometheus.Labels{"store": storeID}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "strata",
			Subsystem:   "query_cache",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &Metrics{
		hits:        counter("hits_total", "Total number of cache hits"),
		misses:      counter("misses_total", "Total number of cache misses"),
		resolutions: counter("resolutions_total", "Total number of store scans performed on a miss"),
		evictions:   counter("evictions_total", "Total number of entries evicted by store events"),
	}
	for _, col := range []prometheus.Collector{m.hits, m.misses, m.resolutions, m.evictions} {
		if err := reg.Register(col); err != nil {
			return nil, fmt.Errorf("register cache metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) hit() {
	if m != nil {
		m.hits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.misses.Inc()
	}
}

func (m *Metrics) resolved() {
	if m != nil {
		m.resolutions.Inc()
	}
}

func (m *Metrics) evicted(n int) {
	if m != nil {
		m.evictions.Add(float64(n))
	}
}

package store

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of one store.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	rowsInserted   prometheus.Counter
	duplicateRows  prometheus.Counter
	rowsDropped    prometheus.Counter
	bucketSplits   prometheus.Counter
	bucketsCreated prometheus.Counter
	eventsEmitted  prometheus.Counter
	resorts        prometheus.Counter
}

// NewMetrics creates the store collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, storeID string) (*Metrics, error) {
	labels := prometheus.Labels{"store": storeID}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "strata",
			Subsystem:   "store",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	m := &Metrics{
		rowsInserted:   counter("rows_inserted_total", "Total number of rows inserted"),
		duplicateRows:  counter("duplicate_rows_total", "Total number of re-inserted rows skipped by row id"),
		rowsDropped:    counter("rows_dropped_total", "Total number of rows dropped by garbage collection"),
		bucketSplits:   counter("bucket_splits_total", "Total number of time bucket splits"),
		bucketsCreated: counter("buckets_created_total", "Total number of buckets opened past an unsplittable bucket"),
		eventsEmitted:  counter("events_emitted_total", "Total number of store events delivered to subscribers"),
		resorts:        counter("bucket_resorts_total", "Total number of buckets resorted before a read"),
	}

	for _, c := range []prometheus.Collector{
		m.rowsInserted, m.duplicateRows, m.rowsDropped, m.bucketSplits,
		m.bucketsCreated, m.eventsEmitted, m.resorts,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register store metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) rowInserted() {
	if m != nil {
		m.rowsInserted.Inc()
	}
}

func (m *Metrics) duplicateRow() {
	if m != nil {
		m.duplicateRows.Inc()
	}
}

func (m *Metrics) rowDropped() {
	if m != nil {
		m.rowsDropped.Inc()
	}
}

func (m *Metrics) bucketSplit() {
	if m != nil {
		m.bucketSplits.Inc()
	}
}

func (m *Metrics) bucketCreated() {
	if m != nil {
		m.bucketsCreated.Inc()
	}
}

func (m *Metrics) eventsSent(n int) {
	if m != nil {
		m.eventsEmitted.Add(float64(n))
	}
}

func (m *Metrics) bucketsResorted(n int) {
	if m != nil && n > 0 {
		m.resorts.Add(float64(n))
	}
}

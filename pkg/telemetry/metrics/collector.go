package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry implements prometheus.Collector so it can be gathered next to
// client_golang's own collectors and served by promhttp. Describe sends
// nothing, which makes it an unchecked collector: families are created
// lazily and their schemas are enforced by the Registry itself.
var _ prometheus.Collector = (*Registry)(nil)

// Describe implements prometheus.Collector.
func (r *Registry) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector by converting a snapshot into
// const metrics.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	for _, fs := range r.Snapshot() {
		desc := prometheus.NewDesc(fs.Name, fs.Help, fs.LabelNames, nil)
		for _, s := range fs.Series {
			var (
				m   prometheus.Metric
				err error
			)
			switch fs.Kind {
			case KindCounter:
				m, err = prometheus.NewConstMetric(desc, prometheus.CounterValue, s.Value, s.LabelValues...)
			case KindGauge:
				m, err = prometheus.NewConstMetric(desc, prometheus.GaugeValue, s.Value, s.LabelValues...)
			case KindHistogram:
				buckets := make(map[float64]uint64, len(fs.Buckets))
				for i, upper := range fs.Buckets {
					buckets[upper] = s.BucketCounts[i]
				}
				m, err = prometheus.NewConstHistogram(desc, s.Count, s.Sum, buckets, s.LabelValues...)
			}
			if err != nil {
				ch <- prometheus.NewInvalidMetric(desc, err)
				continue
			}
			ch <- m
		}
	}
}

// CardinalityLimiter bounds the number of unique label combinations a
// caller records for one metric.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality. A non-positive maximum disables the limit.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label set may be recorded. Label sets already seen
// are always allowed; new ones are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	if cl.maxCardinality <= 0 {
		return true
	}

	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Double-check after acquiring write lock
	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}

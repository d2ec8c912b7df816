package metrics

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/prometheus/common/model"
)

// Kind identifies the type of a metric family.
type Kind int

const (
	KindCounter Kind = iota
	KindGauge
	KindHistogram
)

// String returns the exposition format name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCounter:
		return "counter"
	case KindGauge:
		return "gauge"
	case KindHistogram:
		return "histogram"
	default:
		return "untyped"
	}
}

// Registration and recording errors. Callers match them with errors.Is.
var (
	ErrInvalidName          = errors.New("invalid metric or label name")
	ErrKindMismatch         = errors.New("metric already registered with a different kind")
	ErrSchemaMismatch       = errors.New("metric already registered with a different label schema")
	ErrInvalidBuckets       = errors.New("histogram buckets must be finite and strictly ascending")
	ErrLabelCardinality     = errors.New("label value count does not match label schema")
	ErrNegativeCounterDelta = errors.New("counter cannot decrease")
)

// Registry is the process-wide store of metric families. It is created once
// at startup and shared by reference with every component that records
// metrics. The registry lock only guards the family index; recording takes
// per-family and per-series locks.
type Registry struct {
	mu       sync.RWMutex
	families map[string]*family
	order    []*family
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{families: make(map[string]*family)}
}

// NewCounter registers a counter family, or returns the existing one when a
// counter with the same label schema is already registered.
func (r *Registry) NewCounter(name, help string, labelNames []string) (*Counter, error) {
	f, err := r.register(name, help, KindCounter, labelNames, nil)
	if err != nil {
		return nil, err
	}
	return &Counter{f: f}, nil
}

// NewGauge registers a gauge family, or returns the existing one when a
// gauge with the same label schema is already registered.
func (r *Registry) NewGauge(name, help string, labelNames []string) (*Gauge, error) {
	f, err := r.register(name, help, KindGauge, labelNames, nil)
	if err != nil {
		return nil, err
	}
	return &Gauge{f: f}, nil
}

// NewHistogram registers a histogram family with the given upper bucket
// bounds. The implicit +Inf bucket is always added and must not be passed.
func (r *Registry) NewHistogram(name, help string, labelNames []string, buckets []float64) (*Histogram, error) {
	if err := validateBuckets(buckets); err != nil {
		return nil, fmt.Errorf("histogram %q: %w", name, err)
	}
	f, err := r.register(name, help, KindHistogram, labelNames, buckets)
	if err != nil {
		return nil, err
	}
	return &Histogram{f: f}, nil
}

// MustNewCounter is like NewCounter but panics on error. Registration
// conflicts are programming errors and should abort startup.
func (r *Registry) MustNewCounter(name, help string, labelNames []string) *Counter {
	c, err := r.NewCounter(name, help, labelNames)
	if err != nil {
		panic(err)
	}
	return c
}

// MustNewGauge is like NewGauge but panics on error.
func (r *Registry) MustNewGauge(name, help string, labelNames []string) *Gauge {
	g, err := r.NewGauge(name, help, labelNames)
	if err != nil {
		panic(err)
	}
	return g
}

// MustNewHistogram is like NewHistogram but panics on error.
func (r *Registry) MustNewHistogram(name, help string, labelNames []string, buckets []float64) *Histogram {
	h, err := r.NewHistogram(name, help, labelNames, buckets)
	if err != nil {
		panic(err)
	}
	return h
}

func (r *Registry) register(name, help string, kind Kind, labelNames []string, buckets []float64) (*family, error) {
	if !model.LegacyValidation.IsValidMetricName(name) {
		return nil, fmt.Errorf("%w: metric %q", ErrInvalidName, name)
	}
	for _, ln := range labelNames {
		if !model.LegacyValidation.IsValidLabelName(ln) || strings.HasPrefix(ln, "__") {
			return nil, fmt.Errorf("%w: label %q on metric %q", ErrInvalidName, ln, name)
		}
		if kind == KindHistogram && ln == "le" {
			return nil, fmt.Errorf("%w: label %q is reserved on histogram %q", ErrInvalidName, ln, name)
		}
	}
	if hasDuplicates(labelNames) {
		return nil, fmt.Errorf("%w: duplicate label on metric %q", ErrInvalidName, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.families[name]; ok {
		if existing.kind != kind {
			return nil, fmt.Errorf("%w: %q is a %s, not a %s", ErrKindMismatch, name, existing.kind, kind)
		}
		if !slices.Equal(existing.labelNames, labelNames) || !slices.Equal(existing.buckets, buckets) {
			return nil, fmt.Errorf("%w: %q", ErrSchemaMismatch, name)
		}
		return existing, nil
	}

	f := newFamily(name, help, kind, labelNames, buckets)
	r.families[name] = f
	r.order = append(r.order, f)
	return f, nil
}

// Snapshot returns every family in registration order, each with its series
// in first-seen order. Two snapshots of unchanged data are identical.
func (r *Registry) Snapshot() []FamilySnapshot {
	r.mu.RLock()
	families := slices.Clone(r.order)
	r.mu.RUnlock()

	out := make([]FamilySnapshot, 0, len(families))
	for _, f := range families {
		out = append(out, f.snapshot())
	}
	return out
}

// FamilySnapshot is a point-in-time copy of one metric family.
type FamilySnapshot struct {
	Name       string
	Help       string
	Kind       Kind
	LabelNames []string
	Buckets    []float64
	Series     []SeriesSnapshot
}

// SeriesSnapshot is a point-in-time copy of one series. Value is set for
// counters and gauges; BucketCounts (cumulative, one per bucket bound),
// Count and Sum are set for histograms.
type SeriesSnapshot struct {
	LabelValues  []string
	Value        float64
	BucketCounts []uint64
	Count        uint64
	Sum          float64
}

func validateBuckets(buckets []float64) error {
	if len(buckets) == 0 {
		return ErrInvalidBuckets
	}
	for i, b := range buckets {
		if math.IsNaN(b) || math.IsInf(b, 0) {
			return ErrInvalidBuckets
		}
		if i > 0 && b <= buckets[i-1] {
			return ErrInvalidBuckets
		}
	}
	return nil
}

func hasDuplicates(names []string) bool {
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			return true
		}
		seen[n] = struct{}{}
	}
	return false
}

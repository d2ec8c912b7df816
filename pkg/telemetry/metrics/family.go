package metrics

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
)

// seriesKey encodes label values into a map key. Each value is prefixed
// with its byte length, so distinct tuples never share a key whatever bytes
// the values contain.
func seriesKey(labelValues []string) string {
	n := 0
	for _, v := range labelValues {
		n += len(v) + 4
	}
	b := make([]byte, 0, n)
	for _, v := range labelValues {
		b = strconv.AppendInt(b, int64(len(v)), 10)
		b = append(b, ':')
		b = append(b, v...)
	}
	return string(b)
}

type family struct {
	name       string
	help       string
	kind       Kind
	labelNames []string
	buckets    []float64

	mu     sync.RWMutex
	series map[string]*series
	order  []*series
}

type series struct {
	labelValues []string

	// value holds the float64 bits of a counter or gauge.
	value atomic.Uint64

	// Histogram state. counts is cumulative: counts[i] is the number of
	// observations <= buckets[i].
	mu     sync.Mutex
	counts []uint64
	count  uint64
	sum    float64
}

func newFamily(name, help string, kind Kind, labelNames []string, buckets []float64) *family {
	f := &family{
		name:       name,
		help:       help,
		kind:       kind,
		labelNames: slices.Clone(labelNames),
		buckets:    slices.Clone(buckets),
		series:     make(map[string]*series),
	}
	// Unlabeled families always expose their single series, even at zero.
	if len(labelNames) == 0 {
		_, _ = f.get(nil)
	}
	return f
}

// get returns the series for labelValues, creating it on first use.
func (f *family) get(labelValues []string) (*series, error) {
	if len(labelValues) != len(f.labelNames) {
		return nil, fmt.Errorf("%w: %q expects %d label values, got %d",
			ErrLabelCardinality, f.name, len(f.labelNames), len(labelValues))
	}
	key := seriesKey(labelValues)

	f.mu.RLock()
	s, ok := f.series[key]
	f.mu.RUnlock()
	if ok {
		return s, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.series[key]; ok {
		return s, nil
	}
	s = &series{labelValues: slices.Clone(labelValues)}
	if f.kind == KindHistogram {
		s.counts = make([]uint64, len(f.buckets))
	}
	f.series[key] = s
	f.order = append(f.order, s)
	return s, nil
}

func (f *family) snapshot() FamilySnapshot {
	f.mu.RLock()
	all := slices.Clone(f.order)
	f.mu.RUnlock()

	fs := FamilySnapshot{
		Name:       f.name,
		Help:       f.help,
		Kind:       f.kind,
		LabelNames: f.labelNames,
		Buckets:    f.buckets,
		Series:     make([]SeriesSnapshot, 0, len(all)),
	}
	for _, s := range all {
		ss := SeriesSnapshot{LabelValues: s.labelValues}
		if f.kind == KindHistogram {
			s.mu.Lock()
			ss.BucketCounts = slices.Clone(s.counts)
			ss.Count = s.count
			ss.Sum = s.sum
			s.mu.Unlock()
		} else {
			ss.Value = math.Float64frombits(s.value.Load())
		}
		fs.Series = append(fs.Series, ss)
	}
	return fs
}

func (s *series) add(delta float64) {
	for {
		old := s.value.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if s.value.CompareAndSwap(old, next) {
			return
		}
	}
}

func (s *series) observe(buckets []float64, v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, upper := range buckets {
		if v <= upper {
			s.counts[i]++
		}
	}
	s.count++
	s.sum += v
}

// Counter is a handle to a monotonically increasing metric family.
type Counter struct {
	f *family
}

// Inc adds one to the series identified by labelValues.
func (c *Counter) Inc(labelValues ...string) error {
	return c.Add(1, labelValues...)
}

// Add adds delta, which must not be negative, to the series identified by
// labelValues.
func (c *Counter) Add(delta float64, labelValues ...string) error {
	if delta < 0 || math.IsNaN(delta) {
		return fmt.Errorf("%w: %q delta %v", ErrNegativeCounterDelta, c.f.name, delta)
	}
	s, err := c.f.get(labelValues)
	if err != nil {
		return err
	}
	s.add(delta)
	return nil
}

// Value returns the current value of a series and whether it exists.
func (c *Counter) Value(labelValues ...string) (float64, bool) {
	return c.f.value(labelValues)
}

// Gauge is a handle to a metric family that can go up and down.
type Gauge struct {
	f *family
}

// Set sets the series identified by labelValues to v.
func (g *Gauge) Set(v float64, labelValues ...string) error {
	s, err := g.f.get(labelValues)
	if err != nil {
		return err
	}
	s.value.Store(math.Float64bits(v))
	return nil
}

// Inc adds one to the series identified by labelValues.
func (g *Gauge) Inc(labelValues ...string) error {
	return g.Add(1, labelValues...)
}

// Dec subtracts one from the series identified by labelValues.
func (g *Gauge) Dec(labelValues ...string) error {
	return g.Add(-1, labelValues...)
}

// Add adds delta to the series identified by labelValues.
func (g *Gauge) Add(delta float64, labelValues ...string) error {
	s, err := g.f.get(labelValues)
	if err != nil {
		return err
	}
	s.add(delta)
	return nil
}

// Value returns the current value of a series and whether it exists.
func (g *Gauge) Value(labelValues ...string) (float64, bool) {
	return g.f.value(labelValues)
}

// Histogram is a handle to a bucketed distribution family.
type Histogram struct {
	f *family
}

// Observe records v in every bucket whose upper bound is >= v, and adds it
// to the series sum and count.
func (h *Histogram) Observe(v float64, labelValues ...string) error {
	s, err := h.f.get(labelValues)
	if err != nil {
		return err
	}
	s.observe(h.f.buckets, v)
	return nil
}

// Count returns the number of observations and their sum for a series.
func (h *Histogram) Count(labelValues ...string) (count uint64, sum float64, ok bool) {
	s, found := h.f.lookup(labelValues)
	if !found {
		return 0, 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count, s.sum, true
}

func (f *family) lookup(labelValues []string) (*series, bool) {
	if len(labelValues) != len(f.labelNames) {
		return nil, false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	s, ok := f.series[seriesKey(labelValues)]
	return s, ok
}

func (f *family) value(labelValues []string) (float64, bool) {
	s, ok := f.lookup(labelValues)
	if !ok {
		return 0, false
	}
	return math.Float64frombits(s.value.Load()), true
}

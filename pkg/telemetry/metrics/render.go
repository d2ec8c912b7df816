package metrics

import (
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// RenderText renders the registry in the Prometheus text exposition format
// (version 0.0.4). Families appear in registration order, series in
// first-seen order and labels in schema order.
func (r *Registry) RenderText() string {
	var sb strings.Builder
	for _, fs := range r.Snapshot() {
		// Snapshots always carry a name and a known type, the only inputs
		// MetricFamilyToText rejects.
		_, _ = expfmt.MetricFamilyToText(&sb, toMetricFamily(fs))
	}
	return sb.String()
}

// toMetricFamily converts a snapshot into its protobuf form without
// reordering series or labels.
func toMetricFamily(fs FamilySnapshot) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name:   proto.String(fs.Name),
		Help:   proto.String(fs.Help),
		Type:   metricType(fs.Kind),
		Metric: make([]*dto.Metric, 0, len(fs.Series)),
	}
	for _, s := range fs.Series {
		m := &dto.Metric{Label: labelPairs(fs.LabelNames, s.LabelValues)}
		switch fs.Kind {
		case KindCounter:
			m.Counter = &dto.Counter{Value: proto.Float64(s.Value)}
		case KindGauge:
			m.Gauge = &dto.Gauge{Value: proto.Float64(s.Value)}
		case KindHistogram:
			h := &dto.Histogram{
				SampleCount: proto.Uint64(s.Count),
				SampleSum:   proto.Float64(s.Sum),
				Bucket:      make([]*dto.Bucket, len(fs.Buckets)),
			}
			for i, upper := range fs.Buckets {
				h.Bucket[i] = &dto.Bucket{
					UpperBound:      proto.Float64(upper),
					CumulativeCount: proto.Uint64(s.BucketCounts[i]),
				}
			}
			m.Histogram = h
		}
		mf.Metric = append(mf.Metric, m)
	}
	return mf
}

func metricType(k Kind) *dto.MetricType {
	switch k {
	case KindCounter:
		return dto.MetricType_COUNTER.Enum()
	case KindHistogram:
		return dto.MetricType_HISTOGRAM.Enum()
	default:
		return dto.MetricType_GAUGE.Enum()
	}
}

func labelPairs(names, values []string) []*dto.LabelPair {
	if len(names) == 0 {
		return nil
	}
	pairs := make([]*dto.LabelPair, len(names))
	for i, n := range names {
		pairs[i] = &dto.LabelPair{Name: proto.String(n), Value: proto.String(values[i])}
	}
	return pairs
}

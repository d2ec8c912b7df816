package metrics

import (
	"strings"
	"testing"
)

func TestRenderText(t *testing.T) {
	reg := NewRegistry()
	c := reg.MustNewCounter("req_total", "Requests", []string{"method"})
	h := reg.MustNewHistogram("lat_ms", "Latency", []string{"route"}, []float64{10, 100})
	reg.MustNewGauge("up", "Up", nil)

	_ = c.Inc("GET")
	_ = c.Add(2, "POST")
	_ = h.Observe(5, "/a")
	_ = h.Observe(50, "/a")
	_ = h.Observe(500, "/a")

	want := `# HELP req_total Requests
# TYPE req_total counter
req_total{method="GET"} 1
req_total{method="POST"} 2
# HELP lat_ms Latency
# TYPE lat_ms histogram
lat_ms_bucket{route="/a",le="10"} 1
lat_ms_bucket{route="/a",le="100"} 2
lat_ms_bucket{route="/a",le="+Inf"} 3
lat_ms_sum{route="/a"} 555
lat_ms_count{route="/a"} 3
# HELP up Up
# TYPE up gauge
up 0
`
	if got := reg.RenderText(); got != want {
		t.Errorf("RenderText() mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderText_UnlabeledHistogram(t *testing.T) {
	reg := NewRegistry()
	h := reg.MustNewHistogram("q_ms", "Q", nil, []float64{1})
	_ = h.Observe(0.5)

	got := reg.RenderText()
	for _, line := range []string{
		`q_ms_bucket{le="1"} 1`,
		`q_ms_bucket{le="+Inf"} 1`,
		`q_ms_sum 0.5`,
		`q_ms_count 1`,
	} {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("missing line %q in:\n%s", line, got)
		}
	}
}

func TestRenderText_Escaping(t *testing.T) {
	reg := NewRegistry()
	g := reg.MustNewGauge("details", "Line one\nback\\slash", []string{"msg"})
	_ = g.Set(1, "say \"hi\"\n\\")

	got := reg.RenderText()
	if !strings.Contains(got, `# HELP details Line one\nback\\slash`) {
		t.Errorf("help not escaped:\n%s", got)
	}
	if !strings.Contains(got, `details{msg="say \"hi\"\n\\"} 1`) {
		t.Errorf("label value not escaped:\n%s", got)
	}
}

// TestRenderText_KeepsOrder tests that series stay in first-seen order and
// labels in schema order rather than being sorted.
func TestRenderText_KeepsOrder(t *testing.T) {
	reg := NewRegistry()
	c := reg.MustNewCounter("x_total", "X", []string{"route", "method"})
	for _, route := range []string{"/z", "/a", "/m"} {
		_ = c.Inc(route, "GET")
	}

	want := `# HELP x_total X
# TYPE x_total counter
x_total{route="/z",method="GET"} 1
x_total{route="/a",method="GET"} 1
x_total{route="/m",method="GET"} 1
`
	if got := reg.RenderText(); got != want {
		t.Errorf("RenderText() mismatch\n got:\n%s\nwant:\n%s", got, want)
	}
}

// TestRenderText_LargeBucketBounds tests that large bounds still parse as
// the values they were registered with.
func TestRenderText_LargeBucketBounds(t *testing.T) {
	reg := NewRegistry()
	h := reg.MustNewHistogram("body_bytes", "Body", nil, []float64{1000, 1000000})
	_ = h.Observe(2000)

	got := reg.RenderText()
	for _, line := range []string{
		`body_bytes_bucket{le="1000"} 0`,
		`body_bytes_bucket{le="1e+06"} 1`,
		`body_bytes_bucket{le="+Inf"} 1`,
		`body_bytes_sum 2000`,
	} {
		if !strings.Contains(got, line+"\n") {
			t.Errorf("missing line %q in:\n%s", line, got)
		}
	}
}

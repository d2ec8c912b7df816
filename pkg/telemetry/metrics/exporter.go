package metrics

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

// ContentType is the media type of the text exposition format.
const ContentType = "text/plain; version=0.0.4; charset=utf-8"

// ExporterOptions configures an Exporter.
type ExporterOptions struct {
	// ProcessMetrics appends Go runtime and process metrics after the
	// registry's own families.
	ProcessMetrics bool

	// OpenMetrics lets scrapers that ask for application/openmetrics-text
	// receive it through promhttp.
	OpenMetrics bool

	Logger *slog.Logger
}

// Exporter renders a Registry for scraping.
type Exporter struct {
	registry    *Registry
	defaults    *prometheus.Registry
	gatherer    prometheus.Gatherer
	openMetrics bool
	logger      *slog.Logger
}

// NewExporter creates an exporter for registry.
func NewExporter(registry *Registry, opts ExporterOptions) (*Exporter, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Exporter{
		registry:    registry,
		openMetrics: opts.OpenMetrics,
		logger:      logger.With("component", "metrics.exporter"),
	}

	own := prometheus.NewRegistry()
	if err := own.Register(registry); err != nil {
		return nil, fmt.Errorf("failed to register metrics registry: %w", err)
	}
	gatherers := prometheus.Gatherers{own}

	if opts.ProcessMetrics {
		e.defaults = prometheus.NewRegistry()
		if err := e.defaults.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register go collector: %w", err)
		}
		if err := e.defaults.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("failed to register process collector: %w", err)
		}
		gatherers = append(gatherers, e.defaults)
	}
	e.gatherer = gatherers

	return e, nil
}

// Render returns the registry's text exposition followed by the default
// process metrics. When the default metrics cannot be gathered the
// registry's own text is still returned along with the error.
func (e *Exporter) Render() (string, error) {
	var sb strings.Builder
	sb.WriteString(e.registry.RenderText())

	if e.defaults == nil {
		return sb.String(), nil
	}

	families, err := e.defaults.Gather()
	for _, mf := range families {
		if _, werr := expfmt.MetricFamilyToText(&sb, mf); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		return sb.String(), fmt.Errorf("failed to gather process metrics: %w", err)
	}
	return sb.String(), nil
}

// Gatherer returns a prometheus.Gatherer over the registry and the default
// process metrics.
func (e *Exporter) Gatherer() prometheus.Gatherer {
	return e.gatherer
}

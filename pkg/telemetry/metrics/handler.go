package metrics

import (
	"io"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

// Handler returns an HTTP handler for the metrics endpoint.
//
// The default response is the text exposition produced by Render. When
// OpenMetrics is enabled and the scraper negotiates it, the request is served
// by promhttp over the same data instead.
func (e *Exporter) Handler() http.Handler {
	var openMetrics http.Handler
	if e.openMetrics {
		openMetrics = promhttp.HandlerFor(e.gatherer, promhttp.HandlerOpts{
			EnableOpenMetrics: true,
			ErrorHandling:     promhttp.ContinueOnError,
		})
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if openMetrics != nil && expfmt.NegotiateIncludingOpenMetrics(r.Header).FormatType() == expfmt.TypeOpenMetrics {
			openMetrics.ServeHTTP(w, r)
			return
		}

		body, err := e.Render()
		if err != nil {
			e.logger.Error("failed to render metrics", "error", err)
		}

		w.Header().Set("Content-Type", ContentType)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		if _, err := io.WriteString(w, body); err != nil {
			e.logger.Debug("failed to write metrics response", "error", err)
		}
	})
}

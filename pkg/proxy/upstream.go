package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"

	"storefront/beacon/pkg/config"
	"storefront/beacon/pkg/proxy/types"
	"storefront/beacon/pkg/telemetry/logging"
	"storefront/beacon/pkg/telemetry/tracing"
)

// Upstream forwards instrumented requests to the application backend.
// With no upstream configured it answers every request with a JSON 404,
// which lets beacon run as a standalone metrics endpoint.
type Upstream struct {
	target *url.URL
	proxy  *httputil.ReverseProxy
	logger *slog.Logger
}

// NewUpstream creates the upstream handler from proxy configuration.
func NewUpstream(cfg *config.ProxyConfig, logger *slog.Logger) (*Upstream, error) {
	if logger == nil {
		logger = slog.Default()
	}
	u := &Upstream{logger: logger.With("component", "proxy.upstream")}

	if cfg == nil || cfg.UpstreamURL == "" {
		return u, nil
	}

	target, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream URL %q: %w", cfg.UpstreamURL, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream URL %q: scheme and host are required", cfg.UpstreamURL)
	}

	u.target = target
	u.proxy = &httputil.ReverseProxy{
		Rewrite:       u.rewrite,
		FlushInterval: cfg.FlushInterval,
		ErrorHandler:  u.handleError,
	}
	return u, nil
}

// Target returns the upstream base URL, or nil when none is configured.
func (u *Upstream) Target() *url.URL {
	return u.target
}

// ServeHTTP implements http.Handler.
func (u *Upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u.proxy == nil {
		types.NewNotFoundError(fmt.Sprintf("Cannot %s %s", r.Method, r.URL.Path)).Write(w)
		return
	}
	u.proxy.ServeHTTP(w, r)
}

// rewrite points the outbound request at the upstream and carries the
// trace context along with it. The X-Request-ID header is already on the
// inbound request and is copied with the rest of the headers.
func (u *Upstream) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(u.target)
	pr.SetXForwarded()
	pr.Out.Host = pr.In.Host
	tracing.Inject(pr.In.Context(), pr.Out.Header)
}

// handleError maps transport failures to JSON errors. A request the client
// abandoned gets no response at all.
func (u *Upstream) handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		u.logger.DebugContext(ctx, "client closed request before upstream responded",
			"path", r.URL.Path,
		)
		return
	}

	u.logger.ErrorContext(ctx, "upstream request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"route", logging.GetRoute(ctx),
		"upstream", u.target.Host,
	)

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		types.NewGatewayTimeoutError("The upstream application did not respond in time.").Write(w)
		return
	}
	types.NewBadGatewayError("The upstream application is unavailable.").Write(w)
}

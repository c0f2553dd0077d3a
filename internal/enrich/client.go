// Package enrich looks up OpenStreetMap names for a drawn polygon.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/metrics"
)

// ErrUpstream covers non-success answers from either public service.
var ErrUpstream = errors.New("geodata service error")

// Client talks to Overpass and Nominatim. Both are shared public services, so
// every request carries an identifying User-Agent and waits on one limiter.
type Client struct {
	httpClient   *http.Client
	overpassURL  string
	nominatimURL string
	userAgent    string
	limiter      *rate.Limiter
	log          *logger.Logger
}

func NewClient(cfg config.Gateway, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = config.DefaultUserAgent
	}
	return &Client{
		httpClient:   &http.Client{Timeout: timeout},
		overpassURL:  cfg.OverpassURL,
		nominatimURL: cfg.NominatimURL,
		userAgent:    ua,
		limiter:      rate.NewLimiter(rate.Limit(rps), 1),
		log:          log.With("component", "enrich"),
	}
}

// do sends req and returns the body of a 200 response.
func (c *Client) do(ctx context.Context, service string, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	t0 := time.Now()
	metrics.GatewayRequestsTotal.WithLabelValues(service).Inc()
	c.log.Debug("gateway_req", "service", service, "method", req.Method, "url", req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.GatewayFailTotal.WithLabelValues(service).Inc()
		c.log.Warn("gateway_http_error", "service", service, "err", err)
		return nil, fmt.Errorf("%s request: %w", service, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	dur := time.Since(t0).Milliseconds()
	metrics.GatewayDurationMs.WithLabelValues(service).Observe(float64(dur))
	if err != nil {
		metrics.GatewayFailTotal.WithLabelValues(service).Inc()
		return nil, fmt.Errorf("%s read body: %w", service, err)
	}
	c.log.Debug("gateway_resp", "service", service, "status", resp.StatusCode, "bytes", len(body), "duration_ms", dur)

	if resp.StatusCode != http.StatusOK || len(body) == 0 {
		metrics.GatewayFailTotal.WithLabelValues(service).Inc()
		return nil, fmt.Errorf("%w: %s returned HTTP %d (%d bytes)", ErrUpstream, service, resp.StatusCode, len(body))
	}
	return body, nil
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	GatewayRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napoli_gateway_requests_total",
		Help: "Enrichment gateway calls by service",
	}, []string{"service"})
	GatewayFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napoli_gateway_fail_total",
		Help: "Failed enrichment gateway calls by service",
	}, []string{"service"})
	GatewayDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "napoli_gateway_duration_ms",
		Help:    "Enrichment gateway call duration in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"service"})
	StoreOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napoli_store_ops_total",
		Help: "Record store operations by op and result",
	}, []string{"op", "result"})
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "napoli_submissions_total",
		Help: "Confirmed polygon submissions by outcome",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(GatewayRequestsTotal)
	prometheus.MustRegister(GatewayFailTotal)
	prometheus.MustRegister(GatewayDurationMs)
	prometheus.MustRegister(StoreOpsTotal)
	prometheus.MustRegister(SubmissionsTotal)
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler { return promhttp.Handler() }

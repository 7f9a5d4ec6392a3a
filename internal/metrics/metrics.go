// Package metrics holds the Prometheus collectors for enrichment runs. The CLI
// is a batch job, so collectors live in a private registry that is exported to
// a node_exporter textfile at the end of a run.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry collects every metric of this package.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// Enrichment metrics
	ProviderRuns = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpxelevation",
		Subsystem: "enrich",
		Name:      "provider_runs_total",
		Help:      "Provider invocations by mode and result",
	}, []string{"mode", "result"})

	Fallbacks = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpxelevation",
		Subsystem: "enrich",
		Name:      "fallbacks_total",
		Help:      "Raster fallbacks taken after a provider failure",
	}, []string{"from"})

	PointsEnriched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpxelevation",
		Subsystem: "enrich",
		Name:      "points_total",
		Help:      "Track points that received an elevation",
	}, []string{"mode"})

	// Remote service metrics
	httpRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpxelevation",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Requests to the elevation and geodesy services",
	}, []string{"endpoint", "code"})

	httpRequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gpxelevation",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of requests to the elevation and geodesy services",
		Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"endpoint"})

	// CLI metrics
	Files = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gpxelevation",
		Subsystem: "cli",
		Name:      "files_total",
		Help:      "Input files by outcome",
	}, []string{"result"})
)

// ObserveRequest records one remote call. code is 0 when no response arrived.
func ObserveRequest(endpoint string, code int, d time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	httpRequestsTotal.WithLabelValues(endpoint, label).Inc()
	httpRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// WriteTextfile writes the registry to path in the Prometheus text format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

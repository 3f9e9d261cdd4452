package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog traffic
	CatalogRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshelf_catalog_requests_total",
		Help: "Catalog page requests by provider and outcome.",
	}, []string{"provider", "outcome"}) // outcome: ok, error

	CatalogDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gameshelf_catalog_request_duration_seconds",
		Help:    "Duration of catalog requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	SafetyDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshelf_safety_dropped_total",
		Help: "Catalog items removed by the content safety filter.",
	}, []string{"reason"}) // reason: tag, rating

	// Search sessions
	SessionFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshelf_session_fetches_total",
		Help: "Search session page fetches by result.",
	}, []string{"result"}) // result: loaded, exhausted, failed, stale

	// Library
	LibraryEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gameshelf_library_entries",
		Help: "Number of entries in the personal library.",
	})

	LibraryWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gameshelf_library_writes_total",
		Help: "Library persistence writes by result.",
	}, []string{"result"}) // result: ok, error
)

// RecordCatalogRequest counts one catalog call and observes its duration.
func RecordCatalogRequest(provider string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	CatalogRequests.WithLabelValues(provider, outcome).Inc()
	CatalogDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}

// RecordLibraryWrite counts one persistence write.
func RecordLibraryWrite(err error) {
	if err != nil {
		LibraryWrites.WithLabelValues("error").Inc()
		return
	}
	LibraryWrites.WithLabelValues("ok").Inc()
}

// Handler exposes the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics exposes Prometheus collectors for the resolver service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	resolverCitationsTotal    *prometheus.CounterVec
	resolverRunsTotal         *prometheus.CounterVec
	resolverBreakerTripsTotal prometheus.Counter
	resolverArchiveTotal      *prometheus.CounterVec
	resolverFetchesTotal      *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		resolverCitationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_citations_total",
				Help: "Total citations processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		resolverRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_runs_total",
				Help: "Total resolution runs, labeled by final status.",
			},
			[]string{"status"},
		)

		resolverBreakerTripsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "resolver_breaker_trips_total",
				Help: "Total circuit breaker trips across runs.",
			},
		)

		resolverArchiveTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_archive_submissions_total",
				Help: "Total archive submissions, labeled by result.",
			},
			[]string{"result"},
		)

		resolverFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "resolver_fetches_total",
				Help: "Total outbound fetches, labeled by kind and result.",
			},
			[]string{"kind", "result"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCitation increments the citation outcome counter.
func ObserveCitation(outcome string) {
	if resolverCitationsTotal != nil {
		resolverCitationsTotal.WithLabelValues(outcome).Inc()
	}
}

// ObserveRun increments the run counter for the given status.
func ObserveRun(status string) {
	if resolverRunsTotal != nil {
		resolverRunsTotal.WithLabelValues(status).Inc()
	}
}

// ObserveBreakerTrip increments the breaker trip counter.
func ObserveBreakerTrip() {
	if resolverBreakerTripsTotal != nil {
		resolverBreakerTripsTotal.Inc()
	}
}

// ObserveArchive increments the archive submission counter.
func ObserveArchive(result string) {
	if resolverArchiveTotal != nil {
		resolverArchiveTotal.WithLabelValues(result).Inc()
	}
}

// ObserveFetch increments the outbound fetch counter.
func ObserveFetch(kind, result string) {
	if resolverFetchesTotal != nil {
		resolverFetchesTotal.WithLabelValues(kind, result).Inc()
	}
}

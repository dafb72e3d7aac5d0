// Package metrics exposes the Prometheus collectors for the analysis pipeline
// and the advisory fallback chain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Collector struct {
	AnalysesTotal     prometheus.Counter
	AnalysisDuration  prometheus.Histogram
	ForecastCacheHits prometheus.Counter
	ForecastDegraded  prometheus.Counter

	BackendAttempts   *prometheus.CounterVec
	RetrievalFailures prometheus.Counter
}

func NewCollector(namespace string) *Collector {
	return &Collector{
		AnalysesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of completed analysis requests",
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end duration of an analysis request",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ForecastCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_hits_total",
			Help:      "Forecast requests served from the per-day cache",
		}),
		ForecastDegraded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_degraded_total",
			Help:      "Forecasts that fell back to the flat-mean trajectory",
		}),
		BackendAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisory_backend_attempts_total",
			Help:      "Advisory backend attempts by backend and outcome",
		}, []string{"backend", "outcome"}),
		RetrievalFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_failures_total",
			Help:      "Context retrieval attempts that returned no snippets",
		}),
	}
}

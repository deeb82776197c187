// Package metrics registers the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eatdecider_api_requests_total",
			Help: "HTTP requests by route pattern, method and status.",
		},
		[]string{"route", "method", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eatdecider_api_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"route", "method"},
	)

	CatalogSourceItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eatdecider_catalog_source_items",
			Help: "Items contributed by each catalog source on the last collection.",
		},
		[]string{"source"},
	)

	CatalogSourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eatdecider_catalog_source_failures_total",
			Help: "Catalog source calls that failed or timed out.",
		},
		[]string{"source"},
	)

	CatalogSourceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eatdecider_catalog_source_duration_seconds",
			Help:    "Latency of a single catalog source call.",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 2, 4, 8},
		},
		[]string{"source"},
	)

	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eatdecider_recommendations_total",
			Help: "Recommendations served by strategy and outcome (picks, empty).",
		},
		[]string{"strategy", "outcome"},
	)

	RecommendationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eatdecider_recommendation_cache_hits_total",
			Help: "Recommendations answered from the cache.",
		},
	)

	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eatdecider_feedback_total",
			Help: "Feedback events by outcome.",
		},
		[]string{"outcome"},
	)

	HistoryPersistenceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eatdecider_history_persistence_failures_total",
			Help: "History load or save failures.",
		},
		[]string{"operation"},
	)

	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "eatdecider_event_publish_failures_total",
			Help: "Feedback events that could not be published.",
		},
	)

	// CircuitBreakerState is 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eatdecider_circuit_breaker_state",
			Help: "Circuit breaker state per upstream.",
		},
		[]string{"name"},
	)
)

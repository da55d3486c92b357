package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayRequestsTotal tracks HTTP attempts against the classification service
	GatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argmine_gateway_requests_total",
			Help: "Total number of requests sent to the classification gateway",
		},
		[]string{"endpoint"},
	)

	// GatewayErrorsTotal tracks classified gateway errors
	GatewayErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argmine_gateway_errors_total",
			Help: "Total number of gateway errors by kind",
		},
		[]string{"endpoint", "kind"},
	)

	// GatewayRetriesTotal tracks retried attempts
	GatewayRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argmine_gateway_retries_total",
			Help: "Total number of retried gateway attempts",
		},
		[]string{"endpoint"},
	)

	// GatewayLatency tracks per-attempt latency
	GatewayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argmine_gateway_latency_seconds",
			Help:    "Gateway request latency in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	// OutcomesTotal tracks batch outcomes per strategy
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argmine_outcomes_total",
			Help: "Total number of batch outcomes by kind",
		},
		[]string{"strategy", "kind"},
	)

	// InFlight tracks URLs currently being classified
	InFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "argmine_inflight_requests",
			Help: "Number of URLs currently being classified",
		},
		[]string{"strategy"},
	)

	// SentencesTotal tracks classified sentences per topic
	SentencesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argmine_sentences_total",
			Help: "Total number of classified sentences",
		},
		[]string{"topic", "label"},
	)

	// BatchDuration tracks wall time of each batch
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "argmine_batch_duration_seconds",
			Help:    "Duration of a batch run in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// DBConnectionPoolUsage tracks the percentage of used connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "argmine_db_connection_pool_usage_percent",
			Help: "Percentage of used database connections",
		},
	)
)

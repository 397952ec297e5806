package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConsumerStarts tracks activation attempts per consumer
	ConsumerStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_consumer_starts_total",
			Help: "Total number of consumer activation attempts",
		},
		[]string{"consumer", "status"},
	)

	// EventsTracked tracks events handed to a vendor
	EventsTracked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_tracked_total",
			Help: "Total number of events handed to a vendor",
		},
		[]string{"consumer"},
	)

	// EventsDropped tracks events and updates that never reached the vendor
	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_events_dropped_total",
			Help: "Total number of analytics calls dropped before reaching the vendor",
		},
		[]string{"consumer", "reason"},
	)

	// SessionParameterUpdates tracks user property and user id writes
	SessionParameterUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analytics_session_parameter_updates_total",
			Help: "Total number of session callback parameter updates",
		},
		[]string{"consumer", "operation"},
	)

	// VendorSubmissions tracks vendor transport outcomes
	VendorSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vendor_submissions_total",
			Help: "Total number of submissions sent to the vendor",
		},
		[]string{"vendor", "status"},
	)

	// VendorLatency tracks vendor request latency
	VendorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vendor_request_duration_seconds",
			Help:    "Vendor request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"vendor"},
	)

	// MessagesProcessed tracks forwarder messages by kind and outcome
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forwarder_messages_processed_total",
			Help: "Total number of analytics messages processed by the forwarder",
		},
		[]string{"kind", "status"},
	)

	// DLQCount tracks dead letter queue entries
	DLQCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dlq_entries_total",
			Help: "Total number of entries in dead letter queue",
		},
	)

	// DBLatency tracks database operation latency
	DBLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_operation_duration_seconds",
			Help:    "Database operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// KafkaProduceLatency tracks Kafka produce latency
	KafkaProduceLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kafka_produce_duration_seconds",
			Help:    "Kafka produce latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// KafkaConsumeLatency tracks Kafka consume latency
	KafkaConsumeLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kafka_consume_duration_seconds",
			Help:    "Kafka consume latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

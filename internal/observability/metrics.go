package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	VerifyResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campus_checkin_results_total",
			Help: "Ticket verification outcomes by result kind",
		},
		[]string{"kind"},
	)

	StoreRoundTrip = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campus_store_roundtrip_seconds",
			Help:    "Duration of registration store round-trips",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	StoreRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_store_retries_total",
			Help: "Total retried registration store calls",
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campus_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	ScanRepeats = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_scan_repeats_total",
			Help: "Scans of a payload the same device submitted within the guard TTL",
		},
	)

	EventsArchived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "campus_events_archived_total",
			Help: "Events moved to history by the archive worker",
		},
	)
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Event cache metrics
	EventsCached = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cw_events_cached",
			Help: "Chain events currently held in the dedup cache",
		},
	)

	EventCacheHits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cw_event_cache_hits",
			Help: "Lifetime dedup cache hits",
		},
	)

	EventCacheMisses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cw_event_cache_misses",
			Help: "Lifetime dedup cache misses",
		},
	)

	DuplicateEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cw_duplicate_events_total",
			Help: "Duplicate chain events suppressed",
		},
		[]string{"chain"},
	)

	EventsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cw_events_stored_total",
			Help: "Chain events persisted",
		},
		[]string{"network"},
	)

	// Thread metrics
	ThreadUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cw_thread_updates_total",
			Help: "Thread patch updates by outcome",
		},
		[]string{"outcome"}, // "ok" or "error"
	)

	NotificationJobs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cw_notification_jobs_total",
			Help: "Notification jobs emitted by category",
		},
		[]string{"category"},
	)
)

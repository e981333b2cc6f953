// Package telemetry holds the Prometheus instruments for the sync engine.
// Every error the engine swallows is counted here with a tag naming where
// it came from, so a permanently stale source shows up on /metrics.
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/version"
)

// Fetch results recorded by the scheduler.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultSkipped = "skipped"
	ResultPanic   = "panic"
)

var (
	// Scheduler metrics
	FetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nselfadmin_scheduler_fetch_total",
			Help: "Scheduled fetches by source and result",
		},
		[]string{"source", "result"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nselfadmin_scheduler_fetch_duration_seconds",
			Help:    "Duration of scheduled fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Stats aggregator metrics
	StepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nselfadmin_aggregator_step_failures_total",
			Help: "Aggregator steps that degraded to their zero value",
		},
		[]string{"step"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nselfadmin_aggregator_cache_total",
			Help: "Stats cache lookups by result",
		},
		[]string{"result"},
	)

	// Merge channel metrics
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nselfadmin_realtime_events_total",
			Help: "Push events received by type",
		},
		[]string{"type"},
	)

	RealtimeReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nselfadmin_realtime_reconnects_total",
			Help: "Push stream reconnect attempts",
		},
	)

	RealtimeConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nselfadmin_realtime_connected",
			Help: "1 while the push stream is connected",
		},
	)
)

// RecordFetch counts one scheduler tick outcome.
func RecordFetch(source, result string) {
	FetchTotal.WithLabelValues(source, result).Inc()
}

// RecordStepFailure counts one degraded aggregator step.
func RecordStepFailure(step string) {
	StepFailures.WithLabelValues(step).Inc()
}

// RecordCache counts a cache hit or miss.
func RecordCache(hit bool) {
	if hit {
		CacheLookups.WithLabelValues("hit").Inc()
		return
	}
	CacheLookups.WithLabelValues("miss").Inc()
}

// RecordEvent counts a push event by type.
func RecordEvent(eventType string) {
	RealtimeEvents.WithLabelValues(eventType).Inc()
}

var buildInfoOnce sync.Once

// RegisterBuildInfo exposes nselfadmin_build_info labelled with v. Only the
// first call registers.
func RegisterBuildInfo(v string) {
	buildInfoOnce.Do(func() {
		if v != "" {
			version.Version = v
		}
		prometheus.MustRegister(versioncollector.NewCollector("nselfadmin"))
	})
}

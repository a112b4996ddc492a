// Package metrics exposes prometheus collectors for provider calls, cache and
// rate-limit decisions and the active data mode.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "channel_analytics"

// Outcome labels of ProviderCalls
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	// ProviderCalls counts provider operations by outcome
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_calls_total",
		Help:      "Total number of provider operations",
	}, []string{"provider", "endpoint", "outcome"})

	// ProviderErrors counts failed provider operations by error code
	ProviderErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_errors_total",
		Help:      "Total number of failed provider operations by error code",
	}, []string{"provider", "endpoint", "code"})

	// ProviderCallDuration observes provider operation latency
	ProviderCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_call_duration_seconds",
		Help:      "Duration of provider operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"provider", "endpoint"})

	// CacheHits counts responses served from the cache decorator
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits",
	}, []string{"provider", "endpoint"})

	// CacheMisses counts cache lookups that reached the inner provider
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses",
	}, []string{"provider", "endpoint"})

	// RateLimited counts calls rejected by the token bucket
	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of calls rejected by the rate limiter",
	}, []string{"provider", "endpoint"})

	// ActiveMode is 1 for the active data mode and 0 for the others
	ActiveMode = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_mode",
		Help:      "Active data mode (1 = active)",
	}, []string{"mode"})

	// SyncRuns counts pipeline runs by final status
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sync_runs_total",
		Help:      "Total number of sync runs by status",
	}, []string{"status"})
)

// knownModes are reset to 0 whenever the active mode changes
var knownModes = []string{"fake", "real", "record"}

// SetActiveMode marks mode as the only active one
func SetActiveMode(mode string) {
	for _, m := range knownModes {
		ActiveMode.WithLabelValues(m).Set(0)
	}
	ActiveMode.WithLabelValues(mode).Set(1)
}

// RecordSyncRun increments the run counter for status
func RecordSyncRun(status string) {
	SyncRuns.WithLabelValues(status).Inc()
}

// WriteTextfile writes every registered metric to path in the node exporter
// textfile collector format
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}

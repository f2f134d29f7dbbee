package maelstrom

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all the Prometheus metrics for the PoolSystem.
// Encapsulating them in a struct keeps the main system struct clean and organized.
type Metrics struct {
	// --- Tier 1: Critical System Health & Liveness ---
	LastRefreshUnix *prometheus.GaugeVec
	ErrorsTotal     *prometheus.CounterVec

	// --- Tier 2: Performance & Bottleneck Identification ---
	RefreshDuration *prometheus.HistogramVec

	// --- Tier 3: Data & State Integrity ---
	PoolsInRegistry *prometheus.GaugeVec
	RefreshesTotal  *prometheus.CounterVec
}

// NewMetrics creates and registers all the Prometheus metrics for the system.
// It takes a prometheus.Registerer to allow for flexible registration (e.g., default vs. custom).
func NewMetrics(reg prometheus.Registerer, systemName string) *Metrics {
	return &Metrics{
		LastRefreshUnix: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: systemName,
			Name:      "maelstrom_system_last_refresh_timestamp_seconds",
			Help:      "Unix time of the last successful pool-list refresh.",
		}, []string{}),

		ErrorsTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: systemName,
			Name:      "maelstrom_system_errors_total",
			Help:      "Total number of errors encountered by the system, labeled by error type.",
		}, []string{"type"}),

		RefreshDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: systemName,
			Name:      "maelstrom_system_refresh_duration_seconds",
			Help:      "A histogram of the time it takes to pull and merge one full pool list.",
			Buckets:   prometheus.DefBuckets,
		}, []string{}),

		PoolsInRegistry: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Subsystem: systemName,
			Name:      "maelstrom_system_pools_in_registry_total",
			Help:      "The total number of pools currently being tracked in the system's registry.",
		}, []string{}),

		RefreshesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Subsystem: systemName,
			Name:      "maelstrom_system_refreshes_total",
			Help:      "A counter of completed pool-list refresh cycles, labeled by outcome.",
		}, []string{"outcome"}),
	}
}

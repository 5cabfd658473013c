// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Simulation metrics
	RunsTotal         *prometheus.CounterVec
	RunDuration       prometheus.Histogram
	TrialsSimulated   prometheus.Counter
	AssetsPerRun      prometheus.Histogram
	HorizonDaysPerRun prometheus.Histogram

	// Market data metrics
	FetchesTotal     *prometheus.CounterVec
	FetchLatency     prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	ObservationsUsed prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "portfolio_risk_lab"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "runs_total",
			Help:      "Total number of simulation runs by outcome",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "run_duration_seconds",
			Help:      "End-to-end simulation run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		TrialsSimulated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "trials_simulated_total",
			Help:      "Total number of Monte Carlo trials simulated",
		}),
		AssetsPerRun: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "assets_per_run",
			Help:      "Number of assets per simulation run",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		}),
		HorizonDaysPerRun: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "horizon_days_per_run",
			Help:      "Simulated horizon in trading days per run",
			Buckets:   []float64{21, 63, 126, 252, 504, 1260, 2520},
		}),

		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetches_total",
			Help:      "Total number of price history fetches by outcome",
		}, []string{"status"}),
		FetchLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_latency_seconds",
			Help:      "Price history fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "cache_hits_total",
			Help:      "Total number of bar cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "cache_misses_total",
			Help:      "Total number of bar cache misses",
		}),
		ObservationsUsed: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "observations_used",
			Help:      "Aligned return observations used per run",
			Buckets:   []float64{30, 60, 125, 250, 500, 1000, 2000},
		}),

		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful simulation run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordRun records a completed simulation run.
func RecordRun(status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(status).Inc()
	DefaultMetrics.RunDuration.Observe(durationSeconds)
}

// RecordRunShape records the request shape of a run.
func RecordRunShape(assets, horizonDays, trials int) {
	DefaultMetrics.AssetsPerRun.Observe(float64(assets))
	DefaultMetrics.HorizonDaysPerRun.Observe(float64(horizonDays))
	DefaultMetrics.TrialsSimulated.Add(float64(trials))
}

// RecordFetch records a price history fetch.
func RecordFetch(status string, seconds float64) {
	DefaultMetrics.FetchesTotal.WithLabelValues(status).Inc()
	DefaultMetrics.FetchLatency.Observe(seconds)
}

// RecordCacheHit increments the bar cache hit counter.
func RecordCacheHit() {
	DefaultMetrics.CacheHits.Inc()
}

// RecordCacheMiss increments the bar cache miss counter.
func RecordCacheMiss() {
	DefaultMetrics.CacheMisses.Inc()
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// MarkSuccessfulRun updates the last successful run timestamp.
func MarkSuccessfulRun(unixSeconds int64) {
	DefaultMetrics.LastSuccessfulRun.Set(float64(unixSeconds))
}

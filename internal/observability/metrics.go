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
	// Run metrics
	RunsTotal    *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	LastRunEpoch prometheus.Gauge

	// Snapshot metrics
	VehiclesSeen    prometheus.Gauge
	VehiclesNew     prometheus.Counter
	VehiclesChanged prometheus.Counter
	VehiclesSold    prometheus.Counter
	VehiclesSkipped prometheus.Counter
	RunErrors       prometheus.Counter

	// Persistence metrics
	BatchApplyDuration prometheus.Histogram
	ArchivedRows       prometheus.Counter

	// Scoring metrics
	CompositeScore prometheus.Histogram
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lotwatch"
	}

	return &Metrics{
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of snapshot runs by status",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of one full snapshot run",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		LastRunEpoch: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the last completed run",
		}),
		VehiclesSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "vehicles_seen",
			Help:      "Number of vehicles in the last snapshot",
		}),
		VehiclesNew: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "vehicles_new_total",
			Help:      "Total number of vehicles seen for the first time",
		}),
		VehiclesChanged: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "vehicles_changed_total",
			Help:      "Total number of vehicle attribute changes versioned",
		}),
		VehiclesSold: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "vehicles_sold_total",
			Help:      "Total number of vehicles marked sold",
		}),
		VehiclesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snapshot",
			Name:      "vehicles_skipped_total",
			Help:      "Total number of malformed snapshot rows excluded",
		}),
		RunErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_errors_total",
			Help:      "Total number of per-vehicle errors across runs",
		}),
		BatchApplyDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "batch_apply_duration_seconds",
			Help:      "Duration of applying one merge batch",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ArchivedRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archived_rows_total",
			Help:      "Total number of raw snapshot rows archived",
		}),
		CompositeScore: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scoring",
			Name:      "composite_score",
			Help:      "Distribution of composite scores across runs",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
	}
}

// ObserveRun records the outcome of one snapshot run.
func (m *Metrics) ObserveRun(seen, added, changed, sold, skipped, errs int, durationSeconds float64) {
	status := "ok"
	if errs > 0 {
		status = "partial"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(durationSeconds)
	m.VehiclesSeen.Set(float64(seen))
	m.VehiclesNew.Add(float64(added))
	m.VehiclesChanged.Add(float64(changed))
	m.VehiclesSold.Add(float64(sold))
	m.VehiclesSkipped.Add(float64(skipped))
	m.RunErrors.Add(float64(errs))
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Metrics holds the Prometheus counters and histograms for a dataset run.
type Metrics struct {
	ScansProcessed prometheus.Counter
	ScansFailed    prometheus.Counter
	CellsDetected  prometheus.Counter
	CellsEmitted   prometheus.Counter
	CellsDropped   *prometheus.CounterVec // label: stage={boundary,exclusion,area}
	ReportsLoaded  prometheus.Gauge

	ScanDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates all run metrics on a dedicated registry so they can be
// pushed to a Pushgateway at the end of the batch.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.registry.MustRegister(
		m.ScansProcessed,
		m.ScansFailed,
		m.CellsDetected,
		m.CellsEmitted,
		m.CellsDropped,
		m.ReportsLoaded,
		m.ScanDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ScansProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_cell_etl",
			Name:      "scans_processed_total",
			Help:      "Total radar volume scans processed successfully.",
		}),
		ScansFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_cell_etl",
			Name:      "scans_failed_total",
			Help:      "Total radar volume scans skipped due to errors.",
		}),
		CellsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_cell_etl",
			Name:      "cells_detected_total",
			Help:      "Total storm cells returned by the tracker.",
		}),
		CellsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storm_cell_etl",
			Name:      "cells_emitted_total",
			Help:      "Total storm cells written to the output dataset.",
		}),
		CellsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storm_cell_etl",
			Name:      "cells_dropped_total",
			Help:      "Storm cells dropped by filter stage.",
		}, []string{"stage"}),
		ReportsLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "storm_cell_etl",
			Name:      "reports_loaded",
			Help:      "Ground storm reports loaded into the report index.",
		}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storm_cell_etl",
			Name:      "scan_processing_duration_seconds",
			Help:      "Duration of a complete per-scan grid-track-match cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		registry: prometheus.NewRegistry(),
	}
}

// Push sends the run's metrics to a Prometheus Pushgateway. Batch jobs push
// once at the end of a run instead of exposing a scrape endpoint.
func (m *Metrics) Push(url string) error {
	if err := push.New(url, "storm_cell_etl").Gatherer(m.registry).Push(); err != nil {
		return fmt.Errorf("pushing metrics to %s: %w", url, err)
	}
	return nil
}

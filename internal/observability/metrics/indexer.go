package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventops/os-indexer/internal/core/domain"
)

// IndexerMetrics instruments scan passes. It satisfies the scanner's
// observer port so passes are measured without the scanner knowing
// about Prometheus.
type IndexerMetrics struct {
	registry *prometheus.Registry

	scansTotal   *prometheus.CounterVec
	scanDuration prometheus.Histogram
	scanInFlight prometheus.Gauge
	filesTotal   *prometheus.CounterVec
}

func NewIndexerMetrics(service string) *IndexerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	scansTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "osi",
			Subsystem:   "indexer",
			Name:        "scans_total",
			Help:        "Total scan passes by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"status"},
	)
	scanDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "osi",
			Subsystem:   "indexer",
			Name:        "scan_duration_seconds",
			Help:        "Scan pass duration in seconds.",
			Buckets:     []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
	)
	scanInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   "osi",
			Subsystem:   "indexer",
			Name:        "scan_in_flight",
			Help:        "Whether a scan pass is currently running.",
			ConstLabels: constLabels,
		},
	)
	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "osi",
			Subsystem:   "indexer",
			Name:        "files_total",
			Help:        "Files seen by scan passes, by disposition.",
			ConstLabels: constLabels,
		},
		[]string{"disposition"},
	)

	registry.MustRegister(scansTotal, scanDuration, scanInFlight, filesTotal)

	return &IndexerMetrics{
		registry:     registry,
		scansTotal:   scansTotal,
		scanDuration: scanDuration,
		scanInFlight: scanInFlight,
		filesTotal:   filesTotal,
	}
}

func (m *IndexerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IndexerMetrics) PassStarted() {
	m.scanInFlight.Set(1)
}

func (m *IndexerMetrics) PassFinished(summary domain.ScanSummary, duration time.Duration, err error) {
	m.scanInFlight.Set(0)
	m.scanDuration.Observe(duration.Seconds())

	status := "ok"
	if err != nil {
		status = "error"
	}
	m.scansTotal.WithLabelValues(status).Inc()

	m.filesTotal.WithLabelValues("indexed").Add(float64(summary.NewFiles))
	m.filesTotal.WithLabelValues("already_indexed").Add(float64(summary.AlreadyIndexed))
	m.filesTotal.WithLabelValues("errors").Add(float64(summary.Errors))
}

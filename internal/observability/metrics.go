// Package observability exposes scan metrics through Prometheus.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for the scan pipeline. All methods are safe on
// a nil receiver so callers can wire metrics in optionally.
type Metrics struct {
	pagesFetched     prometheus.Counter
	itemsScanned     prometheus.Counter
	itemsFlagged     prometheus.Counter
	itemsSkipped     *prometheus.CounterVec
	classifierErrors prometheus.Counter
	scanDuration     prometheus.Histogram
}

// NewMetrics creates and registers the scan collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ugcscan",
			Name:      "catalog_pages_fetched_total",
			Help:      "Catalog search pages fetched.",
		}),
		itemsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ugcscan",
			Name:      "items_scanned_total",
			Help:      "Catalog items processed by the scanner.",
		}),
		itemsFlagged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ugcscan",
			Name:      "items_flagged_total",
			Help:      "Items written to the flag log.",
		}),
		itemsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ugcscan",
			Name:      "items_skipped_total",
			Help:      "Items skipped before classification, by reason.",
		}, []string{"reason"}),
		classifierErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ugcscan",
			Name:      "classifier_errors_total",
			Help:      "Inference calls that returned an error.",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ugcscan",
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of complete scan runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
	}
	reg.MustRegister(
		m.pagesFetched,
		m.itemsScanned,
		m.itemsFlagged,
		m.itemsSkipped,
		m.classifierErrors,
		m.scanDuration,
	)
	return m
}

func (m *Metrics) PageFetched() {
	if m != nil {
		m.pagesFetched.Inc()
	}
}

func (m *Metrics) ItemScanned() {
	if m != nil {
		m.itemsScanned.Inc()
	}
}

func (m *Metrics) ItemFlagged() {
	if m != nil {
		m.itemsFlagged.Inc()
	}
}

func (m *Metrics) ItemSkipped(reason string) {
	if m != nil {
		m.itemsSkipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) ClassifierError() {
	if m != nil {
		m.classifierErrors.Inc()
	}
}

func (m *Metrics) ScanCompleted(d time.Duration) {
	if m != nil {
		m.scanDuration.Observe(d.Seconds())
	}
}

// Handler returns the HTTP handler serving the registry at /metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}

package export

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors of the exporter. A nil *Metrics records nothing.
type Metrics struct {
	exports  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	size     *prometheus.HistogramVec
}

// NewMetrics registers the export collectors with `reg`.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "masomo",
				Name:      "exports_total",
				Help:      "Total number of report exports",
			},
			[]string{"format", "structure", "status"},
		),

		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "masomo",
				Name:      "export_duration_seconds",
				Help:      "Time taken to render a report export",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"format"},
		),

		size: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "masomo",
				Name:      "export_bytes",
				Help:      "Size of rendered report exports",
				Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
			},
			[]string{"format"},
		),
	}
}

func (m *Metrics) observe(format Format, structure string, took time.Duration, size int, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.exports.WithLabelValues(string(format), structure, status).Inc()
	m.duration.WithLabelValues(string(format)).Observe(took.Seconds())
	if err == nil {
		m.size.WithLabelValues(string(format)).Observe(float64(size))
	}
}

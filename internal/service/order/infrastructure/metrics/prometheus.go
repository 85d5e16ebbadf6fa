package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements port.OrderMetrics.
type PrometheusRecorder struct {
	placements *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	r := &PrometheusRecorder{
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "orders",
			Name:      "placements_total",
			Help:      "Order placement attempts by outcome.",
		}, []string{"outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "orders",
			Name:      "placement_duration_seconds",
			Help:      "Latency of order placement attempts by outcome.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"outcome"}),
	}
	reg.MustRegister(r.placements, r.latency)
	return r
}

func (r *PrometheusRecorder) ObservePlacement(outcome string, elapsed time.Duration) {
	r.placements.WithLabelValues(outcome).Inc()
	r.latency.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

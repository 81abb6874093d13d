// Package metrics exposes Prometheus counters for generations and exports.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "giaoan"

var (
	generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Lesson plan generations by template and outcome code.",
	}, []string{"template", "outcome"})

	generationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Time from submission to parsed plan.",
		Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 90, 120, 180, 300},
	}, []string{"template"})

	imagesPerRequest = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "images_per_request",
		Help:      "Textbook photos attached to one generation.",
		Buckets:   prometheus.LinearBuckets(1, 1, 10),
	})

	exports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "exports_total",
		Help:      "Rendered exports by format.",
	}, []string{"format"})
)

// OutcomeOK labels a generation that produced a plan.
const OutcomeOK = "OK"

func ObserveGeneration(template, outcome string, took time.Duration, images int) {
	generations.WithLabelValues(template, outcome).Inc()
	if outcome == OutcomeOK {
		generationSeconds.WithLabelValues(template).Observe(took.Seconds())
	}
	imagesPerRequest.Observe(float64(images))
}

func ObserveExport(format string) {
	exports.WithLabelValues(format).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	checkpointTotal    *prometheus.CounterVec
	checkpointDuration *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	checkpointTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpack",
			Subsystem: "worker",
			Name:      "checkpoint_total",
			Help:      "Versioned checkpoint snapshots written per completed upload, by status.",
		},
		[]string{"service", "status"},
	)
	checkpointDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docpack",
			Subsystem: "worker",
			Name:      "checkpoint_duration_seconds",
			Help:      "Checkpoint write duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)

	registry.MustRegister(checkpointTotal, checkpointDuration)

	return &WorkerMetrics{
		registry:           registry,
		checkpointTotal:    checkpointTotal,
		checkpointDuration: checkpointDuration,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) FinishCheckpoint(service string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.checkpointTotal.WithLabelValues(service, status).Inc()
	m.checkpointDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

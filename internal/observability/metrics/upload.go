package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type UploadMetrics struct {
	chunksSent    *prometheus.CounterVec
	retryTotal    *prometheus.CounterVec
	autosaveTotal *prometheus.CounterVec
}

// NewUploadMetrics registers the transfer-side collectors on an existing
// registry so one /metrics endpoint serves both HTTP and upload series.
func NewUploadMetrics(registry *prometheus.Registry) *UploadMetrics {
	chunksSent := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpack",
			Subsystem: "upload",
			Name:      "chunks_sent_total",
			Help:      "Total chunks transferred to the backend by document type.",
		},
		[]string{"document_type"},
	)
	retryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpack",
			Subsystem: "upload",
			Name:      "retries_total",
			Help:      "Automatic retry attempts by operation.",
		},
		[]string{"operation"},
	)
	autosaveTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docpack",
			Subsystem: "persistence",
			Name:      "autosave_total",
			Help:      "Autosave snapshot writes by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(chunksSent, retryTotal, autosaveTotal)

	return &UploadMetrics{
		chunksSent:    chunksSent,
		retryTotal:    retryTotal,
		autosaveTotal: autosaveTotal,
	}
}

func (m *UploadMetrics) ChunkCounter() *prometheus.CounterVec {
	return m.chunksSent
}

func (m *UploadMetrics) RetryCounter() *prometheus.CounterVec {
	return m.retryTotal
}

func (m *UploadMetrics) ObserveAutosave(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.autosaveTotal.WithLabelValues(outcome).Inc()
}

package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sys/unix"

	"github.com/marmos91/cephtool/pkg/metrics"
	"github.com/marmos91/cephtool/pkg/remotefs"
)

// sessionMetrics is the Prometheus implementation of metrics.SessionMetrics.
type sessionMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	bytesTransferred  *prometheus.CounterVec
	shortWrites       prometheus.Counter
	bufferSize        prometheus.Histogram
}

// NewSessionMetrics creates a SessionMetrics registered on the global registry.
//
// Returns a no-op implementation if metrics are not enabled (InitRegistry not called).
func NewSessionMetrics() metrics.SessionMetrics {
	if !metrics.IsEnabled() {
		return metrics.NewNoopSessionMetrics()
	}
	return NewSessionMetricsWith(metrics.GetRegistry())
}

// NewSessionMetricsWith creates a SessionMetrics registered on reg.
func NewSessionMetricsWith(reg prometheus.Registerer) metrics.SessionMetrics {
	return &sessionMetrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cephtool_operations_total",
				Help: "Total number of session operations by operation, status and errno",
			},
			[]string{"operation", "status", "errno"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "cephtool_operation_duration_seconds",
				Help: "Duration of session operations in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.01,  // 10ms
					0.1,   // 100ms
					1.0,   // 1s
					10.0,  // 10s
					60.0,  // 1m
				},
			},
			[]string{"operation"},
		),
		bytesTransferred: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "cephtool_bytes_transferred_total",
				Help: "Total bytes transferred to and from the remote filesystem",
			},
			[]string{"direction"}, // read or write
		),
		shortWrites: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "cephtool_short_writes_total",
				Help: "Total number of short writes retried during chunked copies",
			},
		),
		bufferSize: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cephtool_name_buffer_grow_bytes",
				Help:    "Directory name buffer sizes reached after ERANGE retries",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 6), // 1KiB .. 1MiB
			},
		),
	}
}

func (m *sessionMetrics) RecordOperation(op string, duration time.Duration, err error) {
	status, errno := "success", ""
	if err != nil {
		status = "error"
		errno = unix.ErrnoName(remotefs.ErrnoOf(err))
	}
	m.operationsTotal.WithLabelValues(op, status, errno).Inc()
	m.operationDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *sessionMetrics) RecordBytesTransferred(direction string, bytes int64) {
	m.bytesTransferred.WithLabelValues(direction).Add(float64(bytes))
}

func (m *sessionMetrics) RecordShortWrite() {
	m.shortWrites.Inc()
}

func (m *sessionMetrics) RecordBufferGrow(size int) {
	m.bufferSize.Observe(float64(size))
}

// Package metrics exports allocation outcomes to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dorm"

// Recorder counts engine operations by outcome code and times them.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	dropped    prometheus.Counter
}

// NewRecorder registers the allocation collectors, plus the Go and process
// collectors, on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "allocation",
			Name:      "operations_total",
			Help:      "Allocation operations by operation and result code.",
		}, []string{"operation", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "allocation",
			Name:      "operation_duration_seconds",
			Help:      "Time spent in allocation operations, including waiting for the room lock.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"operation"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notification",
			Name:      "dropped_events_total",
			Help:      "Room events dropped because the notification queue was full.",
		}),
	}
	r.registry.MustRegister(
		r.operations,
		r.duration,
		r.dropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveOperation records one finished operation.
func (r *Recorder) ObserveOperation(op, code string, elapsed time.Duration) {
	r.operations.WithLabelValues(op, code).Inc()
	r.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// DroppedEvent counts a notification that never reached the queue.
func (r *Recorder) DroppedEvent() {
	r.dropped.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

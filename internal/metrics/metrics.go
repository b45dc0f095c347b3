package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the supervisor's Prometheus instrumentation. A private
// registry keeps tests with multiple supervisors from colliding on the
// default one.
type Metrics struct {
	registry *prometheus.Registry

	Submissions    prometheus.Counter
	Completed      prometheus.Counter
	Failed         prometheus.Counter
	Aborted        prometheus.Counter
	SpawnFailures  prometheus.Counter
	StreamChunks   prometheus.Counter
	QueueLength    prometheus.Gauge
	startTime      time.Time
}

// New creates and registers the supervisor metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Submissions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowtap_submissions_total",
			Help: "Total cell submissions accepted by the supervisor",
		}),
		Completed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowtap_workers_completed_total",
			Help: "Workers that reported a completed terminal event",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowtap_workers_failed_total",
			Help: "Workers that reported a failed terminal event",
		}),
		Aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowtap_cells_aborted_total",
			Help: "Aborted notifications sent, including idempotent no-op cancels",
		}),
		SpawnFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowtap_worker_spawn_failures_total",
			Help: "Promotions that failed because the worker process could not be spawned",
		}),
		StreamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flowtap_stream_chunks_total",
			Help: "Output chunks relayed from workers on the stream channel",
		}),
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flowtap_queue_length",
			Help: "Entries currently in the submission queue",
		}),
		startTime: time.Now(),
	}

	m.registry.MustRegister(
		m.Submissions, m.Completed, m.Failed, m.Aborted,
		m.SpawnFailures, m.StreamChunks, m.QueueLength,
	)
	return m
}

// ServeHTTP exposes the registry in Prometheus text format at /metrics
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	fmt.Fprintf(w, "# HELP flowtap_uptime_seconds Supervisor uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE flowtap_uptime_seconds gauge\n")
	fmt.Fprintf(w, "flowtap_uptime_seconds %.0f\n\n", time.Since(m.startTime).Seconds())

	families, err := m.registry.Gather()
	if err != nil {
		http.Error(w, fmt.Sprintf("error gathering metrics: %v", err), http.StatusInternalServerError)
		return
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return
		}
	}
}

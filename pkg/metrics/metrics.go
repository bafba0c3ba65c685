package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job lifecycle metrics
	JobsSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finorch_jobs_submitted_total",
			Help: "Total number of jobs submitted by backend",
		},
		[]string{"backend"},
	)

	JobsCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finorch_jobs_completed_total",
			Help: "Total number of jobs reaching a terminal state by backend and status",
		},
		[]string{"backend", "status"},
	)

	JobsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "finorch_jobs_active",
			Help: "Number of jobs currently not in a terminal state, by status",
		},
		[]string{"status"},
	)

	JobSubmitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finorch_job_submit_duration_seconds",
			Help:    "Time taken for a backend adapter to submit a job",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	JobRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finorch_job_run_duration_seconds",
			Help:    "Wall-clock time from RUNNING to a terminal state, by backend",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 3600, 14400, 86400},
		},
		[]string{"backend"},
	)

	// RPC metrics, shared by the client daemon and the wrapper's endpoint
	RPCCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finorch_rpc_calls_total",
			Help: "Total number of RPC calls served, by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	RPCCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finorch_rpc_call_duration_seconds",
			Help:    "RPC call duration in seconds, by method",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Transport metrics
	SSHReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finorch_ssh_reconnects_total",
			Help: "Total number of SSH transport (re)connection attempts, by outcome",
		},
		[]string{"outcome"},
	)

	ClientSpawnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "finorch_client_spawns_total",
			Help: "Total number of times a client process was bootstrapped (fresh, not reattached)",
		},
	)
)

func init() {
	prometheus.MustRegister(JobsSubmittedTotal)
	prometheus.MustRegister(JobsCompletedTotal)
	prometheus.MustRegister(JobsActive)
	prometheus.MustRegister(JobSubmitDuration)
	prometheus.MustRegister(JobRunDuration)
	prometheus.MustRegister(RPCCallsTotal)
	prometheus.MustRegister(RPCCallDuration)
	prometheus.MustRegister(SSHReconnectsTotal)
	prometheus.MustRegister(ClientSpawnsTotal)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

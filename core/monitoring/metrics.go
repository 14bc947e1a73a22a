package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector exposes job lifecycle counters and tick timings as
// Prometheus metrics. It satisfies simulator.Recorder.
type Collector struct {
	registry *prometheus.Registry

	jobsStarted   prometheus.Counter
	jobsCompleted prometheus.Counter
	jobsCanceled  prometheus.Counter
	jobsFailed    prometheus.Counter
	jobsRunning   prometheus.Gauge
	tickDuration  prometheus.Histogram
}

// NewCollector creates a collector with its own Prometheus registry so
// multiple instances can coexist in tests.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlstudio_jobs_started_total",
			Help: "Total number of training jobs started.",
		}),
		jobsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlstudio_jobs_completed_total",
			Help: "Total number of training jobs that ran to completion.",
		}),
		jobsCanceled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlstudio_jobs_canceled_total",
			Help: "Total number of training jobs canceled by a request.",
		}),
		jobsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mlstudio_jobs_failed_total",
			Help: "Total number of training jobs that ended in failure.",
		}),
		jobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mlstudio_jobs_running",
			Help: "Number of training jobs with a live simulation.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mlstudio_tick_duration_seconds",
			Help:    "Time spent computing and persisting one simulation step.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	c.registry.MustRegister(
		c.jobsStarted,
		c.jobsCompleted,
		c.jobsCanceled,
		c.jobsFailed,
		c.jobsRunning,
		c.tickDuration,
	)
	return c
}

// JobStarted records a queued job transitioning to running.
func (c *Collector) JobStarted() {
	c.jobsStarted.Inc()
	c.jobsRunning.Inc()
}

// JobCompleted records a natural completion.
func (c *Collector) JobCompleted() {
	c.jobsCompleted.Inc()
	c.jobsRunning.Dec()
}

// JobCanceled records an external cancellation.
func (c *Collector) JobCanceled() {
	c.jobsCanceled.Inc()
	c.jobsRunning.Dec()
}

// JobFailed records an internal fault terminating a job.
func (c *Collector) JobFailed() {
	c.jobsFailed.Inc()
	c.jobsRunning.Dec()
}

// TickObserved records the duration of one simulation step.
func (c *Collector) TickObserved(d time.Duration) {
	c.tickDuration.Observe(d.Seconds())
}

// Handler returns the HTTP handler serving the /metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

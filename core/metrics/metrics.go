// Package metrics counts what the shell does to the process table: processes
// launched, pipes created, signals forwarded and jobs tracked.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the shell's prometheus metrics on a private registry so
// several shells (or tests) in one process never collide.
type Collector struct {
	registry *prometheus.Registry

	processesLaunched prometheus.Counter
	pipesCreated      prometheus.Counter
	launchFailures    *prometheus.CounterVec
	signalsForwarded  *prometheus.CounterVec
	jobs              prometheus.Gauge
}

// NewCollector creates and registers the shell metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		processesLaunched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nyush_processes_launched_total",
			Help: "Total number of pipeline stages started",
		}),
		pipesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "nyush_pipes_created_total",
			Help: "Total number of pipes connecting pipeline stages",
		}),
		launchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nyush_launch_failures_total",
			Help: "Pipeline stages that could not be started, by reason",
		}, []string{"reason"}),
		signalsForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nyush_signals_forwarded_total",
			Help: "Interactive signals relayed to the foreground process group",
		}, []string{"signal"}),
		jobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nyush_jobs",
			Help: "Current number of background or stopped jobs",
		}),
	}

	c.registry.MustRegister(
		c.processesLaunched,
		c.pipesCreated,
		c.launchFailures,
		c.signalsForwarded,
		c.jobs,
	)

	return c
}

// Registry exposes the registry the metrics live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) RecordProcessLaunched() {
	if c == nil {
		return
	}
	c.processesLaunched.Inc()
}

func (c *Collector) RecordPipeCreated() {
	if c == nil {
		return
	}
	c.pipesCreated.Inc()
}

// RecordLaunchFailure counts a stage that did not start; reason is a short
// label such as "invalid program".
func (c *Collector) RecordLaunchFailure(reason string) {
	if c == nil {
		return
	}
	c.launchFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) RecordSignalForwarded(signal string) {
	if c == nil {
		return
	}
	c.signalsForwarded.WithLabelValues(signal).Inc()
}

// SetJobs updates the job table size. Like the other recorders it's a no-op
// on a nil Collector.
func (c *Collector) SetJobs(n int) {
	if c == nil {
		return
	}
	c.jobs.Set(float64(n))
}

// WriteTextfile writes every metric to path in the text exposition format,
// atomically, for the node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

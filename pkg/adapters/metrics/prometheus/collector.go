package prometheus

import (
	"time"

	"github.com/aescanero/waveorch/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	runsSubmitted     *prometheus.CounterVec
	runsCompleted     *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	activeRuns        prometheus.Gauge
	wavesExecuted     *prometheus.CounterVec
	waveDuration      *prometheus.HistogramVec
	wavesSkipped      *prometheus.CounterVec
	laneWaitTime      *prometheus.HistogramVec
	laneInFlight      *prometheus.GaugeVec
	eventsDropped     prometheus.Counter
	workerPoolIdle    prometheus.Gauge
	workerPoolBusy    prometheus.Gauge
	workerPoolStopped prometheus.Gauge
}

var _ ports.MetricsCollector = (*Collector)(nil)

// NewCollector creates a collector registered with the default registerer
func NewCollector() *Collector {
	return NewCollectorWithRegisterer(prometheus.DefaultRegisterer)
}

// NewCollectorWithRegisterer creates a collector registered with reg
func NewCollectorWithRegisterer(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		runsSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waveorch_runs_submitted_total",
				Help: "Total number of runs submitted",
			},
			[]string{"status"},
		),
		runsCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waveorch_runs_completed_total",
				Help: "Total number of runs finished, by final status",
			},
			[]string{"status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waveorch_run_duration_seconds",
				Help:    "Run duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		activeRuns: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "waveorch_active_runs",
				Help: "Number of runs pending or running",
			},
		),
		wavesExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waveorch_waves_executed_total",
				Help: "Total number of wave executions",
			},
			[]string{"wave", "status"},
		),
		waveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waveorch_wave_duration_seconds",
				Help:    "Wave execution duration in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"wave"},
		),
		wavesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waveorch_waves_skipped_total",
				Help: "Total number of skipped waves",
			},
			[]string{"wave", "reason"},
		),
		laneWaitTime: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "waveorch_lane_wait_seconds",
				Help:    "Time spent waiting for a lane slot",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"lane"},
		),
		laneInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "waveorch_lane_in_flight",
				Help: "Waves currently holding a lane slot",
			},
			[]string{"lane"},
		),
		eventsDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "waveorch_events_dropped_total",
				Help: "Signal events dropped because the dispatch buffer was full",
			},
		),
		workerPoolIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "waveorch_worker_pool_idle",
				Help: "Number of idle workers",
			},
		),
		workerPoolBusy: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "waveorch_worker_pool_busy",
				Help: "Number of busy workers",
			},
		),
		workerPoolStopped: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "waveorch_worker_pool_stopped",
				Help: "Number of stopped workers",
			},
		),
	}
}

// RecordRunSubmitted records a run submission
func (c *Collector) RecordRunSubmitted(status string) {
	c.runsSubmitted.WithLabelValues(status).Inc()
}

// RecordRunCompleted records a run reaching a final status
func (c *Collector) RecordRunCompleted(status string, duration time.Duration) {
	c.runsCompleted.WithLabelValues(status).Inc()
	c.runDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// SetActiveRuns sets the number of runs in flight
func (c *Collector) SetActiveRuns(count int) {
	c.activeRuns.Set(float64(count))
}

// RecordWaveExecuted records a wave execution
func (c *Collector) RecordWaveExecuted(wave, status string, duration time.Duration) {
	c.wavesExecuted.WithLabelValues(wave, status).Inc()
	c.waveDuration.WithLabelValues(wave).Observe(duration.Seconds())
}

// RecordWaveSkipped records a skipped wave
func (c *Collector) RecordWaveSkipped(wave, reason string) {
	c.wavesSkipped.WithLabelValues(wave, reason).Inc()
}

// ObserveLaneWait records how long a wave waited for its lane
func (c *Collector) ObserveLaneWait(lane string, duration time.Duration) {
	c.laneWaitTime.WithLabelValues(lane).Observe(duration.Seconds())
}

// SetLaneInFlight sets the number of slots held in a lane
func (c *Collector) SetLaneInFlight(lane string, count int) {
	c.laneInFlight.WithLabelValues(lane).Set(float64(count))
}

// RecordEventDropped counts a dropped signal event
func (c *Collector) RecordEventDropped() {
	c.eventsDropped.Inc()
}

// RecordWorkerPoolStatus records worker pool status
func (c *Collector) RecordWorkerPoolStatus(idle, busy, stopped int) {
	c.workerPoolIdle.Set(float64(idle))
	c.workerPoolBusy.Set(float64(busy))
	c.workerPoolStopped.Set(float64(stopped))
}

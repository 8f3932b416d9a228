// Package noop provides a MetricsCollector that discards everything.
package noop

import "time"

// Collector discards all metrics
type Collector struct{}

// NewCollector creates a no-op collector
func NewCollector() *Collector { return &Collector{} }

func (Collector) RecordRunSubmitted(string) {}
func (Collector) RecordRunCompleted(string, time.Duration) {}
func (Collector) SetActiveRuns(int) {}
func (Collector) RecordWaveExecuted(string, string, time.Duration) {}
func (Collector) RecordWaveSkipped(string, string) {}
func (Collector) ObserveLaneWait(string, time.Duration) {}
func (Collector) SetLaneInFlight(string, int) {}
func (Collector) RecordEventDropped() {}
func (Collector) RecordWorkerPoolStatus(int, int, int) {}

package orchestrator

import (
	"context"
	"fmt"
	"sync"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"go.uber.org/zap"
)

// Dispatcher delivers signal events to publishers from a single goroutine.
// Dispatch never blocks: when the buffer is full the event is dropped.
type Dispatcher struct {
	publishers []ports.EventPublisher
	metrics    ports.MetricsCollector
	logger     *zap.Logger

	events chan domain.SignalEvent
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a dispatcher and starts its delivery goroutine
func NewDispatcher(bufferSize int, metrics ports.MetricsCollector, logger *zap.Logger, publishers ...ports.EventPublisher) *Dispatcher {
	if bufferSize < 1 {
		bufferSize = 1
	}
	d := &Dispatcher{
		publishers: publishers,
		metrics:    metrics,
		logger:     logger,
		events:     make(chan domain.SignalEvent, bufferSize),
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

// Dispatch queues an event for delivery. It reports false when the event
// was dropped because the buffer is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(event domain.SignalEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.events <- event:
		return true
	default:
		d.metrics.RecordEventDropped()
		d.logger.Warn("event buffer full, dropping event",
			zap.String("run_id", event.RunID),
			zap.String("key", event.Key))
		return false
	}
}

// Close stops accepting events and waits for queued ones to be delivered
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.events)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher drain: %w", ctx.Err())
	}
}

// run delivers queued events until the channel is closed
func (d *Dispatcher) run() {
	defer close(d.done)

	for event := range d.events {
		for _, p := range d.publishers {
			if err := p.Publish(context.Background(), event); err != nil {
				d.logger.Error("failed to publish signal event",
					zap.String("run_id", event.RunID),
					zap.String("key", event.Key),
					zap.Error(err))
			}
		}
	}
}

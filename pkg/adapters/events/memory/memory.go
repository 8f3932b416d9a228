package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"go.uber.org/zap"
)

// ErrBusClosed is returned by Subscribe after Close
var ErrBusClosed = errors.New("event bus closed")

// DefaultSubscriberBuffer is the per-subscriber channel size used when none is given
const DefaultSubscriberBuffer = 256

// InMemoryEventBus fans signal events out to in-process subscribers.
// Each subscriber owns a bounded channel; events are dropped for a
// subscriber whose channel is full.
type InMemoryEventBus struct {
	bufferSize int
	logger     *zap.Logger

	mu          sync.RWMutex
	subscribers map[int]*subscriber
	nextID      int
	closed      bool
}

type subscriber struct {
	events chan domain.SignalEvent
	done   chan struct{}
}

var _ ports.EventBus = (*InMemoryEventBus)(nil)

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(bufferSize int, logger *zap.Logger) *InMemoryEventBus {
	if bufferSize < 1 {
		bufferSize = DefaultSubscriberBuffer
	}
	return &InMemoryEventBus{
		bufferSize:  bufferSize,
		logger:      logger,
		subscribers: make(map[int]*subscriber),
	}
}

// Publish delivers an event to every subscriber without blocking
func (e *InMemoryEventBus) Publish(ctx context.Context, event domain.SignalEvent) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for id, sub := range e.subscribers {
		select {
		case sub.events <- event:
		default:
			e.logger.Warn("subscriber channel full, dropping event",
				zap.Int("subscriber", id),
				zap.String("run_id", event.RunID),
				zap.String("key", event.Key))
		}
	}
	return nil
}

// Subscribe registers handler until ctx is done. Handler errors are logged.
func (e *InMemoryEventBus) Subscribe(ctx context.Context, handler ports.EventHandler) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrBusClosed
	}
	id := e.nextID
	e.nextID++
	sub := &subscriber{
		events: make(chan domain.SignalEvent, e.bufferSize),
		done:   make(chan struct{}),
	}
	e.subscribers[id] = sub
	e.mu.Unlock()

	go func() {
		defer e.unsubscribe(id)
		for {
			select {
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			case event := <-sub.events:
				if err := handler(ctx, event); err != nil {
					e.logger.Debug("event handler error",
						zap.Int("subscriber", id),
						zap.Error(err))
				}
			}
		}
	}()

	return nil
}

// Subscribers returns the number of active subscriptions
func (e *InMemoryEventBus) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers)
}

// Close stops every subscription
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	for id, sub := range e.subscribers {
		close(sub.done)
		delete(e.subscribers, id)
	}
	return nil
}

// unsubscribe removes a subscriber
func (e *InMemoryEventBus) unsubscribe(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.subscribers, id)
}

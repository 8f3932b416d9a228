package lanes

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Acquire once the limiter has been torn down
var ErrClosed = errors.New("lane limiter closed")

// LaneStats describes the state of one lane
type LaneStats struct {
	Capacity int `json:"capacity"`
	InFlight int `json:"in_flight"`
}

// lane is a counting limiter for one lane name
type lane struct {
	sem      *semaphore.Weighted
	capacity int
	inFlight int
}

// Limiter bounds concurrent execution per lane name. Lanes are created on
// first reference and shared by every caller using the same name.
type Limiter struct {
	defaultConcurrency int
	metrics            ports.MetricsCollector
	logger             *zap.Logger

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
}

// NewLimiter creates a limiter. defaultConcurrency applies to lanes
// referenced without a positive maxConcurrency.
func NewLimiter(defaultConcurrency int, metrics ports.MetricsCollector, logger *zap.Logger) *Limiter {
	if defaultConcurrency < 1 {
		defaultConcurrency = 1
	}
	return &Limiter{
		defaultConcurrency: defaultConcurrency,
		metrics:            metrics,
		logger:             logger,
		lanes:              make(map[string]*lane),
	}
}

// Acquire blocks until a slot in the named lane is free or ctx is done.
// The first reference to a lane fixes its capacity.
func (l *Limiter) Acquire(ctx context.Context, name string, maxConcurrency int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ln, err := l.lane(normalize(name), maxConcurrency)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := ln.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("acquire lane %s: %w", normalize(name), err)
	}
	l.metrics.ObserveLaneWait(normalize(name), time.Since(start))

	l.mu.Lock()
	ln.inFlight++
	inFlight := ln.inFlight
	l.mu.Unlock()
	l.metrics.SetLaneInFlight(normalize(name), inFlight)

	return nil
}

// Release returns a slot to the named lane. It must be called exactly once
// per successful Acquire.
func (l *Limiter) Release(name string) {
	name = normalize(name)

	l.mu.Lock()
	ln, ok := l.lanes[name]
	if !ok {
		l.mu.Unlock()
		l.logger.Warn("release on unknown lane", zap.String("lane", name))
		return
	}
	ln.inFlight--
	inFlight := ln.inFlight
	l.mu.Unlock()

	ln.sem.Release(1)
	l.metrics.SetLaneInFlight(name, inFlight)
}

// Stats returns a snapshot of every lane created so far
func (l *Limiter) Stats() map[string]LaneStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]LaneStats, len(l.lanes))
	for name, ln := range l.lanes {
		out[name] = LaneStats{Capacity: ln.capacity, InFlight: ln.inFlight}
	}
	return out
}

// Close tears down all lanes. Callers must ensure no Acquire/Release pair
// is in flight.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	l.lanes = make(map[string]*lane)
	l.logger.Info("lane limiter closed")
}

// lane returns the named lane, creating it if needed
func (l *Limiter) lane(name string, maxConcurrency int) (*lane, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrClosed
	}

	if ln, ok := l.lanes[name]; ok {
		if maxConcurrency > 0 && maxConcurrency != ln.capacity {
			l.logger.Debug("lane capacity already fixed",
				zap.String("lane", name),
				zap.Int("capacity", ln.capacity),
				zap.Int("requested", maxConcurrency))
		}
		return ln, nil
	}

	capacity := maxConcurrency
	if capacity <= 0 {
		capacity = l.defaultConcurrency
	}
	ln := &lane{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
	l.lanes[name] = ln

	l.logger.Debug("lane created",
		zap.String("lane", name),
		zap.Int("capacity", capacity))

	return ln, nil
}

func normalize(name string) string {
	if name == "" {
		return domain.DefaultLane
	}
	return name
}

package ports

import (
	"context"
	"errors"
	"time"

	"github.com/aescanero/waveorch/pkg/domain"
)

// ErrRunNotFound is returned by RunStore implementations for unknown run IDs
var ErrRunNotFound = errors.New("run not found")

// SignalReader is the read-only view of a run's signals and config handed to waves
type SignalReader interface {
	// Value returns the best signal's value for key, or the config value for
	// config.<k> keys, or null. It never fails.
	Value(key string) domain.Value
	Bool(key string) bool
	Number(key string) float64
	Int(key string) int
	Text(key string) string
	Has(key string) bool
	BestSignal(key string) (domain.Signal, bool)
	Signals() []domain.Signal
	Config() map[string]domain.Value
}

// Wave is a registered unit of analysis work. Name must match a manifest name.
type Wave interface {
	Name() string
	Analyze(ctx context.Context, subject domain.Subject, signals SignalReader) ([]domain.Signal, error)
}

// WaveFunc adapts a function into a Wave
type WaveFunc struct {
	WaveName string
	Fn       func(ctx context.Context, subject domain.Subject, signals SignalReader) ([]domain.Signal, error)
}

// Name returns the wave name
func (w WaveFunc) Name() string { return w.WaveName }

// Analyze calls the wrapped function
func (w WaveFunc) Analyze(ctx context.Context, subject domain.Subject, signals SignalReader) ([]domain.Signal, error) {
	return w.Fn(ctx, subject, signals)
}

// EventPublisher receives signal events as they are appended
type EventPublisher interface {
	Publish(ctx context.Context, event domain.SignalEvent) error
}

// EventHandler processes a delivered signal event
type EventHandler func(ctx context.Context, event domain.SignalEvent) error

// EventBus publishes signal events and delivers them to subscribers until
// the subscription context is done
type EventBus interface {
	EventPublisher
	Subscribe(ctx context.Context, handler EventHandler) error
	Close() error
}

// RunStore persists run records
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.RunRecord) error
	GetRun(ctx context.Context, runID string) (*domain.RunRecord, error)
	ListRuns(ctx context.Context) ([]*domain.RunRecord, error)
	DeleteRun(ctx context.Context, runID string) error
}

// MetricsCollector records orchestration metrics
type MetricsCollector interface {
	RecordRunSubmitted(status string)
	RecordRunCompleted(status string, duration time.Duration)
	SetActiveRuns(count int)
	RecordWaveExecuted(wave, status string, duration time.Duration)
	RecordWaveSkipped(wave, reason string)
	ObserveLaneWait(lane string, duration time.Duration)
	SetLaneInFlight(lane string, count int)
	RecordEventDropped()
	RecordWorkerPoolStatus(idle, busy, stopped int)
}

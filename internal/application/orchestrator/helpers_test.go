package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/aescanero/waveorch/internal/application/escalation"
	"github.com/aescanero/waveorch/internal/application/lanes"
	"github.com/aescanero/waveorch/internal/application/manifests"
	"github.com/aescanero/waveorch/pkg/adapters/metrics/noop"
	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recorder is an EventPublisher that keeps every event
type recorder struct {
	mu     sync.Mutex
	events []domain.SignalEvent
}

func (r *recorder) Publish(ctx context.Context, event domain.SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Key
	}
	return out
}

func newCoordinator(t *testing.T, logger *zap.Logger, dispatcher *Dispatcher, ms ...domain.Manifest) *Coordinator {
	t.Helper()

	repo, err := manifests.NewRepository(ms)
	require.NoError(t, err)

	metrics := noop.NewCollector()
	return NewCoordinator(
		repo,
		lanes.NewLimiter(4, metrics, logger),
		escalation.NewEvaluator(),
		dispatcher,
		metrics,
		logger,
	)
}

func enabled(name string, priority int, required ...string) domain.Manifest {
	return domain.Manifest{
		Name:     name,
		Enabled:  true,
		Priority: priority,
		Listens:  domain.Listens{Required: required},
	}
}

// emitting returns a wave that emits the given boolean signals
func emitting(name string, keys ...string) ports.Wave {
	return ports.WaveFunc{
		WaveName: name,
		Fn: func(ctx context.Context, subject domain.Subject, _ ports.SignalReader) ([]domain.Signal, error) {
			out := make([]domain.Signal, len(keys))
			for i, k := range keys {
				out[i] = domain.NewSignal(k, domain.Bool(true), name)
			}
			return out, nil
		},
	}
}

func keysOf(signals []domain.Signal) []string {
	out := make([]string, len(signals))
	for i, s := range signals {
		out[i] = s.Key
	}
	return out
}

func newDispatcher(size int, publishers ...ports.EventPublisher) *Dispatcher {
	return NewDispatcher(size, noop.NewCollector(), zap.NewNop(), publishers...)
}

package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/waveorch/internal/application/workers"
	"github.com/aescanero/waveorch/pkg/adapters/metrics/noop"
	"github.com/aescanero/waveorch/pkg/adapters/storage/memory"
	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type rejectingSubmitter struct{}

func (rejectingSubmitter) Submit(workers.Job) error { return workers.ErrQueueFull }

// blockUntilDone is a wave that returns only when the run context ends
func blockUntilDone(name string, started chan<- struct{}) ports.Wave {
	return ports.WaveFunc{
		WaveName: name,
		Fn: func(ctx context.Context, _ domain.Subject, _ ports.SignalReader) ([]domain.Signal, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
}

func newManager(t *testing.T, c *Coordinator, runTimeout time.Duration) (*Manager, *memory.InMemoryRunStore) {
	t.Helper()

	metrics := noop.NewCollector()
	pool := workers.NewPool(2, 8, c, metrics, zap.NewNop(), 0)
	require.NoError(t, pool.Start())
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	store := memory.NewInMemoryRunStore()
	return NewManager(c, pool, store, metrics, zap.NewNop(), runTimeout), store
}

func waitForStatus(t *testing.T, m *Manager, runID string, want domain.RunStatus) *domain.RunRecord {
	t.Helper()

	var record *domain.RunRecord
	require.Eventually(t, func() bool {
		r, err := m.GetRun(context.Background(), runID)
		if err != nil {
			return false
		}
		record = r
		return r.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return record
}

func TestManagerRunsToCompletion(t *testing.T) {
	c := newCoordinator(t, zap.NewNop(), nil, enabled("a", 1))
	require.NoError(t, c.Register(emitting("a", "a.done")))
	m, _ := newManager(t, c, time.Minute)

	runID, err := m.SubmitRun(context.Background(), domain.Subject{Location: "s3://bucket/doc.pdf"}, nil)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	record := waitForStatus(t, m, runID, domain.RunStatusCompleted)
	assert.Equal(t, runID, record.Subject.ID)
	assert.Equal(t, []string{"a.done"}, keysOf(record.Signals))
	assert.NotNil(t, record.StartedAt)
	assert.NotNil(t, record.CompletedAt)
	assert.Empty(t, record.Error)

	runs, err := m.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	assert.ErrorIs(t, m.CancelRun(context.Background(), runID), ErrRunTerminal)
}

func TestManagerPassesConfig(t *testing.T) {
	gated := enabled("a", 1)
	gated.Config.Bindings = []domain.ConfigBinding{{ConfigKey: "a", SkipIfFalse: true}}
	c := newCoordinator(t, zap.NewNop(), nil, gated)
	require.NoError(t, c.Register(emitting("a", "a.done")))
	m, _ := newManager(t, c, 0)

	runID, err := m.SubmitRun(context.Background(), domain.Subject{ID: "doc"}, map[string]domain.Value{"a": domain.Bool(false)})
	require.NoError(t, err)

	record := waitForStatus(t, m, runID, domain.RunStatusCompleted)
	assert.Equal(t, []string{domain.SkippedKey("a")}, keysOf(record.Signals))
	assert.Equal(t, "doc", record.Subject.ID)
}

func TestManagerCancelRun(t *testing.T) {
	c := newCoordinator(t, zap.NewNop(), nil, enabled("slow", 1))
	started := make(chan struct{})
	require.NoError(t, c.Register(blockUntilDone("slow", started)))
	m, _ := newManager(t, c, time.Minute)

	runID, err := m.SubmitRun(context.Background(), domain.Subject{ID: "doc"}, nil)
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("wave never started")
	}

	require.NoError(t, m.CancelRun(context.Background(), runID))
	waitForStatus(t, m, runID, domain.RunStatusCancelled)
}

func TestManagerRunTimeout(t *testing.T) {
	c := newCoordinator(t, zap.NewNop(), nil, enabled("slow", 1))
	require.NoError(t, c.Register(blockUntilDone("slow", make(chan struct{}))))
	m, _ := newManager(t, c, 30*time.Millisecond)

	runID, err := m.SubmitRun(context.Background(), domain.Subject{ID: "doc"}, nil)
	require.NoError(t, err)

	record := waitForStatus(t, m, runID, domain.RunStatusFailed)
	assert.Equal(t, "run timeout", record.Error)
}

func TestManagerRunContext(t *testing.T) {
	c := newCoordinator(t, zap.NewNop(), nil)

	bounded := NewManager(c, rejectingSubmitter{}, memory.NewInMemoryRunStore(), noop.NewCollector(), zap.NewNop(), time.Minute)
	ctx, cancel := bounded.runContext()
	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)

	unbounded := NewManager(c, rejectingSubmitter{}, memory.NewInMemoryRunStore(), noop.NewCollector(), zap.NewNop(), 0)
	ctx, cancel = unbounded.runContext()
	_, ok = ctx.Deadline()
	assert.False(t, ok)
	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestManagerUnknownRun(t *testing.T) {
	c := newCoordinator(t, zap.NewNop(), nil)
	m, _ := newManager(t, c, 0)

	_, err := m.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, m.CancelRun(context.Background(), "nope"), ErrRunNotFound)
}

func TestManagerQueueFull(t *testing.T) {
	c := newCoordinator(t, zap.NewNop(), nil)
	store := memory.NewInMemoryRunStore()
	m := NewManager(c, rejectingSubmitter{}, store, noop.NewCollector(), zap.NewNop(), 0)

	_, err := m.SubmitRun(context.Background(), domain.Subject{ID: "doc"}, nil)
	require.ErrorIs(t, err, workers.ErrQueueFull)

	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusFailed, runs[0].Status)
}

func TestManagerShutdownCancelsRuns(t *testing.T) {
	c := newCoordinator(t, zap.NewNop(), nil, enabled("slow", 1))
	started := make(chan struct{})
	require.NoError(t, c.Register(blockUntilDone("slow", started)))
	m, _ := newManager(t, c, 0)

	runID, err := m.SubmitRun(context.Background(), domain.Subject{ID: "doc"}, nil)
	require.NoError(t, err)
	<-started

	require.NoError(t, m.Shutdown(context.Background()))
	waitForStatus(t, m, runID, domain.RunStatusCancelled)
}

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aescanero/waveorch/internal/application/signals"
	"github.com/aescanero/waveorch/internal/application/workers"
	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrRunNotFound is returned for unknown run IDs
	ErrRunNotFound = errors.New("run not found")
	// ErrRunTerminal is returned when cancelling a run that already finished
	ErrRunTerminal = errors.New("run already in terminal state")
)

// Submitter queues run jobs for execution
type Submitter interface {
	Submit(job workers.Job) error
}

// Manager tracks asynchronous runs: submission, status and cancellation
type Manager struct {
	coordinator *Coordinator
	pool        Submitter
	store       ports.RunStore
	metrics     ports.MetricsCollector
	logger      *zap.Logger

	// Track active executions
	executions sync.Map // map[string]*execution
	active     atomic.Int64

	runTimeout time.Duration
}

// execution holds state for a single in-flight run
type execution struct {
	runID      string
	status     domain.RunStatus
	record     *domain.RunRecord
	startedAt  time.Time
	cancelFunc context.CancelFunc
	mu         sync.Mutex
}

// NewManager creates a new run manager
func NewManager(
	coordinator *Coordinator,
	pool Submitter,
	store ports.RunStore,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	runTimeout time.Duration,
) *Manager {
	return &Manager{
		coordinator: coordinator,
		pool:        pool,
		store:       store,
		metrics:     metrics,
		logger:      logger,
		runTimeout:  runTimeout,
	}
}

// Coordinator returns the coordinator runs are executed with
func (m *Manager) Coordinator() *Coordinator {
	return m.coordinator
}

// SubmitRun persists a pending run and queues it for execution
func (m *Manager) SubmitRun(ctx context.Context, subject domain.Subject, config map[string]domain.Value) (string, error) {
	runID := uuid.New().String()
	if subject.ID == "" {
		subject.ID = runID
	}

	record := &domain.RunRecord{
		ID:          runID,
		Subject:     subject,
		Status:      domain.RunStatusPending,
		Config:      config,
		SubmittedAt: time.Now(),
	}

	if err := m.store.SaveRun(ctx, record); err != nil {
		m.logger.Error("failed to save pending run",
			zap.String("run_id", runID),
			zap.Error(err))
		return "", fmt.Errorf("failed to save run: %w", err)
	}

	runCtx, cancel := m.runContext()

	exec := &execution{
		runID:      runID,
		status:     domain.RunStatusPending,
		record:     record,
		startedAt:  time.Now(),
		cancelFunc: cancel,
	}
	m.executions.Store(runID, exec)
	m.metrics.SetActiveRuns(int(m.active.Add(1)))

	job := workers.Job{
		Ctx:     runCtx,
		RunID:   runID,
		Subject: subject,
		Signals: signals.WithConfig(config),
		OnStart: func() { m.markRunning(exec) },
		OnDone: func(out []domain.Signal, err error) {
			// waves swallow their own ctx errors, so check the run context too
			if err == nil {
				err = runCtx.Err()
			}
			m.complete(exec, out, err)
		},
	}

	if err := m.pool.Submit(job); err != nil {
		m.logger.Error("failed to queue run",
			zap.String("run_id", runID),
			zap.Error(err))
		m.complete(exec, nil, err)
		return "", fmt.Errorf("failed to queue run: %w", err)
	}

	m.metrics.RecordRunSubmitted(string(domain.RunStatusPending))
	m.logger.Info("run submitted",
		zap.String("run_id", runID),
		zap.String("subject_id", subject.ID))

	return runID, nil
}

// runContext returns the context a run executes under, bounded by the run
// timeout when one is set
func (m *Manager) runContext() (context.Context, context.CancelFunc) {
	if m.runTimeout > 0 {
		return context.WithTimeout(context.Background(), m.runTimeout)
	}
	return context.WithCancel(context.Background())
}

// GetRun retrieves the current record of a run
func (m *Manager) GetRun(ctx context.Context, runID string) (*domain.RunRecord, error) {
	record, err := m.store.GetRun(ctx, runID)
	if err != nil {
		if errors.Is(err, ports.ErrRunNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return record, nil
}

// ListRuns returns every stored run
func (m *Manager) ListRuns(ctx context.Context) ([]*domain.RunRecord, error) {
	runs, err := m.store.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// CancelRun cancels a pending or running run. Signals already emitted are kept.
func (m *Manager) CancelRun(ctx context.Context, runID string) error {
	val, ok := m.executions.Load(runID)
	if !ok {
		record, err := m.GetRun(ctx, runID)
		if err != nil {
			return err
		}
		if record.Status.IsTerminal() {
			return fmt.Errorf("%w: %s", ErrRunTerminal, record.Status)
		}
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	exec := val.(*execution)
	exec.mu.Lock()
	defer exec.mu.Unlock()

	if exec.status.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrRunTerminal, exec.status)
	}

	exec.cancelFunc()
	exec.status = domain.RunStatusCancelled

	m.logger.Info("run cancelled", zap.String("run_id", runID))
	return nil
}

// markRunning records that a worker picked the run up
func (m *Manager) markRunning(exec *execution) {
	exec.mu.Lock()
	if exec.status != domain.RunStatusPending {
		exec.mu.Unlock()
		return
	}
	now := time.Now()
	exec.status = domain.RunStatusRunning
	exec.record.Status = domain.RunStatusRunning
	exec.record.StartedAt = &now
	record := *exec.record
	exec.mu.Unlock()

	if err := m.store.SaveRun(context.Background(), &record); err != nil {
		m.logger.Error("failed to save running state",
			zap.String("run_id", exec.runID),
			zap.Error(err))
	}
}

// complete stores the final record of a run and stops tracking it
func (m *Manager) complete(exec *execution, out []domain.Signal, runErr error) {
	exec.mu.Lock()
	status := domain.RunStatusCompleted
	switch {
	case exec.status == domain.RunStatusCancelled:
		status = domain.RunStatusCancelled
	case errors.Is(runErr, context.DeadlineExceeded):
		status = domain.RunStatusFailed
		exec.record.Error = "run timeout"
	case errors.Is(runErr, context.Canceled):
		status = domain.RunStatusCancelled
	case runErr != nil:
		status = domain.RunStatusFailed
		exec.record.Error = runErr.Error()
	}

	now := time.Now()
	exec.status = status
	exec.record.Status = status
	exec.record.Signals = out
	exec.record.CompletedAt = &now
	record := *exec.record
	exec.mu.Unlock()

	exec.cancelFunc()
	m.executions.Delete(exec.runID)
	m.metrics.SetActiveRuns(int(m.active.Add(-1)))
	m.metrics.RecordRunCompleted(string(status), time.Since(exec.startedAt))

	if err := m.store.SaveRun(context.Background(), &record); err != nil {
		m.logger.Error("failed to save final run state",
			zap.String("run_id", exec.runID),
			zap.Error(err))
	}

	m.logger.Info("run finished",
		zap.String("run_id", exec.runID),
		zap.String("status", string(status)),
		zap.Int("signals", len(out)),
		zap.Duration("duration", time.Since(exec.startedAt)))
}

// Shutdown cancels all active runs
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("shutting down run manager")

	m.executions.Range(func(key, value interface{}) bool {
		exec := value.(*execution)
		exec.mu.Lock()
		if !exec.status.IsTerminal() {
			exec.cancelFunc()
			exec.status = domain.RunStatusCancelled
		}
		exec.mu.Unlock()
		return true
	})

	m.logger.Info("run manager shut down complete")
	return nil
}

package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/waveorch/internal/application/signals"
	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"go.uber.org/zap"
)

var (
	// ErrPoolClosed is returned by Submit after Shutdown
	ErrPoolClosed = errors.New("worker pool closed")
	// ErrQueueFull is returned by Submit when the job queue is at capacity
	ErrQueueFull = errors.New("worker pool queue full")
)

// Runner executes one orchestration run
type Runner interface {
	Run(ctx context.Context, runID string, subject domain.Subject, actx *signals.Context) ([]domain.Signal, error)
}

// Job is a run waiting for a worker
type Job struct {
	Ctx     context.Context
	RunID   string
	Subject domain.Subject
	Signals *signals.Context

	// OnStart is called when a worker picks the job up
	OnStart func()
	// OnDone receives the run's signals and error
	OnDone func(signals []domain.Signal, err error)
}

// Pool manages a pool of worker goroutines draining a bounded job queue
type Pool struct {
	size    int
	runner  Runner
	metrics ports.MetricsCollector
	logger  *zap.Logger
	health  *HealthMonitor

	workers []*worker
	jobs    chan Job
	wg      sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
}

// worker represents a single worker goroutine
type worker struct {
	id      string
	pool    *Pool
	status  WorkerStatus
	mu      sync.RWMutex
	lastJob time.Time
}

// WorkerStatus represents worker status
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusBusy    WorkerStatus = "busy"
	WorkerStatusStopped WorkerStatus = "stopped"
)

// NewPool creates a new worker pool
func NewPool(
	size int,
	queueSize int,
	runner Runner,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
	healthCheckInterval time.Duration,
) *Pool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	pool := &Pool{
		size:    size,
		runner:  runner,
		metrics: metrics,
		logger:  logger,
		workers: make([]*worker, size),
		jobs:    make(chan Job, queueSize),
	}
	for i := 0; i < size; i++ {
		pool.workers[i] = &worker{
			id:      fmt.Sprintf("worker-%d", i),
			pool:    pool,
			status:  WorkerStatusStopped,
			lastJob: time.Now(),
		}
	}

	pool.health = NewHealthMonitor(pool, healthCheckInterval, logger)

	return pool
}

// Start starts the worker pool
func (p *Pool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPoolClosed
	}
	if p.started {
		return nil
	}
	p.started = true

	p.logger.Info("starting worker pool", zap.Int("size", p.size))

	for _, w := range p.workers {
		w.setStatus(WorkerStatusIdle)
		p.wg.Add(1)
		go w.run()
	}

	p.health.Start()

	p.logger.Info("worker pool started", zap.Int("workers", p.size))
	return nil
}

// Submit queues a job without blocking
func (p *Pool) Submit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueDepth returns the number of jobs waiting for a worker
func (p *Pool) QueueDepth() int {
	return len(p.jobs)
}

// Shutdown stops accepting jobs and waits for workers to drain the queue
func (p *Pool) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down worker pool")

	p.health.Stop()

	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shut down complete")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout")
	}
}

// GetStatus returns the status of all workers
func (p *Pool) GetStatus() map[string]WorkerStatus {
	status := make(map[string]WorkerStatus)
	for _, w := range p.workers {
		w.mu.RLock()
		status[w.id] = w.status
		w.mu.RUnlock()
	}
	return status
}

// run is the main worker loop
func (w *worker) run() {
	defer w.pool.wg.Done()

	w.pool.logger.Debug("worker started", zap.String("worker_id", w.id))

	for job := range w.pool.jobs {
		w.handle(job)
	}

	w.setStatus(WorkerStatusStopped)
	w.pool.logger.Debug("worker stopped", zap.String("worker_id", w.id))
}

// handle executes one job
func (w *worker) handle(job Job) {
	w.mu.Lock()
	w.status = WorkerStatusBusy
	w.lastJob = time.Now()
	w.mu.Unlock()

	defer w.setStatus(WorkerStatusIdle)

	ctx := job.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	w.pool.logger.Info("executing run",
		zap.String("worker_id", w.id),
		zap.String("run_id", job.RunID),
		zap.String("subject_id", job.Subject.ID))

	if job.OnStart != nil {
		job.OnStart()
	}

	startTime := time.Now()
	out, err := w.pool.runner.Run(ctx, job.RunID, job.Subject, job.Signals)

	if job.OnDone != nil {
		job.OnDone(out, err)
	}

	w.pool.logger.Info("run execution finished",
		zap.String("worker_id", w.id),
		zap.String("run_id", job.RunID),
		zap.Int("signals", len(out)),
		zap.Duration("duration", time.Since(startTime)),
		zap.Error(err))
}

func (w *worker) setStatus(status WorkerStatus) {
	w.mu.Lock()
	w.status = status
	w.mu.Unlock()
}

// Health returns the pool's health monitor
func (p *Pool) Health() *HealthMonitor {
	return p.health
}

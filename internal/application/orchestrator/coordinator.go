package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/aescanero/waveorch/internal/application/escalation"
	"github.com/aescanero/waveorch/internal/application/lanes"
	"github.com/aescanero/waveorch/internal/application/manifests"
	"github.com/aescanero/waveorch/internal/application/signals"
	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"go.uber.org/zap"
)

var (
	// ErrWaveExists is returned when registering a second wave under the same name
	ErrWaveExists = errors.New("wave already registered")
	// ErrNoManifest is returned when registering a wave no manifest describes
	ErrNoManifest = errors.New("no manifest for wave")
	// ErrRunsInFlight is returned by Close when runs do not finish before its context ends
	ErrRunsInFlight = errors.New("runs still in flight")
)

// Outcome is the terminal state of one manifest within a run
type Outcome string

const (
	OutcomeSkippedDisabled     Outcome = "skipped_disabled"
	OutcomeSkippedUnregistered Outcome = "skipped_unregistered"
	OutcomeSkippedDependency   Outcome = "skipped_dependency"
	OutcomeSkippedConfig       Outcome = "skipped_config"
	OutcomeCompleted           Outcome = "completed"
	OutcomeFailed              Outcome = "failed"
)

// Coordinator drives waves through the manifest-ordered control loop.
// One Coordinator is shared by concurrent runs; only its lanes are shared state.
type Coordinator struct {
	repo       *manifests.Repository
	limiter    *lanes.Limiter
	evaluator  *escalation.Evaluator
	dispatcher *Dispatcher
	metrics    ports.MetricsCollector
	logger     *zap.Logger

	mu    sync.RWMutex
	waves map[string]ports.Wave

	runMu    sync.Mutex
	inFlight int
	idle     chan struct{} // closed when inFlight drops to zero
}

// run carries the state of a single Run call
type run struct {
	id        string
	subject   domain.Subject
	signals   *signals.Context
	available signals.Availability
	logger    *zap.Logger
}

// NewCoordinator creates a new coordinator. dispatcher may be nil when no
// observer needs signal events.
func NewCoordinator(
	repo *manifests.Repository,
	limiter *lanes.Limiter,
	evaluator *escalation.Evaluator,
	dispatcher *Dispatcher,
	metrics ports.MetricsCollector,
	logger *zap.Logger,
) *Coordinator {
	return &Coordinator{
		repo:       repo,
		limiter:    limiter,
		evaluator:  evaluator,
		dispatcher: dispatcher,
		metrics:    metrics,
		logger:     logger,
		waves:      make(map[string]ports.Wave),
	}
}

// Register adds a wave. Its name must match a manifest.
func (c *Coordinator) Register(wave ports.Wave) error {
	name := wave.Name()
	if _, ok := c.repo.Get(name); !ok {
		return fmt.Errorf("%w: %s", ErrNoManifest, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.waves[name]; ok {
		return fmt.Errorf("%w: %s", ErrWaveExists, name)
	}
	c.waves[name] = wave

	c.logger.Info("wave registered", zap.String("wave", name))
	return nil
}

// Registered reports whether a wave is registered under name
func (c *Coordinator) Registered(name string) bool {
	_, ok := c.wave(name)
	return ok
}

// Run executes every eligible manifest once, in priority order, and returns
// the signals accumulated in actx. A nil actx starts from an empty context.
//
// Wave failures never surface here; they become onFailure signals. The
// returned error is non-nil only when lane acquisition fails, either because
// ctx is done or the limiter is closed. Signals emitted before that point
// are returned alongside the error.
func (c *Coordinator) Run(ctx context.Context, runID string, subject domain.Subject, actx *signals.Context) ([]domain.Signal, error) {
	if actx == nil {
		actx = signals.NewContext()
	}

	c.begin()
	defer c.end()

	r := &run{
		id:        runID,
		subject:   subject,
		signals:   actx,
		available: actx.Available(),
		logger: c.logger.With(
			zap.String("run_id", runID),
			zap.String("subject_id", subject.ID)),
	}

	r.logger.Debug("run started", zap.Int("manifests", c.repo.Len()))
	start := time.Now()

	for _, m := range c.repo.Ordered() {
		outcome, err := c.runManifest(ctx, r, m)
		if err != nil {
			r.logger.Warn("run interrupted",
				zap.String("wave", m.Name),
				zap.Error(err))
			return actx.Signals(), err
		}
		r.logger.Debug("wave finished",
			zap.String("wave", m.Name),
			zap.String("outcome", string(outcome)))
	}

	r.logger.Debug("run finished",
		zap.Int("signals", actx.Len()),
		zap.Duration("duration", time.Since(start)))

	return actx.Signals(), nil
}

// runManifest takes one manifest to a terminal state
func (c *Coordinator) runManifest(ctx context.Context, r *run, m domain.Manifest) (Outcome, error) {
	if !m.Enabled {
		return OutcomeSkippedDisabled, nil
	}

	wave, ok := c.wave(m.Name)
	if !ok {
		return OutcomeSkippedUnregistered, nil
	}

	if !c.repo.CanRun(m, r.available) {
		c.skip(r, m, OutcomeSkippedDependency)
		return OutcomeSkippedDependency, nil
	}

	if binding, gated := configGated(m, r.signals); gated {
		r.logger.Debug("wave gated by config",
			zap.String("wave", m.Name),
			zap.String("config_key", binding))
		c.skip(r, m, OutcomeSkippedConfig)
		return OutcomeSkippedConfig, nil
	}

	lane := m.LaneName()
	if err := c.limiter.Acquire(ctx, lane, m.Lane.MaxConcurrency); err != nil {
		return "", err
	}
	defer c.limiter.Release(lane)

	for _, key := range m.Emits.OnStart {
		c.emit(r, domain.NewSignal(key, domain.Bool(true), m.Name))
	}

	start := time.Now()
	produced, err := invoke(ctx, wave, r)
	duration := time.Since(start)

	if err != nil {
		r.logger.Error("wave execution failed",
			zap.String("wave", m.Name),
			zap.String("lane", lane),
			zap.Duration("duration", duration),
			zap.Error(err))
		for _, key := range m.Emits.OnFailure {
			c.emit(r, domain.NewSignal(key, domain.Bool(true), m.Name))
		}
		c.metrics.RecordWaveExecuted(m.Name, string(OutcomeFailed), duration)
		return OutcomeFailed, nil
	}

	for _, s := range produced {
		c.emit(r, normalize(s, m.Name))
	}
	c.metrics.RecordWaveExecuted(m.Name, string(OutcomeCompleted), duration)

	r.logger.Info("wave completed",
		zap.String("wave", m.Name),
		zap.String("lane", lane),
		zap.Int("signals", len(produced)),
		zap.Duration("duration", duration))

	return OutcomeCompleted, nil
}

// skip emits the skip signal for m
func (c *Coordinator) skip(r *run, m domain.Manifest, reason Outcome) {
	c.emit(r, domain.NewSignal(domain.SkippedKey(m.Name), domain.Bool(true), m.Name))
	c.metrics.RecordWaveSkipped(m.Name, string(reason))
}

// emit appends a signal to the run and broadcasts it
func (c *Coordinator) emit(r *run, s domain.Signal) {
	r.signals.Append(s)
	r.available.Add(s.Key)
	if c.dispatcher != nil {
		c.dispatcher.Dispatch(s.Event(r.id, r.subject.ID))
	}
}

func (c *Coordinator) wave(name string) (ports.Wave, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	w, ok := c.waves[name]
	return w, ok
}

// PendingWaves returns, in run order, the manifests runnable with the given signals
func (c *Coordinator) PendingWaves(available signals.Availability) []domain.Manifest {
	return c.repo.Runnable(available)
}

// DependencyGraph returns the signal keys each manifest listens on
func (c *Coordinator) DependencyGraph() map[string]map[string]struct{} {
	return c.repo.DependencyGraph()
}

// ShouldEscalate evaluates the escalation rule of the named manifest for target
func (c *Coordinator) ShouldEscalate(name, target string, reader ports.SignalReader) bool {
	m, ok := c.repo.Get(name)
	if !ok {
		return false
	}
	return c.evaluator.ShouldEscalate(m, target, reader)
}

// Manifests returns the manifest repository
func (c *Coordinator) Manifests() *manifests.Repository {
	return c.repo
}

// LaneStats returns a snapshot of the lanes created so far
func (c *Coordinator) LaneStats() map[string]lanes.LaneStats {
	return c.limiter.Stats()
}

// Close waits for in-flight runs, then tears down the event dispatcher and
// the lanes. If ctx ends first nothing is torn down and ErrRunsInFlight is returned.
func (c *Coordinator) Close(ctx context.Context) error {
	if err := c.drain(ctx); err != nil {
		c.logger.Warn("skipping coordinator teardown", zap.Error(err))
		return err
	}

	var err error
	if c.dispatcher != nil {
		err = c.dispatcher.Close(ctx)
	}
	c.limiter.Close()
	return err
}

func (c *Coordinator) begin() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.inFlight == 0 {
		c.idle = make(chan struct{})
	}
	c.inFlight++
}

func (c *Coordinator) end() {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	c.inFlight--
	if c.inFlight == 0 {
		close(c.idle)
	}
}

// drain blocks until no run is in flight or ctx is done
func (c *Coordinator) drain(ctx context.Context) error {
	c.runMu.Lock()
	n, idle := c.inFlight, c.idle
	c.runMu.Unlock()

	if n == 0 {
		return nil
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %d", ErrRunsInFlight, n)
	}
}

// invoke calls the wave, turning a panic into an error
func invoke(ctx context.Context, wave ports.Wave, r *run) (produced []domain.Signal, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("wave panicked: %v", p)
		}
	}()
	return wave.Analyze(ctx, r.subject, r.signals)
}

// configGated reports the first skipIfFalse binding whose config value is false.
// Absent keys do not gate.
func configGated(m domain.Manifest, reader ports.SignalReader) (string, bool) {
	for _, b := range m.Config.Bindings {
		if !b.SkipIfFalse {
			continue
		}
		enabled, ok := reader.Value(domain.ConfigKey(b.ConfigKey)).AsBool()
		if ok && !enabled {
			return b.ConfigKey, true
		}
	}
	return "", false
}

// normalize fills defaults on a signal returned by a wave and clamps its
// confidence to [0, 1]. A zero confidence is kept as reported.
func normalize(s domain.Signal, source string) domain.Signal {
	if s.Source == "" {
		s.Source = source
	}
	switch {
	case math.IsNaN(s.Confidence) || s.Confidence < 0:
		s.Confidence = 0
	case s.Confidence > 1:
		s.Confidence = 1
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}
	return s
}

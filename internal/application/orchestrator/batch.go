package orchestrator

import (
	"context"

	"github.com/aescanero/waveorch/internal/application/signals"
	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchResult holds the outcome of one subject in a batch
type BatchResult struct {
	RunID   string
	Subject domain.Subject
	Signals []domain.Signal
	Err     error
}

// RunBatch runs every subject through the coordinator with at most
// concurrency runs in flight. Each run gets its own context seeded with
// config. Results are returned in subject order; a run interrupted by
// cancellation carries its error without stopping the others.
func (c *Coordinator) RunBatch(ctx context.Context, subjects []domain.Subject, concurrency int, config map[string]domain.Value) []BatchResult {
	results := make([]BatchResult, len(subjects))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, subject := range subjects {
		g.Go(func() error {
			runID := uuid.New().String()
			out, err := c.Run(gctx, runID, subject, signals.WithConfig(config))
			results[i] = BatchResult{RunID: runID, Subject: subject, Signals: out, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

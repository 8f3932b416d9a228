package orchestrator

import (
	"context"
	"testing"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRunBatch(t *testing.T) {
	gated := enabled("echo", 1)
	gated.Config.Bindings = []domain.ConfigBinding{{ConfigKey: "echo", SkipIfFalse: true}}
	c := newCoordinator(t, zap.NewNop(), nil, gated)

	require.NoError(t, c.Register(ports.WaveFunc{
		WaveName: "echo",
		Fn: func(ctx context.Context, s domain.Subject, _ ports.SignalReader) ([]domain.Signal, error) {
			return []domain.Signal{domain.NewSignal("echo.id", domain.String(s.ID), "echo")}, nil
		},
	}))

	subjects := []domain.Subject{{ID: "one"}, {ID: "two"}, {ID: "three"}}
	results := c.RunBatch(context.Background(), subjects, 2, map[string]domain.Value{"echo": domain.Bool(true)})
	require.Len(t, results, 3)

	ids := make(map[string]bool)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, subjects[i].ID, r.Subject.ID)
		require.Len(t, r.Signals, 1)
		assert.Equal(t, subjects[i].ID, r.Signals[0].Value.String())
		ids[r.RunID] = true
	}
	assert.Len(t, ids, 3)

	skipped := c.RunBatch(context.Background(), subjects[:1], 0, map[string]domain.Value{"echo": domain.Bool(false)})
	require.Len(t, skipped, 1)
	assert.Equal(t, []string{domain.SkippedKey("echo")}, keysOf(skipped[0].Signals))
}

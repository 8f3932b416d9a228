package redis

import (
	"context"
	"testing"
	"time"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore(t *testing.T, ttl time.Duration) (*RunStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRunStore(client, ttl, zap.NewNop()), mr
}

func TestRunStoreRoundTrip(t *testing.T) {
	store, mr := newStore(t, time.Hour)
	ctx := context.Background()

	completed := time.Now()
	run := &domain.RunRecord{
		ID:          "run-1",
		Subject:     domain.Subject{ID: "doc-1", Location: "s3://b/doc.pdf"},
		Status:      domain.RunStatusCompleted,
		Config:      map[string]domain.Value{"ocr": domain.Bool(true)},
		Signals:     []domain.Signal{domain.NewSignal("ocr.pages", domain.Int(3), "ocr")},
		SubmittedAt: time.Now(),
		CompletedAt: &completed,
	}
	require.NoError(t, store.SaveRun(ctx, run))

	got, err := store.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.Equal(t, "s3://b/doc.pdf", got.Subject.Location)
	assert.True(t, got.Config["ocr"].Equal(domain.Bool(true)))
	require.Len(t, got.Signals, 1)
	assert.True(t, got.Signals[0].Value.Equal(domain.Int(3)))
	require.NotNil(t, got.CompletedAt)

	assert.True(t, mr.Exists("waveorch:run:run-1"))
	assert.Equal(t, time.Hour, mr.TTL("waveorch:run:run-1"))
}

func TestRunStoreNotFound(t *testing.T) {
	store, _ := newStore(t, 0)

	_, err := store.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrRunNotFound)
}

func TestRunStoreListAndDelete(t *testing.T) {
	store, mr := newStore(t, 0)
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.SaveRun(ctx, &domain.RunRecord{
			ID:          id,
			Status:      domain.RunStatusPending,
			SubmittedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, mr.Set("waveorch:run:broken", "{not json"))

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "c", runs[0].ID)
	assert.Equal(t, "a", runs[2].ID)

	require.NoError(t, store.DeleteRun(ctx, "b"))
	runs, err = store.ListRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

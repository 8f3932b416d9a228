package lanes

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aescanero/waveorch/pkg/adapters/metrics/noop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newLimiter(defaultConcurrency int) *Limiter {
	return NewLimiter(defaultConcurrency, noop.NewCollector(), zap.NewNop())
}

func TestLimiterBoundsLane(t *testing.T) {
	l := newLimiter(4)
	ctx := context.Background()

	var current, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !assert.NoError(t, l.Acquire(ctx, "ocr", 2)) {
				return
			}
			defer l.Release("ocr")

			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, LaneStats{Capacity: 2, InFlight: 0}, l.Stats()["ocr"])
}

func TestLimiterFirstReferenceFixesCapacity(t *testing.T) {
	l := newLimiter(4)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "ocr", 1))
	l.Release("ocr")
	require.NoError(t, l.Acquire(ctx, "ocr", 8))
	l.Release("ocr")

	assert.Equal(t, 1, l.Stats()["ocr"].Capacity)
}

func TestLimiterDefaults(t *testing.T) {
	l := newLimiter(3)

	require.NoError(t, l.Acquire(context.Background(), "", 0))
	stats := l.Stats()
	assert.Equal(t, LaneStats{Capacity: 3, InFlight: 1}, stats["default"])
	l.Release("")
	assert.Equal(t, 0, l.Stats()["default"].InFlight)
}

func TestLimiterLanesAreIndependent(t *testing.T) {
	l := newLimiter(1)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx, "ocr", 1))
	defer l.Release("ocr")

	done := make(chan error, 1)
	go func() { done <- l.Acquire(ctx, "nlp", 1) }()

	select {
	case err := <-done:
		require.NoError(t, err)
		l.Release("nlp")
	case <-time.After(time.Second):
		t.Fatal("acquire on a different lane blocked")
	}
}

func TestLimiterContextCancel(t *testing.T) {
	l := newLimiter(1)

	require.NoError(t, l.Acquire(context.Background(), "ocr", 1))
	defer l.Release("ocr")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Acquire(ctx, "ocr", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, l.Stats()["ocr"].InFlight)
}

func TestLimiterCancelledBeforeAcquire(t *testing.T) {
	l := newLimiter(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.Acquire(ctx, "ocr", 1), context.Canceled)
	assert.Empty(t, l.Stats())
}

func TestLimiterClosed(t *testing.T) {
	l := newLimiter(1)
	l.Close()
	l.Close()

	assert.ErrorIs(t, l.Acquire(context.Background(), "ocr", 1), ErrClosed)
	assert.Empty(t, l.Stats())

	// releasing an unknown lane is harmless
	l.Release("ocr")
}

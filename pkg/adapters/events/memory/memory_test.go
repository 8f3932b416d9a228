package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type collected struct {
	mu   sync.Mutex
	keys []string
}

func (c *collected) handler(ctx context.Context, event domain.SignalEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, event.Key)
	return nil
}

func (c *collected) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.keys...)
}

func TestInMemoryEventBusFanOut(t *testing.T) {
	bus := NewInMemoryEventBus(16, zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, second := &collected{}, &collected{}
	require.NoError(t, bus.Subscribe(ctx, first.handler))
	require.NoError(t, bus.Subscribe(ctx, second.handler))

	for _, k := range []string{"a", "b"} {
		require.NoError(t, bus.Publish(ctx, domain.SignalEvent{RunID: "r", Key: k}))
	}

	for _, c := range []*collected{first, second} {
		assert.Eventually(t, func() bool { return len(c.snapshot()) == 2 }, time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"a", "b"}, c.snapshot())
	}
}

func TestInMemoryEventBusDropsForSlowSubscriber(t *testing.T) {
	bus := NewInMemoryEventBus(1, zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	require.NoError(t, bus.Subscribe(ctx, func(ctx context.Context, event domain.SignalEvent) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, domain.SignalEvent{Key: "held"}))
	<-entered

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			_ = bus.Publish(ctx, domain.SignalEvent{Key: "burst"})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	close(release)
}

func TestInMemoryEventBusUnsubscribesOnCancel(t *testing.T) {
	bus := NewInMemoryEventBus(4, zap.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, bus.Subscribe(ctx, (&collected{}).handler))
	assert.Equal(t, 1, bus.Subscribers())

	cancel()
	assert.Eventually(t, func() bool { return bus.Subscribers() == 0 }, time.Second, 5*time.Millisecond)
}

func TestInMemoryEventBusClose(t *testing.T) {
	bus := NewInMemoryEventBus(4, zap.NewNop())
	require.NoError(t, bus.Subscribe(context.Background(), (&collected{}).handler))

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
	assert.Equal(t, 0, bus.Subscribers())
	assert.ErrorIs(t, bus.Subscribe(context.Background(), (&collected{}).handler), ErrBusClosed)
	assert.NoError(t, bus.Publish(context.Background(), domain.SignalEvent{Key: "late"}))
}

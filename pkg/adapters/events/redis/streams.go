package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// GlobalStream receives every signal event regardless of run
	GlobalStream = "waveorch:signals"

	defaultMaxLen = 10000
)

// StreamsEventBus publishes signal events to Redis Streams. Every event is
// added to the run's own stream and to the global stream; subscribers tail
// the global stream.
type StreamsEventBus struct {
	client *redis.Client
	logger *zap.Logger
	maxLen int64
	block  time.Duration
	ttl    time.Duration
}

var _ ports.EventBus = (*StreamsEventBus)(nil)

// NewStreamsEventBus creates a new Redis Streams event bus. Run streams
// expire ttl after their last event; zero keeps them.
func NewStreamsEventBus(client *redis.Client, ttl time.Duration, logger *zap.Logger) *StreamsEventBus {
	return &StreamsEventBus{
		client: client,
		logger: logger,
		maxLen: defaultMaxLen,
		block:  time.Second,
		ttl:    ttl,
	}
}

// Publish adds the event to the run stream and the global stream
func (e *StreamsEventBus) Publish(ctx context.Context, event domain.SignalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	runStream := RunStreamKey(event.RunID)

	pipe := e.client.TxPipeline()
	for _, stream := range []string{runStream, GlobalStream} {
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: stream,
			MaxLen: e.maxLen,
			Approx: true,
			Values: map[string]interface{}{
				"data": string(data),
			},
		})
	}
	if e.ttl > 0 {
		pipe.Expire(ctx, runStream, e.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add to stream: %w", err)
	}

	e.logger.Debug("event published",
		zap.String("run_id", event.RunID),
		zap.String("key", event.Key),
		zap.String("stream", runStream))

	return nil
}

// Subscribe tails the global stream from its current end until ctx is done
func (e *StreamsEventBus) Subscribe(ctx context.Context, handler ports.EventHandler) error {
	lastID, err := e.lastID(ctx, GlobalStream)
	if err != nil {
		return err
	}

	e.logger.Info("subscribed to event stream",
		zap.String("stream", GlobalStream),
		zap.String("from", lastID))

	go e.readStream(ctx, GlobalStream, lastID, handler)

	return nil
}

// History returns the events recorded for a run, oldest first
func (e *StreamsEventBus) History(ctx context.Context, runID string) ([]domain.SignalEvent, error) {
	messages, err := e.client.XRange(ctx, RunStreamKey(runID), "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run stream: %w", err)
	}

	events := make([]domain.SignalEvent, 0, len(messages))
	for _, message := range messages {
		event, err := decode(message)
		if err != nil {
			e.logger.Warn("skipping malformed event",
				zap.String("run_id", runID),
				zap.String("message_id", message.ID),
				zap.Error(err))
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// lastID returns the ID of the newest entry in stream, or 0-0 when empty
func (e *StreamsEventBus) lastID(ctx context.Context, stream string) (string, error) {
	messages, err := e.client.XRevRangeN(ctx, stream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("failed to read stream tail: %w", err)
	}
	if len(messages) == 0 {
		return "0-0", nil
	}
	return messages[0].ID, nil
}

// readStream reads events from a stream
func (e *StreamsEventBus) readStream(ctx context.Context, stream, lastID string, handler ports.EventHandler) {
	for {
		if ctx.Err() != nil {
			return
		}

		streams, err := e.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Count:   100,
			Block:   e.block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				return
			}
			e.logger.Error("failed to read from stream",
				zap.String("stream", stream),
				zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, s := range streams {
			for _, message := range s.Messages {
				lastID = message.ID
				e.processMessage(ctx, stream, message, handler)
			}
		}
	}
}

// processMessage processes a single message from the stream
func (e *StreamsEventBus) processMessage(ctx context.Context, stream string, message redis.XMessage, handler ports.EventHandler) {
	event, err := decode(message)
	if err != nil {
		e.logger.Error("invalid message format",
			zap.String("stream", stream),
			zap.String("message_id", message.ID),
			zap.Error(err))
		return
	}

	if err := handler(ctx, event); err != nil {
		e.logger.Error("handler error",
			zap.String("stream", stream),
			zap.String("message_id", message.ID),
			zap.Error(err))
	}
}

// Close is a no-op; the Redis client is closed by its owner
func (e *StreamsEventBus) Close() error {
	return nil
}

func decode(message redis.XMessage) (domain.SignalEvent, error) {
	var event domain.SignalEvent

	data, ok := message.Values["data"].(string)
	if !ok {
		return event, fmt.Errorf("missing data field")
	}
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}

// RunStreamKey returns the Redis stream key for a run
func RunStreamKey(runID string) string {
	return fmt.Sprintf("waveorch:signals:%s", runID)
}

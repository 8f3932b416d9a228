package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	eventBuffer = 64
	writeWait   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// historian is implemented by event buses that keep per-run history
type historian interface {
	History(ctx context.Context, runID string) ([]domain.SignalEvent, error)
}

// Handler streams signal events to WebSocket clients
type Handler struct {
	eventBus ports.EventBus
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(eventBus ports.EventBus, logger *zap.Logger) *Handler {
	return &Handler{
		eventBus: eventBus,
		logger:   logger,
	}
}

// HandleRunStream streams the signal events of one run. Events recorded
// before the client connected are replayed first when the bus keeps history.
func (h *Handler) HandleRunStream(c *gin.Context) {
	runID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("WebSocket connection established",
		zap.String("run_id", runID),
		zap.String("client", c.ClientIP()))

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	// Reads only detect the client going away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	eventChan := make(chan domain.SignalEvent, eventBuffer)
	if err := h.eventBus.Subscribe(ctx, h.forward(runID, eventChan)); err != nil {
		h.logger.Error("failed to subscribe to events",
			zap.String("run_id", runID),
			zap.Error(err))
		return
	}

	// live events at or before the last replayed one were already sent
	var replayedUntil time.Time
	if hist, ok := h.eventBus.(historian); ok {
		past, err := hist.History(ctx, runID)
		if err != nil {
			h.logger.Warn("failed to load run history",
				zap.String("run_id", runID),
				zap.Error(err))
		}
		for _, event := range past {
			if err := h.write(conn, event); err != nil {
				return
			}
			if event.Timestamp.After(replayedUntil) {
				replayedUntil = event.Timestamp
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case event := <-eventChan:
			if !replayedUntil.IsZero() && !event.Timestamp.After(replayedUntil) {
				continue
			}
			if err := h.write(conn, event); err != nil {
				return
			}
		}
	}
}

// forward returns an event handler that queues events of runID on ch
func (h *Handler) forward(runID string, ch chan<- domain.SignalEvent) ports.EventHandler {
	return func(ctx context.Context, event domain.SignalEvent) error {
		if event.RunID != runID {
			return nil
		}

		select {
		case ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		default:
			h.logger.Warn("event channel full, dropping event",
				zap.String("run_id", event.RunID),
				zap.String("key", event.Key))
		}
		return nil
	}
}

func (h *Handler) write(conn *websocket.Conn, event domain.SignalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.Error(err))
		return nil
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Error("failed to write message", zap.Error(err))
		return err
	}
	return nil
}

package httpwave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/aescanero/waveorch/pkg/ports"
	"go.uber.org/zap"
)

const maxErrorBody = 512

// Request is the body POSTed to a remote wave
type Request struct {
	Subject domain.Subject          `json:"subject"`
	Signals []domain.Signal         `json:"signals"`
	Config  map[string]domain.Value `json:"config,omitempty"`
}

// Response is the body a remote wave answers with
type Response struct {
	Signals []domain.Signal `json:"signals"`
}

// Wave delegates analysis to an HTTP endpoint
type Wave struct {
	name     string
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

var _ ports.Wave = (*Wave)(nil)

// New creates a wave calling endpoint. A non-positive timeout leaves
// requests bounded only by the run context.
func New(name, endpoint string, timeout time.Duration, logger *zap.Logger) *Wave {
	client := &http.Client{}
	if timeout > 0 {
		client.Timeout = timeout
	}
	return &Wave{
		name:     name,
		endpoint: endpoint,
		client:   client,
		logger:   logger,
	}
}

// Name returns the wave name
func (w *Wave) Name() string {
	return w.name
}

// Analyze posts the subject and the run's signals to the endpoint and
// returns the signals it answers with. Non-2xx responses are errors.
func (w *Wave) Analyze(ctx context.Context, subject domain.Subject, reader ports.SignalReader) ([]domain.Signal, error) {
	body, err := json.Marshal(Request{
		Subject: subject,
		Signals: reader.Signals(),
		Config:  reader.Config(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wave %s request failed: %w", w.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("wave %s returned status %d: %s", w.name, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var raw struct {
		Signals []json.RawMessage `json:"signals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("wave %s: failed to decode response: %w", w.name, err)
	}

	// a signal without a confidence field is fully confident
	out := Response{Signals: make([]domain.Signal, 0, len(raw.Signals))}
	for i, data := range raw.Signals {
		s := domain.Signal{Confidence: 1.0}
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("wave %s: failed to decode signal %d: %w", w.name, i, err)
		}
		out.Signals = append(out.Signals, s)
	}

	w.logger.Debug("remote wave answered",
		zap.String("wave", w.name),
		zap.String("endpoint", w.endpoint),
		zap.Int("signals", len(out.Signals)),
		zap.Duration("duration", time.Since(start)))

	return out.Signals, nil
}

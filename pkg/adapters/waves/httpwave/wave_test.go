package httpwave

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aescanero/waveorch/internal/application/signals"
	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAnalyze(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Response{Signals: []domain.Signal{
			{Key: "ocr.text", Value: domain.String("hello"), Confidence: 0.8},
		}})
	}))
	defer server.Close()

	actx := signals.WithConfig(map[string]domain.Value{"lang": domain.String("en")})
	actx.Append(domain.NewSignal("doc.ready", domain.Bool(true), "ingest"))

	wave := New("ocr", server.URL, time.Second, zap.NewNop())
	assert.Equal(t, "ocr", wave.Name())

	out, err := wave.Analyze(context.Background(), domain.Subject{ID: "doc-1", Location: "s3://bucket/doc-1"}, actx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ocr.text", out[0].Key)
	assert.True(t, out[0].Value.Equal(domain.String("hello")))
	assert.Equal(t, 0.8, out[0].Confidence)

	assert.Equal(t, "doc-1", got.Subject.ID)
	require.Len(t, got.Signals, 1)
	assert.Equal(t, "doc.ready", got.Signals[0].Key)
	assert.True(t, got.Config["lang"].Equal(domain.String("en")))
}

func TestAnalyzeDefaultsMissingConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"signals":[{"key":"doc.lang","value":"en"},{"key":"doc.kind","value":"invoice","confidence":0}]}`))
	}))
	defer server.Close()

	wave := New("lang", server.URL, time.Second, zap.NewNop())
	out, err := wave.Analyze(context.Background(), domain.Subject{ID: "doc-1"}, signals.NewContext())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, 1.0, out[0].Confidence)
	assert.Equal(t, 0.0, out[1].Confidence)
}

func TestAnalyzeErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	wave := New("ocr", server.URL, time.Second, zap.NewNop())
	_, err := wave.Analyze(context.Background(), domain.Subject{ID: "doc-1"}, signals.NewContext())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model unavailable")
}

func TestAnalyzeBadBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	wave := New("ocr", server.URL, time.Second, zap.NewNop())
	_, err := wave.Analyze(context.Background(), domain.Subject{ID: "doc-1"}, signals.NewContext())
	assert.Error(t, err)
}

func TestAnalyzeHonoursContext(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	wave := New("slow", server.URL, 0, zap.NewNop())
	_, err := wave.Analyze(ctx, domain.Subject{ID: "doc-1"}, signals.NewContext())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

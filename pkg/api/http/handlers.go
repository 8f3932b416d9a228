package http

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/aescanero/waveorch/internal/application/orchestrator"
	"github.com/aescanero/waveorch/internal/application/signals"
	"github.com/aescanero/waveorch/internal/application/workers"
	"github.com/aescanero/waveorch/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RunSubmitRequest represents a run submission request
type RunSubmitRequest struct {
	Subject domain.Subject          `json:"subject"`
	Config  map[string]domain.Value `json:"config"`
}

// RunSubmitResponse represents a run submission response
type RunSubmitResponse struct {
	RunID       string    `json:"run_id"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// PlanRequest lists the signal keys already available
type PlanRequest struct {
	Available []string `json:"available"`
}

// EscalationRequest carries the signals and config an escalation rule is evaluated against
type EscalationRequest struct {
	Signals []domain.Signal         `json:"signals"`
	Config  map[string]domain.Value `json:"config"`
}

// ManifestResponse is a manifest together with its registration state
type ManifestResponse struct {
	domain.Manifest
	Registered bool `json:"registered"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func errorJSON(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{
		"orchestrator": "ok",
	}

	if s.health != nil {
		pool := s.health.GetStatus()
		checks["workers"] = pool
		if !pool.Healthy {
			status = http.StatusServiceUnavailable
		}
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}

	c.JSON(status, gin.H{
		"status":    state,
		"timestamp": time.Now(),
		"checks":    checks,
		"lanes":     s.manager.Coordinator().LaneStats(),
	})
}

// handleListManifests lists manifests in run order
func (s *Server) handleListManifests(c *gin.Context) {
	coordinator := s.manager.Coordinator()
	ordered := coordinator.Manifests().Ordered()

	out := make([]ManifestResponse, len(ordered))
	for i, m := range ordered {
		out[i] = ManifestResponse{Manifest: m, Registered: coordinator.Registered(m.Name)}
	}

	c.JSON(http.StatusOK, gin.H{
		"manifests": out,
		"total":     len(out),
	})
}

// handleGetManifest returns a single manifest
func (s *Server) handleGetManifest(c *gin.Context) {
	name := c.Param("name")
	coordinator := s.manager.Coordinator()

	m, ok := coordinator.Manifests().Get(name)
	if !ok {
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", "Manifest not found")
		return
	}

	c.JSON(http.StatusOK, ManifestResponse{Manifest: m, Registered: coordinator.Registered(name)})
}

// handleGraph returns the keys each manifest listens on
func (s *Server) handleGraph(c *gin.Context) {
	graph := s.manager.Coordinator().DependencyGraph()

	out := make(map[string][]string, len(graph))
	for name, deps := range graph {
		keys := make([]string, 0, len(deps))
		for k := range deps {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out[name] = keys
	}

	c.JSON(http.StatusOK, gin.H{"graph": out})
}

// handlePlan returns the waves runnable with the given keys
func (s *Server) handlePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	pending := s.manager.Coordinator().PendingWaves(signals.AvailabilityOf(req.Available...))
	names := make([]string, len(pending))
	for i, m := range pending {
		names[i] = m.Name
	}

	c.JSON(http.StatusOK, gin.H{"pending": names})
}

// handleEscalation evaluates a manifest's escalation rule for a target
func (s *Server) handleEscalation(c *gin.Context) {
	name := c.Param("name")
	target := c.Param("target")

	if _, ok := s.manager.Coordinator().Manifests().Get(name); !ok {
		errorJSON(c, http.StatusNotFound, "NOT_FOUND", "Manifest not found")
		return
	}

	var req EscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	actx := signals.WithConfig(req.Config)
	for _, sig := range req.Signals {
		actx.Append(sig)
	}

	c.JSON(http.StatusOK, gin.H{
		"manifest": name,
		"target":   target,
		"escalate": s.manager.Coordinator().ShouldEscalate(name, target, actx),
	})
}

// handleSubmitRun handles run submission
func (s *Server) handleSubmitRun(c *gin.Context) {
	var req RunSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Error("invalid request", zap.Error(err))
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	if req.Subject.ID == "" && req.Subject.Location == "" {
		errorJSON(c, http.StatusBadRequest, "INVALID_REQUEST", "subject requires an id or a location")
		return
	}

	runID, err := s.manager.SubmitRun(c.Request.Context(), req.Subject, req.Config)
	if err != nil {
		s.logger.Error("failed to submit run", zap.Error(err))
		status := http.StatusUnprocessableEntity
		if errors.Is(err, workers.ErrQueueFull) || errors.Is(err, workers.ErrPoolClosed) {
			status = http.StatusServiceUnavailable
		}
		errorJSON(c, status, "SUBMISSION_FAILED", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, RunSubmitResponse{
		RunID:       runID,
		Status:      string(domain.RunStatusPending),
		SubmittedAt: time.Now(),
	})
}

// handleListRuns lists stored runs
func (s *Server) handleListRuns(c *gin.Context) {
	runs, err := s.manager.ListRuns(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to list runs", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to list runs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// handleGetRun returns a run record
func (s *Server) handleGetRun(c *gin.Context) {
	run, err := s.manager.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, orchestrator.ErrRunNotFound) {
			errorJSON(c, http.StatusNotFound, "NOT_FOUND", "Run not found")
			return
		}
		s.logger.Error("failed to get run", zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to get run")
		return
	}

	c.JSON(http.StatusOK, run)
}

// handleCancelRun handles run cancellation
func (s *Server) handleCancelRun(c *gin.Context) {
	runID := c.Param("id")

	if err := s.manager.CancelRun(c.Request.Context(), runID); err != nil {
		switch {
		case errors.Is(err, orchestrator.ErrRunNotFound):
			errorJSON(c, http.StatusNotFound, "NOT_FOUND", "Run not found")
		default:
			errorJSON(c, http.StatusConflict, "CANCELLATION_FAILED", err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":       runID,
		"status":       domain.RunStatusCancelled,
		"cancelled_at": time.Now(),
	})
}

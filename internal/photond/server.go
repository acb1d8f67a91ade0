package photond

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lumen-phi/photonic-core/internal/metrics"
	"github.com/lumen-phi/photonic-core/pkg/logger"
	"github.com/lumen-phi/photonic-core/pkg/models"
)

type HTTPServer struct {
	mux      *http.ServeMux
	store    *RunStore
	Executor *RunExecutor
}

func NewHTTPServer(store *RunStore, executor *RunExecutor) *HTTPServer {
	s := &HTTPServer{
		mux:      http.NewServeMux(),
		store:    store,
		Executor: executor,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/api/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/api/v1/runs/", s.handleRunByID)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
	}
}

// handleRuns handles /api/v1/runs
func (s *HTTPServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRunByID handles /api/v1/runs/{id} and related endpoints
func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/runs/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	if strings.HasSuffix(path, ":start") {
		runID := strings.TrimSuffix(path, ":start")
		if r.Method == http.MethodPost {
			s.handleStartRun(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, ":stop") {
		runID := strings.TrimSuffix(path, ":stop")
		if r.Method == http.MethodPost {
			s.handleStopRun(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/report") {
		runID := strings.TrimSuffix(path, "/report")
		if r.Method == http.MethodGet {
			s.handleGetReport(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/mask") {
		runID := strings.TrimSuffix(path, "/mask")
		if r.Method == http.MethodGet {
			s.handleGetMask(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if strings.HasSuffix(path, "/trace/stream") {
		runID := strings.TrimSuffix(path, "/trace/stream")
		if r.Method == http.MethodGet {
			s.handleTraceStream(w, r, runID)
		} else {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	if r.Method == http.MethodGet {
		s.handleGetRun(w, r, path)
	} else {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateRun handles POST /api/v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RunID        string `json:"run_id,omitempty"`
		Kind         string `json:"kind"`
		ChipYAML     string `json:"chip_yaml,omitempty"`
		ScenarioYAML string `json:"scenario_yaml,omitempty"`
		CallbackURL  string `json:"callback_url,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if req.Kind == "" {
		s.writeError(w, http.StatusBadRequest, "kind is required")
		return
	}

	input := &RunInput{
		ChipYAML:     req.ChipYAML,
		ScenarioYAML: req.ScenarioYAML,
		CallbackURL:  req.CallbackURL,
	}

	rec, err := s.store.Create(req.RunID, models.RunKind(req.Kind), input)
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "already exists"):
			s.writeError(w, http.StatusConflict, err.Error())
		case strings.Contains(err.Error(), "unknown run kind"):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("run created (HTTP)", "run_id", rec.Run.ID, "kind", req.Kind)
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"run": rec.Run,
	})
}

// handleListRuns handles GET /api/v1/runs with pagination and filtering
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 1000 {
				limit = 1000
			}
		}
	}

	offset := 0
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	var statusFilter models.RunStatus
	if statusStr := r.URL.Query().Get("status"); statusStr != "" {
		statusFilter = parseRunStatus(statusStr)
	}

	recs := s.store.ListFiltered(limit, offset, statusFilter)

	runs := make([]*models.Run, 0, len(recs))
	for _, rec := range recs {
		runs = append(runs, rec.Run)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"runs": runs,
		"pagination": map[string]any{
			"limit":  limit,
			"offset": offset,
			"count":  len(runs),
		},
	})
}

// parseRunStatus normalizes a status query value. Unknown values match
// every status.
func parseRunStatus(statusStr string) models.RunStatus {
	switch strings.ToLower(statusStr) {
	case "pending":
		return models.RunStatusPending
	case "running":
		return models.RunStatusRunning
	case "completed":
		return models.RunStatusCompleted
	case "degraded":
		return models.RunStatusDegraded
	case "failed":
		return models.RunStatusFailed
	case "cancelled":
		return models.RunStatusCancelled
	default:
		return ""
	}
}

// handleGetRun handles GET /api/v1/runs/{id}
func (s *HTTPServer) handleGetRun(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": rec.Run,
	})
}

// handleStartRun handles POST /api/v1/runs/{id}:start
func (s *HTTPServer) handleStartRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Start(runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrRunTerminal):
			s.writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, ErrRunIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("run started (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": updated.Run,
	})
}

// handleStopRun handles POST /api/v1/runs/{id}:stop
func (s *HTTPServer) handleStopRun(w http.ResponseWriter, _ *http.Request, runID string) {
	updated, err := s.Executor.Stop(runID)
	if err != nil {
		switch {
		case errors.Is(err, ErrRunNotFound):
			s.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, ErrRunIDMissing):
			s.writeError(w, http.StatusBadRequest, err.Error())
		case strings.Contains(err.Error(), "not found"):
			s.writeError(w, http.StatusNotFound, err.Error())
		default:
			s.writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	logger.Info("run cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{
		"run": updated.Run,
	})
}

// handleGetReport handles GET /api/v1/runs/{id}/report. The report carries
// whichever artifacts the run produced; a failed oscillator run still
// exposes its trace here.
func (s *HTTPServer) handleGetReport(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	if rec.Artifacts == nil {
		s.writeError(w, http.StatusPreconditionFailed, "report not available")
		return
	}

	export := map[string]any{
		"run": rec.Run,
	}
	if rec.Artifacts.Layout != nil {
		export["layout"] = rec.Artifacts.Layout
	}
	if rec.Artifacts.Report != nil {
		export["report"] = rec.Artifacts.Report
	}
	if rec.Artifacts.Trace != nil {
		export["trace"] = rec.Artifacts.Trace
	}
	if rec.Artifacts.Efficiency != nil {
		export["efficiency"] = rec.Artifacts.Efficiency
	}

	s.writeJSON(w, http.StatusOK, export)
}

// handleGetMask handles GET /api/v1/runs/{id}/mask and serves the encoded
// mask produced by a generate run.
func (s *HTTPServer) handleGetMask(w http.ResponseWriter, _ *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	if rec.Artifacts == nil || len(rec.Artifacts.Mask) == 0 {
		s.writeError(w, http.StatusPreconditionFailed, "mask not available")
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+runID+`.phim"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(rec.Artifacts.Mask); err != nil {
		logger.Error("failed to write mask response", "run_id", runID, "error", err)
	}
}

// handleTraceStream handles GET /api/v1/runs/{id}/trace/stream (SSE).
// Coherence samples recorded since the previous tick are batched into one
// event; the stream closes after the run reaches a terminal status.
func (s *HTTPServer) handleTraceStream(w http.ResponseWriter, r *http.Request, runID string) {
	rec, ok := s.store.Get(runID)
	if !ok {
		s.writeError(w, http.StatusNotFound, "run not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	previousStatus := rec.Run.Status
	s.sendSSEEvent(w, "status_change", map[string]any{
		"status": string(rec.Run.Status),
	})

	interval := 1 * time.Second
	if intervalStr := r.URL.Query().Get("interval_ms"); intervalStr != "" {
		if intervalMs, err := strconv.ParseInt(intervalStr, 10, 64); err == nil && intervalMs > 0 {
			interval = time.Duration(intervalMs) * time.Millisecond
		}
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	var lastStep int64 = -1

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rec, ok := s.store.Get(runID)
			if !ok {
				s.sendSSEEvent(w, "error", map[string]any{
					"error": "run not found",
				})
				return
			}

			// Snapshot the status before draining: the executor records
			// every sample before it marks the run terminal, so a terminal
			// snapshot means the drain below sees the full trace.
			status := rec.Run.Status

			if collector, ok := s.store.GetCollector(runID); ok && collector != nil {
				points := collector.Since(metrics.SeriesCoherence, nil, lastStep+1)
				if len(points) > 0 {
					batch := make([]map[string]any, 0, len(points))
					for _, p := range points {
						batch = append(batch, map[string]any{
							"step":  p.Step,
							"value": p.Value,
						})
					}
					s.sendSSEEvent(w, "coherence", map[string]any{
						"points": batch,
					})
					lastStep = points[len(points)-1].Step
				}
			}

			if status != previousStatus {
				s.sendSSEEvent(w, "status_change", map[string]any{
					"status": string(status),
				})
				previousStatus = status
			}

			if status.Terminal() {
				complete := map[string]any{
					"status": string(status),
				}
				if rec.Run.Error != "" {
					complete["error"] = rec.Run.Error
				}
				s.sendSSEEvent(w, "complete", complete)
				return
			}

			if flusher, ok := w.(http.Flusher); ok {
				flusher.Flush()
			}
		}
	}
}

// sendSSEEvent writes one event in SSE framing. Errors are logged but not
// returned; the stream is best-effort.
func (s *HTTPServer) sendSSEEvent(w http.ResponseWriter, eventType string, data map[string]any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		logger.Error("failed to marshal SSE event data", "error", err)
		return
	}

	if _, err := w.Write([]byte("event: " + eventType + "\n")); err != nil {
		logger.Error("failed to write SSE event header", "error", err)
		return
	}
	if _, err := w.Write([]byte("data: " + string(jsonData) + "\n\n")); err != nil {
		logger.Error("failed to write SSE event data", "error", err)
		return
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

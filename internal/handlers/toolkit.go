package handlers

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ternarybob/arbor"

	mediakit "github.com/mediakit/mediakit-go"
	"github.com/mediakit/mediakit-go/internal/storage"
	"github.com/mediakit/mediakit-go/internal/store"
)

// ToolkitHandler serves the /v1/toolkit routes: connectivity test,
// API key verification and job record inspection.
type ToolkitHandler struct {
	apiKey   string
	provider storage.Provider
	jobs     *store.Store
	logger   arbor.ILogger
}

// NewToolkitHandler creates a new toolkit handler.
func NewToolkitHandler(apiKey string, provider storage.Provider, jobs *store.Store, logger arbor.ILogger) *ToolkitHandler {
	return &ToolkitHandler{
		apiKey:   apiKey,
		provider: provider,
		jobs:     jobs,
		logger:   logger,
	}
}

// TestOperation verifies the pipeline end to end: it writes a small file
// through the storage provider and returns its URL. Registered
// bypass-eligible so it always responds synchronously.
func (h *ToolkitHandler) TestOperation() mediakit.Operation {
	return func(jobID string, payload map[string]any) (any, string, int) {
		tmp := filepath.Join(os.TempDir(), "toolkit-test-"+jobID+".txt")
		if err := os.WriteFile(tmp, []byte("You installed the media toolkit correctly.\n"), 0o644); err != nil {
			return err.Error(), "toolkit_test", 500
		}
		defer os.Remove(tmp)

		url, err := h.provider.Upload(context.Background(), tmp)
		if err != nil {
			h.logger.Error().Err(err).Str("job_id", jobID).Msg("Toolkit test upload failed")
			return err.Error(), "toolkit_test", 500
		}
		return url, "toolkit_test", 200
	}
}

// AuthenticateHandler verifies a presented API key.
// POST /v1/toolkit/authenticate
func (h *ToolkitHandler) AuthenticateHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	if r.Header.Get("X-API-Key") != h.apiKey {
		WriteError(w, http.StatusUnauthorized, "authorization failed")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": "success"})
}

// ListJobsHandler returns recent job records.
// GET /v1/toolkit/jobs?limit=50&offset=0&status=done
func (h *ToolkitHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit, offset := 50, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	status := store.Status(r.URL.Query().Get("status"))

	recs, err := h.jobs.List(limit, offset, status)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list job records")
		WriteError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  recs,
		"count": len(recs),
	})
}

// GetJobHandler returns one job record.
// GET /v1/toolkit/job/{job_id}
func (h *ToolkitHandler) GetJobHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	jobID := strings.TrimPrefix(r.URL.Path, "/v1/toolkit/job/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, http.StatusBadRequest, "job id required")
		return
	}

	rec, err := h.jobs.Get(jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

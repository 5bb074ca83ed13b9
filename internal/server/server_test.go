package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	mediakit "github.com/mediakit/mediakit-go"
	"github.com/mediakit/mediakit-go/internal/handlers"
	"github.com/mediakit/mediakit-go/internal/storage"
	"github.com/mediakit/mediakit-go/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := arbor.NewLogger()

	cfg := mediakit.DefaultConfig()
	cfg.APIKey = "test-key"

	provider, err := storage.NewLocal(t.TempDir(), "http://host:8080")
	require.NoError(t, err)

	jobs, err := store.Open(t.TempDir(), time.Hour, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	engine := mediakit.NewEngine(cfg)
	toolkit := handlers.NewToolkitHandler(cfg.APIKey, provider, jobs, logger)
	media := handlers.NewMediaHandler(provider, t.TempDir(), logger)
	return New(cfg, logger, engine, toolkit, media, provider.Dir())
}

func (s *Server) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.withMiddleware(s.router).ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	w := s.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "ok", m["status"])
	assert.Equal(t, float64(0), m["queue_length"])
	assert.NotEmpty(t, m["build_number"])
}

func TestServer_DebugRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.serve(httptest.NewRequest(http.MethodGet, "/debug/routes", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var routes []routeInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &routes))
	paths := make([]string, 0, len(routes))
	for _, r := range routes {
		paths = append(paths, r.Path)
	}
	assert.Contains(t, paths, "/v1/media/download")
	assert.Contains(t, paths, "/v1/media/transform/mp3")
	assert.Contains(t, paths, "/v1/toolkit/test")
}

func TestServer_ProtectedRoutesRequireAPIKey(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/media/download", strings.NewReader(`{}`))
	w := s.serve(req)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/toolkit/jobs", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = s.serve(req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestServer_AuthorizedRequestPassesThrough(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/toolkit/jobs", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := s.serve(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":0`)
}

func TestServer_DownloadPayloadValidation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/media/download", strings.NewReader(`{"id":"x"}`))
	req.Header.Set("X-API-Key", "test-key")
	w := s.serve(req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Contains(t, m["message"], "url is required")
}

func TestServer_MethodEnforcement(t *testing.T) {
	s := newTestServer(t)

	w := s.serve(httptest.NewRequest(http.MethodPost, "/health", nil))
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServer_ToolkitTestRunsInline(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/toolkit/test", strings.NewReader(`{}`))
	req.Header.Set("X-API-Key", "test-key")
	w := s.serve(req)
	require.Equal(t, http.StatusOK, w.Code)

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "success", m["message"])
	assert.Contains(t, m["response"], "/files/toolkit-test-")
}

func TestWrapLogger(t *testing.T) {
	log := WrapLogger(arbor.NewLogger())
	log.Debugf("debug %d", 1)
	log.Infof("info %s", "x")
	log.Warnf("warn")
	log.Errorf("error: %v", assert.AnError)
}

func TestServer_RecoveryMiddleware(t *testing.T) {
	s := newTestServer(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/panic", func(http.ResponseWriter, *http.Request) {
		panic("handler exploded")
	})

	w := httptest.NewRecorder()
	s.withMiddleware(mux).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

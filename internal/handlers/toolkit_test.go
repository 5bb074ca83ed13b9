package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	mediakit "github.com/mediakit/mediakit-go"
	"github.com/mediakit/mediakit-go/internal/storage"
	"github.com/mediakit/mediakit-go/internal/store"
)

func newTestToolkit(t *testing.T) *ToolkitHandler {
	t.Helper()
	provider, err := storage.NewLocal(t.TempDir(), "http://host:8080")
	require.NoError(t, err)

	jobs, err := store.Open(t.TempDir(), time.Hour, arbor.NewLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = jobs.Close() })

	return NewToolkitHandler("test-key", provider, jobs, arbor.NewLogger())
}

func TestToolkit_TestOperation(t *testing.T) {
	h := newTestToolkit(t)
	op := h.TestOperation()

	body, label, code := op("job-1", nil)
	require.Equal(t, 200, code)
	assert.Equal(t, "toolkit_test", label)
	assert.Contains(t, body.(string), "http://host:8080/files/toolkit-test-job-1.txt")
}

func TestToolkit_Authenticate(t *testing.T) {
	h := newTestToolkit(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/toolkit/authenticate", nil)
	req.Header.Set("X-API-Key", "test-key")
	w := httptest.NewRecorder()
	h.AuthenticateHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var m map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, "success", m["message"])
}

func TestToolkit_AuthenticateRejectsBadKey(t *testing.T) {
	h := newTestToolkit(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/toolkit/authenticate", nil)
	req.Header.Set("X-API-Key", "wrong")
	w := httptest.NewRecorder()
	h.AuthenticateHandler(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestToolkit_AuthenticateRequiresPost(t *testing.T) {
	h := newTestToolkit(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/toolkit/authenticate", nil)
	w := httptest.NewRecorder()
	h.AuthenticateHandler(w, req)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestToolkit_JobHandlers(t *testing.T) {
	h := newTestToolkit(t)

	job := &mediakit.Job{ID: "j1", Endpoint: "media_download", AdmittedAt: time.Now()}
	h.jobs.JobAdmitted(job)
	h.jobs.JobCompleted(job, &mediakit.Envelope{Code: 200, JobID: "j1", Message: "success"})

	req := httptest.NewRequest(http.MethodGet, "/v1/toolkit/jobs?status=done", nil)
	w := httptest.NewRecorder()
	h.ListJobsHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)

	req = httptest.NewRequest(http.MethodGet, "/v1/toolkit/job/j1", nil)
	w = httptest.NewRecorder()
	h.GetJobHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"JobID":"j1"`)
}

func TestToolkit_GetJobErrors(t *testing.T) {
	h := newTestToolkit(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/toolkit/job/", nil)
	w := httptest.NewRecorder()
	h.GetJobHandler(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/toolkit/job/missing", nil)
	w = httptest.NewRecorder()
	h.GetJobHandler(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}

package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("video bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path, err := Fetch(context.Background(), srv.URL+"/clip.mp4", dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "clip.mp4"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "video bytes", string(data))
}

func TestFetch_NamelessPathGetsGeneratedName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	path, err := Fetch(context.Background(), srv.URL, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "source-")
}

func TestFetch_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.URL+"/missing.mp4", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 404")
}

func TestFetch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fetch(ctx, "http://127.0.0.1:1/never", t.TempDir())
	require.Error(t, err)
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "", firstLine(""))
	assert.Equal(t, "one", firstLine("one"))
	assert.Equal(t, "first", firstLine("first\nsecond\nthird"))
	assert.Equal(t, "trimmed", firstLine("  trimmed  \n"))
}

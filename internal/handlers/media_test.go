package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/mediakit/mediakit-go/internal/storage"
)

func newTestMedia(t *testing.T) *MediaHandler {
	t.Helper()
	provider, err := storage.NewLocal(t.TempDir(), "http://host:8080")
	require.NoError(t, err)
	return NewMediaHandler(provider, t.TempDir(), arbor.NewLogger())
}

func TestMedia_DownloadPayloadCheck(t *testing.T) {
	check := newTestMedia(t).DownloadPayloadCheck()

	require.NoError(t, check(map[string]any{"url": "https://example.com/v.mp4"}))
	require.Error(t, check(map[string]any{}))
	require.Error(t, check(map[string]any{"url": "not a url"}))
}

func TestMedia_Mp3PayloadCheck(t *testing.T) {
	check := newTestMedia(t).Mp3PayloadCheck()

	require.NoError(t, check(map[string]any{"media_url": "https://example.com/v.mp4"}))

	err := check(map[string]any{"media_url": ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media_url")
}

func TestMedia_OperationRejectsBadPayloadShape(t *testing.T) {
	op := newTestMedia(t).Mp3Operation()

	// media_url of the wrong type fails decode before any processing.
	body, label, code := op("j1", map[string]any{"media_url": 5})
	require.Equal(t, 500, code)
	assert.Equal(t, "media_transform_mp3", label)
	assert.NotEmpty(t, body)
}

func TestDecodePayload(t *testing.T) {
	var p downloadPayload
	require.NoError(t, decodePayload(map[string]any{"url": "https://x", "format": "mp4"}, &p))
	assert.Equal(t, "https://x", p.URL)
	assert.Equal(t, "mp4", p.Format)
}

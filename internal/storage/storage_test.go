package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocal_RequiresDirectory(t *testing.T) {
	_, err := NewLocal("", "http://host")
	require.Error(t, err)
}

func TestLocalProvider_Upload(t *testing.T) {
	dir := t.TempDir()
	p, err := NewLocal(dir, "http://host:8080")
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "out.mp3")
	require.NoError(t, os.WriteFile(src, []byte("audio bytes"), 0o644))

	url, err := p.Upload(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, "http://host:8080/files/out.mp3", url)

	stored, err := os.ReadFile(filepath.Join(dir, "out.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "audio bytes", string(stored))
}

func TestLocalProvider_UploadMissingSource(t *testing.T) {
	p, err := NewLocal(t.TempDir(), "http://host")
	require.NoError(t, err)

	_, err = p.Upload(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"))
	require.Error(t, err)
}

func TestLocalProvider_UploadCancelledContext(t *testing.T) {
	p, err := NewLocal(t.TempDir(), "http://host")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Upload(ctx, "anything")
	require.ErrorIs(t, err, context.Canceled)
}

// Package storage abstracts where finished media artifacts are uploaded.
// Operations receive a Provider and never care which backend is behind it.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Provider uploads a local file and returns its externally reachable URL.
type Provider interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// LocalProvider copies files into a served directory. It is the default
// backend; the server exposes the directory under /files/.
type LocalProvider struct {
	dir     string
	baseURL string
}

// NewLocal creates a local provider rooted at dir. baseURL is the public
// prefix the server serves the directory under, e.g. "http://host:8080".
func NewLocal(dir, baseURL string) (*LocalProvider, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	return &LocalProvider{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the directory files are stored in.
func (p *LocalProvider) Dir() string { return p.dir }

// Upload copies the file into the storage directory and returns its URL.
func (p *LocalProvider) Upload(ctx context.Context, localPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("storage: open source: %w", err)
	}
	defer src.Close()

	name := filepath.Base(localPath)
	dst, err := os.Create(filepath.Join(p.dir, name))
	if err != nil {
		return "", fmt.Errorf("storage: create destination: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("storage: copy: %w", err)
	}
	return p.baseURL + "/files/" + name, nil
}

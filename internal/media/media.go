// Package media shells out to yt-dlp and ffmpeg. These wrappers are
// business logic invoked through the admission core; the core only sees
// their results as (body, label, status) tuples.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Download fetches a video with yt-dlp and returns the local file path.
// format follows yt-dlp format selection; empty means "best".
func Download(ctx context.Context, url, format, dir string) (string, error) {
	if format == "" {
		format = "best"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: create download directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"-f", format,
		"--no-warnings",
		"--no-simulate",
		"--print", "after_move:filepath",
		"-o", filepath.Join(dir, "%(title)s.%(ext)s"),
		url,
	)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("media: yt-dlp failed: %v: %s", err, firstLine(stderr.String()))
	}

	path := strings.TrimSpace(stdout.String())
	if path == "" {
		return "", fmt.Errorf("media: yt-dlp produced no output file")
	}
	return path, nil
}

// ToMP3 extracts the audio track of src into an mp3 in dir.
func ToMP3(ctx context.Context, src, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: create output directory: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	out := filepath.Join(dir, base+".mp3")

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-i", src,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", "2",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("media: ffmpeg failed: %v: %s", err, firstLine(stderr.String()))
	}
	return out, nil
}

// Fetch downloads a source file over HTTP into dir and returns its path.
func Fetch(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("media: create fetch directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("media: build request: %w", err)
	}
	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media: fetch source: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("media: fetch source: unexpected status %d", resp.StatusCode)
	}

	name := filepath.Base(req.URL.Path)
	if name == "" || name == "/" || name == "." {
		name = fmt.Sprintf("source-%d", time.Now().UnixMilli())
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("media: create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("media: write file: %w", err)
	}
	return path, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

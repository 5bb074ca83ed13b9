package handlers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"

	mediakit "github.com/mediakit/mediakit-go"
	"github.com/mediakit/mediakit-go/internal/media"
	"github.com/mediakit/mediakit-go/internal/storage"
)

// MediaHandler provides the media operations wrapped by the admission
// gateway. Each operation downloads or transforms locally, uploads the
// artifact through the storage provider and cleans up after itself.
type MediaHandler struct {
	provider storage.Provider
	workDir  string
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewMediaHandler creates a new media handler. workDir holds scratch files
// during processing.
func NewMediaHandler(provider storage.Provider, workDir string, logger arbor.ILogger) *MediaHandler {
	return &MediaHandler{
		provider: provider,
		workDir:  workDir,
		validate: validator.New(),
		logger:   logger,
	}
}

type downloadPayload struct {
	URL    string `json:"url" validate:"required,url"`
	Format string `json:"format"`
}

type mp3Payload struct {
	MediaURL string `json:"media_url" validate:"required,url"`
}

// DownloadOperation fetches a video with yt-dlp and uploads it.
func (h *MediaHandler) DownloadOperation() mediakit.Operation {
	return func(jobID string, payload map[string]any) (any, string, int) {
		const label = "media_download"
		var p downloadPayload
		if err := decodePayload(payload, &p); err != nil {
			return err.Error(), label, 500
		}

		dir := filepath.Join(h.workDir, jobID)
		defer os.RemoveAll(dir)

		path, err := media.Download(context.Background(), p.URL, p.Format, dir)
		if err != nil {
			h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Download failed")
			return err.Error(), label, 500
		}
		url, err := h.provider.Upload(context.Background(), path)
		if err != nil {
			h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Upload failed")
			return err.Error(), label, 500
		}
		return map[string]any{"url": url, "filename": filepath.Base(path)}, label, 200
	}
}

// DownloadPayloadCheck validates the download payload before admission.
func (h *MediaHandler) DownloadPayloadCheck() func(map[string]any) error {
	return func(payload map[string]any) error {
		var p downloadPayload
		if err := decodePayload(payload, &p); err != nil {
			return err
		}
		if err := h.validate.Struct(p); err != nil {
			return fmt.Errorf("invalid payload: url is required and must be a valid URL")
		}
		return nil
	}
}

// Mp3Operation fetches a media file and extracts its audio as mp3.
func (h *MediaHandler) Mp3Operation() mediakit.Operation {
	return func(jobID string, payload map[string]any) (any, string, int) {
		const label = "media_transform_mp3"
		var p mp3Payload
		if err := decodePayload(payload, &p); err != nil {
			return err.Error(), label, 500
		}

		dir := filepath.Join(h.workDir, jobID)
		defer os.RemoveAll(dir)

		src, err := media.Fetch(context.Background(), p.MediaURL, dir)
		if err != nil {
			h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Source fetch failed")
			return err.Error(), label, 500
		}
		out, err := media.ToMP3(context.Background(), src, dir)
		if err != nil {
			h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Transcode failed")
			return err.Error(), label, 500
		}
		url, err := h.provider.Upload(context.Background(), out)
		if err != nil {
			h.logger.Warn().Err(err).Str("job_id", jobID).Msg("Upload failed")
			return err.Error(), label, 500
		}
		return map[string]any{"url": url, "filename": filepath.Base(out)}, label, 200
	}
}

// Mp3PayloadCheck validates the mp3 payload before admission.
func (h *MediaHandler) Mp3PayloadCheck() func(map[string]any) error {
	return func(payload map[string]any) error {
		var p mp3Payload
		if err := decodePayload(payload, &p); err != nil {
			return err
		}
		if err := h.validate.Struct(p); err != nil {
			return fmt.Errorf("invalid payload: media_url is required and must be a valid URL")
		}
		return nil
	}
}

// decodePayload round-trips a payload map into a typed struct.
func decodePayload(payload map[string]any, v any) error {
	enc := &mediakit.JSONEncoder{}
	raw, err := enc.Encode(payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return enc.Decode(raw, v)
}

// Package metadata enriches a URL with title/channel/thumbnail details via
// the extraction tool's --dump-json mode, with a fallback record when the
// tool cannot be run so callers never have to surface a hard failure.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os/exec"
	"strings"
	"time"

	"github.com/viddown/api/internal/model"
)

const defaultTimeout = 60 * time.Second

type Service struct {
	ytdlpPath string
	userAgent string
	timeout   time.Duration
}

func NewService(ytdlpPath, userAgent string) *Service {
	return &Service{
		ytdlpPath: ytdlpPath,
		userAgent: userAgent,
		timeout:   defaultTimeout,
	}
}

// SetTimeout bounds a single metadata probe.
func (s *Service) SetTimeout(d time.Duration) {
	s.timeout = d
}

// dumpJSON is the subset of yt-dlp's --dump-json output we consume.
type dumpJSON struct {
	Title          string  `json:"title"`
	Uploader       string  `json:"uploader"`
	Channel        string  `json:"channel"`
	Thumbnail      string  `json:"thumbnail"`
	DurationString string  `json:"duration_string"`
	Filesize       int64   `json:"filesize"`
	FilesizeApprox float64 `json:"filesize_approx"`
	ExtractorKey   string  `json:"extractor_key"`
}

// Fetch runs the extraction tool in dump-json mode. It never returns an
// error: when the probe fails, a placeholder record is returned so the UI
// still renders something for the URL.
func (s *Service) Fetch(ctx context.Context, url string) *model.Metadata {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, s.ytdlpPath,
		"--no-playlist",
		"--no-warnings",
		"--user-agent", s.userAgent,
		"--dump-json",
		url,
	)

	out, err := cmd.Output()
	if err != nil {
		log.Printf("metadata: probe failed for %s: %v", url, err)
		return fallback(url)
	}

	var data dumpJSON
	if err := json.Unmarshal(out, &data); err != nil {
		log.Printf("metadata: unparseable dump-json for %s: %v", url, err)
		return fallback(url)
	}

	meta := &model.Metadata{
		Title:       data.Title,
		Channel:     data.Uploader,
		Thumbnail:   data.Thumbnail,
		Duration:    data.DurationString,
		SizeBytes:   data.Filesize,
		Platform:    data.ExtractorKey,
		OriginalURL: url,
	}
	if meta.Title == "" {
		meta.Title = "Untitled"
	}
	if meta.Channel == "" {
		meta.Channel = data.Channel
	}
	if meta.Channel == "" {
		meta.Channel = "Unknown channel"
	}
	if meta.Duration == "" {
		meta.Duration = "0:00"
	}
	if meta.SizeBytes == 0 {
		meta.SizeBytes = int64(data.FilesizeApprox)
	}
	if meta.Platform == "" {
		meta.Platform = "Unknown"
	}
	return meta
}

func fallback(url string) *model.Metadata {
	return &model.Metadata{
		Title:       "Detected video",
		Channel:     "Unknown channel",
		Thumbnail:   fmt.Sprintf("https://picsum.photos/seed/%d/1280/720", rand.Int63()),
		Duration:    "0:00",
		Platform:    "Unknown",
		OriginalURL: url,
	}
}

// Version reports the extraction tool's version, used by the health check.
func (s *Service) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, s.ytdlpPath, "--version").Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

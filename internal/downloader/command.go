package downloader

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Request describes one extraction to run. Title is only used to synthesize
// the client-facing filename; the on-disk name is always bound to the job id.
type Request struct {
	URL     string
	Format  string
	Quality string
	Title   string
}

const (
	defaultHeight    = "1080"
	defaultContainer = "mp4"
)

var digitsRe = regexp.MustCompile(`\d+`)

// OutputTemplate returns the yt-dlp output template for a job. The tool picks
// the extension, which is discovered afterwards by scanning for the id prefix.
func OutputTemplate(dir, jobID string) string {
	return filepath.Join(dir, jobID+".%(ext)s")
}

// BuildArgs translates a request into the yt-dlp argument list. Audio formats
// use extraction mode at maximum quality; video formats use a selection
// expression that prefers separate best streams up to the requested height and
// degrades to unconditional best, merged into the requested container.
func BuildArgs(req Request, outputTemplate, ffmpegPath, userAgent string) []string {
	args := []string{
		"--no-playlist",
		"--newline",
		"--user-agent", userAgent,
		"--ffmpeg-location", ffmpegPath,
		"-o", outputTemplate,
	}

	if isAudioFormat(req.Format) {
		args = append(args,
			"-x",
			"--audio-format", strings.ToLower(req.Format),
			"--audio-quality", "0",
		)
	} else {
		height := heightFromQuality(req.Quality)
		container := containerFor(req.Format)
		args = append(args,
			"-f", formatExpression(height, container),
			"--merge-output-format", container,
		)
	}

	return append(args, req.URL)
}

func formatExpression(height, container string) string {
	if container == "mp4" {
		return fmt.Sprintf("bestvideo[height<=%s][ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best", height)
	}
	return fmt.Sprintf("bestvideo[height<=%s]+bestaudio/best", height)
}

func isAudioFormat(format string) bool {
	switch strings.ToLower(format) {
	case "mp3", "m4a", "opus", "flac", "wav":
		return true
	}
	return false
}

func containerFor(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		return defaultContainer
	}
	return f
}

// heightFromQuality pulls the target height out of a quality descriptor like
// "1080p" or "720". Anything without digits falls back to 1080.
func heightFromQuality(quality string) string {
	if m := digitsRe.FindString(quality); m != "" {
		return m
	}
	return defaultHeight
}

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// SynthesizeFileName combines the user-supplied title with the extension the
// extraction tool chose on disk.
func SynthesizeFileName(title, ext string) string {
	clean := strings.ToLower(strings.Trim(nonAlnumRe.ReplaceAllString(title, "_"), "_"))
	if clean == "" {
		clean = "video"
	}
	return clean + "." + ext
}

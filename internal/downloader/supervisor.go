package downloader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/viddown/api/internal/model"
	"github.com/viddown/api/internal/store"
)

// Notifier receives job lifecycle events for push delivery (WebSocket hub in
// production). The polling endpoints never depend on it.
type Notifier interface {
	BroadcastProgress(jobID string, progress int, status model.JobStatus)
	BroadcastComplete(jobID, fileName string)
	BroadcastError(jobID, code, message string)
}

// Supervisor launches and observes one extraction subprocess per job,
// translating its streamed output and exit status into job store updates.
// Exactly one subprocess is associated with a job; there is no re-spawn and
// no client-triggered cancellation, only the hard per-job timeout.
type Supervisor struct {
	store      store.Store
	notifier   Notifier
	extractor  ProgressExtractor
	dir        string
	ytdlpPath  string
	ffmpegPath string
	userAgent  string
	timeout    time.Duration
}

func NewSupervisor(s store.Store, n Notifier, dir, ytdlpPath, ffmpegPath, userAgent string, timeout time.Duration) *Supervisor {
	return &Supervisor{
		store:      s,
		notifier:   n,
		extractor:  PercentExtractor{},
		dir:        dir,
		ytdlpPath:  ytdlpPath,
		ffmpegPath: ffmpegPath,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// SetExtractor swaps the progress parsing strategy.
func (s *Supervisor) SetExtractor(e ProgressExtractor) {
	s.extractor = e
}

// Launch starts the subprocess in the background and returns immediately.
// The job must already exist in the store so the janitor protects its output
// files from the moment anything can be written.
func (s *Supervisor) Launch(jobID string, req Request) {
	go s.run(jobID, req)
}

func (s *Supervisor) run(jobID string, req Request) {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := BuildArgs(req, OutputTemplate(s.dir, jobID), s.ffmpegPath, s.userAgent)
	cmd := exec.CommandContext(ctx, s.ytdlpPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		s.fail(jobID, fmt.Sprintf("Failed to start download: %v", err))
		return
	}

	log.Printf("job %s: executing %s %s", jobID, s.ytdlpPath, strings.Join(args, " "))
	if err := cmd.Start(); err != nil {
		s.fail(jobID, fmt.Sprintf("Failed to start download: %v", err))
		return
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		progress, ok := s.extractor.Extract(scanner.Text())
		if !ok {
			continue
		}
		s.store.Update(jobID, model.JobUpdate{Progress: &progress})
		if s.notifier != nil {
			s.notifier.BroadcastProgress(jobID, progress, model.JobStatusProcessing)
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			s.fail(jobID, fmt.Sprintf("Download timed out after %s", s.timeout))
			return
		}
		if exitErr, ok := err.(*exec.ExitError); ok {
			log.Printf("job %s: yt-dlp stderr: %s", jobID, strings.TrimSpace(stderr.String()))
			s.fail(jobID, fmt.Sprintf("Exit code %d", exitErr.ExitCode()))
			return
		}
		s.fail(jobID, fmt.Sprintf("Download failed: %v", err))
		return
	}

	s.finalize(jobID, req)
}

// finalize locates the produced file and flips the job to ready. A zero exit
// code with no matching file is an inconsistency and treated as an error.
func (s *Supervisor) finalize(jobID string, req Request) {
	name, err := FindByPrefix(s.dir, jobID)
	if err != nil {
		s.fail(jobID, "File not found after download")
		return
	}

	ext := strings.TrimPrefix(strings.TrimPrefix(name, jobID), ".")
	fileName := SynthesizeFileName(req.Title, ext)
	filePath := filepath.Join(s.dir, name)

	status := model.JobStatusReady
	progress := 100
	s.store.Update(jobID, model.JobUpdate{
		Status:   &status,
		Progress: &progress,
		FilePath: &filePath,
		FileName: &fileName,
	})
	if s.notifier != nil {
		s.notifier.BroadcastComplete(jobID, fileName)
	}
	log.Printf("job %s: ready (%s)", jobID, fileName)
}

func (s *Supervisor) fail(jobID, message string) {
	status := model.JobStatusError
	s.store.Update(jobID, model.JobUpdate{
		Status: &status,
		Error:  &message,
	})
	if s.notifier != nil {
		s.notifier.BroadcastError(jobID, "DOWNLOAD_FAILED", message)
	}
	log.Printf("job %s: failed: %s", jobID, message)
}

// FindByPrefix returns the name of the first regular file in dir whose name
// starts with the job id. The extension is chosen by the extraction tool and
// is not known in advance.
func FindByPrefix(dir, jobID string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.HasPrefix(entry.Name(), jobID) {
			return entry.Name(), nil
		}
	}
	return "", fmt.Errorf("no file with prefix %s in %s", jobID, dir)
}

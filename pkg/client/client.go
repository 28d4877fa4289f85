// Package client drives the job API's polling protocol: start a job, poll
// its status until a terminal state, retrieve the artifact, and resume
// polling for job ids persisted across a reload.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Status values. The first three mirror the server's state machine; the rest
// are presentation states that exist only on the client, projected on top.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"

	StatusQueued      Status = "queued"
	StatusDownloading Status = "downloading"
	StatusCompleted   Status = "completed"
)

// Terminal reports whether the server will make no further transitions.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// ErrSessionExpired means the server no longer knows the job id: it was
// served, garbage-collected, or lost to a restart. Callers must stop polling
// and surface the expiry instead of retrying forever.
var ErrSessionExpired = errors.New("session expired: job unknown to server")

// ErrNotReady means the job exists but its artifact is not available, either
// because it is still processing or because it failed.
var ErrNotReady = errors.New("job is not ready to serve")

const sessionExpiredMessage = "Session expired, please resubmit the download"

// StartRequest is the body of POST /api/process.
type StartRequest struct {
	URL     string `json:"url"`
	Format  string `json:"format,omitempty"`
	Quality string `json:"quality,omitempty"`
	Title   string `json:"title,omitempty"`
}

// JobStatus is one status poll result.
type JobStatus struct {
	Status   Status  `json:"status"`
	Progress int     `json:"progress"`
	Error    *string `json:"error,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	interval   time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPollInterval overrides the status polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.interval = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		interval:   2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start submits a download and returns the job id. The server acknowledges
// before the extraction finishes; poll with Status or Poll afterwards.
func (c *Client) Start(ctx context.Context, req StartRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/process", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", apiError(resp)
	}

	var ack struct {
		JobID string `json:"jobId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", err
	}
	return ack.JobID, nil
}

// Status polls the job once. An unknown id returns ErrSessionExpired.
func (c *Client) Status(ctx context.Context, jobID string) (*JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/process/"+jobID, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSessionExpired
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var status JobStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Poll polls on a fixed interval until the job reaches a terminal state.
// onProgress, if non-nil, is invoked for every poll result.
func (c *Client) Poll(ctx context.Context, jobID string, onProgress func(JobStatus)) (*JobStatus, error) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		status, err := c.Status(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onProgress != nil {
			onProgress(*status)
		}
		if status.Status.Terminal() {
			return status, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Fetch retrieves a ready job's artifact into dir, named by the server's
// suggested filename, and returns the written path. The server deletes the
// job record after a successful transfer, so a follow-up Status call yields
// ErrSessionExpired; the caller should mark the job completed instead.
func (c *Client) Fetch(ctx context.Context, jobID, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/serve/"+jobID, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return "", ErrSessionExpired
	case http.StatusConflict:
		return "", ErrNotReady
	default:
		return "", apiError(resp)
	}

	name := suggestedFileName(resp)
	if name == "" {
		name = jobID
	}
	path := filepath.Join(dir, filepath.Base(name))

	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// Resume re-attaches to job ids persisted before a reload. Ids the server no
// longer knows come back as error states with a session-expired message
// rather than being polled indefinitely.
func (c *Client) Resume(ctx context.Context, jobIDs []string) map[string]*JobStatus {
	results := make(map[string]*JobStatus, len(jobIDs))
	for _, id := range jobIDs {
		status, err := c.Status(ctx, id)
		switch {
		case err == nil:
			results[id] = status
		case errors.Is(err, ErrSessionExpired):
			msg := sessionExpiredMessage
			results[id] = &JobStatus{Status: StatusError, Error: &msg}
		default:
			msg := err.Error()
			results[id] = &JobStatus{Status: StatusError, Error: &msg}
		}
	}
	return results
}

// TransferPhase tracks the client's own artifact transfer for presentation.
type TransferPhase int

const (
	TransferNotStarted TransferPhase = iota
	TransferInFlight
	TransferDone
)

// Present projects the server's three-state machine plus the local transfer
// phase onto the richer presentation vocabulary. It adds no server state.
func Present(status Status, phase TransferPhase) Status {
	switch status {
	case StatusError:
		return StatusError
	case StatusProcessing:
		return StatusProcessing
	case StatusReady:
		switch phase {
		case TransferInFlight:
			return StatusDownloading
		case TransferDone:
			return StatusCompleted
		default:
			return StatusReady
		}
	default:
		return StatusQueued
	}
}

func suggestedFileName(resp *http.Response) string {
	cd := resp.Header.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func apiError(resp *http.Response) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Message != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, envelope.Error.Message)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

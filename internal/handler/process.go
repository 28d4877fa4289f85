package handler

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/viddown/api/internal/downloader"
	"github.com/viddown/api/internal/model"
	"github.com/viddown/api/internal/store"
	"github.com/viddown/api/pkg/response"
)

type ProcessHandler struct {
	store      store.Store
	supervisor *downloader.Supervisor
	janitor    *downloader.Janitor
	validator  *validator.Validate
}

func NewProcessHandler(s store.Store, sup *downloader.Supervisor, j *downloader.Janitor, v *validator.Validate) *ProcessHandler {
	return &ProcessHandler{
		store:      s,
		supervisor: sup,
		janitor:    j,
		validator:  v,
	}
}

// Start handles POST /api/process. It registers the job, reclaims stale
// files, spawns the extraction subprocess and returns the job id without
// waiting for the subprocess to finish.
func (h *ProcessHandler) Start(c *fiber.Ctx) error {
	var req model.ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	jobID := uuid.New().String()

	// Register before sweeping and spawning so the janitor never sees this
	// job's output files as unclaimed.
	if _, err := h.store.Create(jobID); err != nil {
		return response.ServiceError(c, err.Error())
	}

	if err := h.janitor.Sweep(); err != nil {
		log.Printf("process: pre-spawn sweep failed: %v", err)
	}

	h.supervisor.Launch(jobID, downloader.Request{
		URL:     req.URL,
		Format:  req.Format,
		Quality: req.Quality,
		Title:   req.Title,
	})

	return response.Accepted(c, model.ProcessResponse{JobID: jobID})
}

// Status handles GET /api/process/:jobId. Unknown ids (never issued,
// already served, or lost to a restart) all read as not found.
func (h *ProcessHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, ok := h.store.Get(jobID)
	if !ok {
		return response.NotFound(c, "Job not found")
	}

	return response.OK(c, model.StatusResponse{
		Status:   job.Status,
		Progress: job.Progress,
		Error:    job.Error,
	})
}

// Serve handles GET /api/serve/:jobId. It streams the artifact under its
// synthesized filename, then removes the job record and sweeps. A failed
// transfer leaves the job ready so the client can retry.
func (h *ProcessHandler) Serve(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, ok := h.store.Get(jobID)
	if !ok {
		return response.NotFound(c, "Job not found")
	}
	if job.Status != model.JobStatusReady || job.FilePath == "" {
		return response.NotReady(c, "Job is not ready to serve")
	}

	if err := c.Download(job.FilePath, job.FileName); err != nil {
		log.Printf("serve: transfer failed for job %s: %v", jobID, err)
		return response.ServiceError(c, "Failed to send file")
	}

	// The response body may still be streaming, but unlinking an open file
	// does not disturb the in-flight transfer on POSIX systems.
	h.store.Delete(jobID)
	if err := h.janitor.Sweep(); err != nil {
		log.Printf("serve: post-transfer sweep failed: %v", err)
	}
	return nil
}

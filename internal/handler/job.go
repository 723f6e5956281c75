package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/voxsplit/api/internal/model"
	"github.com/voxsplit/api/internal/service"
	"github.com/voxsplit/api/pkg/response"
)

type JobHandler struct {
	jobs *service.JobService
}

func NewJobHandler(jobs *service.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// Analyze handles POST /api/jobs/:jobId/analyze
func (h *JobHandler) Analyze(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.jobs.Start(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.Accepted(c, model.JobStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		CreatedAt:   job.CreatedAt,
	})
}

// Status handles GET /api/jobs/:jobId/status
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.jobs.Status(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}

	return response.OK(c, result)
}

// Tracks handles GET /api/jobs/:jobId/tracks
func (h *JobHandler) Tracks(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	job, err := h.jobs.Get(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}
	if job.Status != model.JobStatusComplete {
		return serviceError(c, fmt.Errorf("%w: job is %s", model.ErrJobNotComplete, job.Status))
	}

	return response.OK(c, model.TrackListResponse{
		JobID:        job.ID,
		Tracks:       job.Tracks,
		SpeakerCount: job.SpeakerCount,
		Duration:     job.Duration,
	})
}

// TrackAudio handles GET /api/jobs/:jobId/tracks/:trackId/audio
func (h *JobHandler) TrackAudio(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	trackID := c.Params("trackId")
	if jobID == "" || trackID == "" {
		return response.ValidationError(c, "Job ID and track ID are required", nil)
	}

	job, err := h.jobs.Get(c.Context(), jobID)
	if err != nil {
		return serviceError(c, err)
	}
	if job.Status != model.JobStatusComplete {
		return serviceError(c, fmt.Errorf("%w: job is %s", model.ErrJobNotComplete, job.Status))
	}

	for _, t := range job.Tracks {
		if t.ID == trackID {
			c.Set(fiber.HeaderContentType, "audio/wav")
			return c.SendFile(t.FilePath)
		}
	}
	return response.NotFound(c, "Track not found")
}

// Delete handles DELETE /api/jobs/:jobId. Deleting an in-flight job
// cancels it.
func (h *JobHandler) Delete(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	if err := h.jobs.Delete(c.Context(), jobID); err != nil {
		return serviceError(c, err)
	}
	return response.NoContent(c)
}

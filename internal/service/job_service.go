package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voxsplit/api/internal/model"
	"github.com/voxsplit/api/internal/store"
)

const TaskTypeAnalysis = "analysis:process"

// QueueAnalysis is the asynq queue all analysis jobs run on; its
// concurrency forms the bounded worker pool.
const QueueAnalysis = "analysis"

// AnalysisTaskPayload is the task body handed to the worker.
type AnalysisTaskPayload struct {
	JobID string `json:"jobId"`
}

// AnalysisEnqueuer hands a job to the worker pool.
type AnalysisEnqueuer interface {
	EnqueueAnalysis(ctx context.Context, jobID string) error
}

// AsynqEnqueuer enqueues analysis tasks on the asynq queue. Adapter
// failures are terminal by design, so tasks carry no retries.
type AsynqEnqueuer struct {
	client *asynq.Client
}

func NewAsynqEnqueuer(client *asynq.Client) *AsynqEnqueuer {
	return &AsynqEnqueuer{client: client}
}

func (e *AsynqEnqueuer) EnqueueAnalysis(ctx context.Context, jobID string) error {
	data, err := json.Marshal(AnalysisTaskPayload{JobID: jobID})
	if err != nil {
		return err
	}
	task := asynq.NewTask(TaskTypeAnalysis, data)
	_, err = e.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueAnalysis),
		asynq.MaxRetry(0),
		asynq.Retention(store.DefaultRetention),
	)
	return err
}

// JobService owns the job lifecycle: creation, start, status snapshots,
// deletion, and the worker-facing progress transitions.
type JobService struct {
	store    store.JobStore
	enqueuer AnalysisEnqueuer
}

func NewJobService(jobStore store.JobStore, enqueuer AnalysisEnqueuer) *JobService {
	return &JobService{store: jobStore, enqueuer: enqueuer}
}

// UploadMeta carries everything the upload collaborator learned about
// the recording.
type UploadMeta struct {
	JobID        string
	Filename     string
	OriginalPath string
	WavPath      string
	UploadDir    string
	OutputDir    string
	Duration     float64
	SampleRate   int
}

// Create allocates a pending job. No side effects beyond bookkeeping.
func (s *JobService) Create(ctx context.Context, meta UploadMeta) (*model.Job, error) {
	job := &model.Job{
		ID:               meta.JobID,
		OriginalFilename: meta.Filename,
		OriginalPath:     meta.OriginalPath,
		WavPath:          meta.WavPath,
		UploadDir:        meta.UploadDir,
		OutputDir:        meta.OutputDir,
		Duration:         meta.Duration,
		SampleRate:       meta.SampleRate,
		Status:           model.JobStatusPending,
		Progress:         0,
		CurrentStep:      "Uploaded",
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}
	return job, nil
}

// Start transitions pending → processing and hands the job to the
// worker pool.
func (s *JobService) Start(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusPending {
		return nil, fmt.Errorf("%w: job is %s", model.ErrInvalidState, job.Status)
	}

	job.Status = model.JobStatusProcessing
	job.CurrentStep = "Starting analysis..."
	if err := s.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	if err := s.enqueuer.EnqueueAnalysis(ctx, jobID); err != nil {
		return nil, fmt.Errorf("failed to enqueue analysis: %w", err)
	}
	return job, nil
}

// Get returns the stored job record.
func (s *JobService) Get(ctx context.Context, jobID string) (*model.Job, error) {
	return s.store.Get(ctx, jobID)
}

// Status returns a polling snapshot. Read-only and safe at any rate;
// tracks appear only once the job is complete.
func (s *JobService) Status(ctx context.Context, jobID string) (*model.JobStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	resp := &model.JobStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == model.JobStatusComplete {
		resp.Tracks = job.Tracks
		resp.SpeakerCount = job.SpeakerCount
	}
	return resp, nil
}

// Delete removes the job and every artifact. Valid in any state: the
// record goes first so the job is immediately unobservable, then the
// directories. An in-flight worker discovers the missing record at its
// next progress write and discards its results.
func (s *JobService) Delete(ctx context.Context, jobID string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, jobID); err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	if job.UploadDir != "" {
		os.RemoveAll(job.UploadDir)
	}
	if job.OutputDir != "" {
		os.RemoveAll(job.OutputDir)
	}
	return nil
}

// SetProgress records a worker progress update. Terminal jobs are
// frozen and progress never moves backwards.
func (s *JobService) SetProgress(ctx context.Context, jobID string, status model.JobStatus, progress int, step string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	if progress > job.Progress {
		job.Progress = progress
	}
	job.Status = status
	job.CurrentStep = step
	return s.store.Save(ctx, job)
}

// Complete finalizes the job with its track list.
func (s *JobService) Complete(ctx context.Context, jobID string, tracks []model.Track, speakerCount int) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusComplete
	job.Progress = model.ProgressDone
	job.CurrentStep = "Complete"
	job.Tracks = tracks
	job.SpeakerCount = speakerCount
	job.CompletedAt = &now
	return s.store.Save(ctx, job)
}

// Fail marks the job failed with a human-readable message. Progress
// stays frozen at its last value.
func (s *JobService) Fail(ctx context.Context, jobID, errMsg string) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Terminal() {
		return nil
	}

	now := time.Now().UTC()
	job.Status = model.JobStatusFailed
	job.CurrentStep = "Failed"
	job.Error = &errMsg
	job.CompletedAt = &now
	return s.store.Save(ctx, job)
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/voxsplit/api/internal/analysis"
	"github.com/voxsplit/api/internal/config"
	"github.com/voxsplit/api/internal/model"
	"github.com/voxsplit/api/internal/service"
	"github.com/voxsplit/api/internal/websocket"
)

// AnalysisWorker runs the full analysis pipeline for one job:
// separation, diarization, track assembly. Adapter failures are
// terminal; the task is never retried.
type AnalysisWorker struct {
	jobs      *service.JobService
	separator analysis.Separator
	diarizer  analysis.Diarizer
	hub       *websocket.Hub
	cfg       config.WorkerConfig
}

// NewAnalysisWorker wires the worker. diarizer may be nil when no
// diarization service is configured; jobs then complete with a single
// unsplit voice track.
func NewAnalysisWorker(jobs *service.JobService, separator analysis.Separator, diarizer analysis.Diarizer, hub *websocket.Hub, cfg config.WorkerConfig) *AnalysisWorker {
	return &AnalysisWorker{
		jobs:      jobs,
		separator: separator,
		diarizer:  diarizer,
		hub:       hub,
		cfg:       cfg,
	}
}

// ProcessTask handles one queued analysis job.
func (w *AnalysisWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload service.AnalysisTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := payload.JobID
	log.Printf("Starting analysis job: %s", jobID)

	job, err := w.jobs.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			// Deleted before the worker picked it up.
			return nil
		}
		return err
	}

	// Deadline scales with the recording so long files get room while
	// a wedged model process still gets killed.
	ctx, cancel := context.WithTimeout(ctx, w.timeout(job.Duration))
	defer cancel()

	if err := w.run(ctx, job); err != nil {
		if w.cancelled(ctx, jobID) {
			log.Printf("Analysis job %s deleted mid-flight, discarding", jobID)
			os.RemoveAll(job.OutputDir)
			return nil
		}
		w.failJob(ctx, jobID, failureMessage(ctx, err))
		return err
	}
	return nil
}

func (w *AnalysisWorker) run(ctx context.Context, job *model.Job) error {
	jobID := job.ID

	w.updateProgress(ctx, jobID, model.JobStatusSeparating, model.ProgressSeparating, "Separating voices from background...")
	stems, err := w.separator.Separate(ctx, job.WavPath, filepath.Join(job.OutputDir, "stems"))
	if err != nil {
		return err
	}
	if w.cancelled(ctx, jobID) {
		return context.Canceled
	}

	w.updateProgress(ctx, jobID, model.JobStatusDiarizing, model.ProgressDiarizing, "Identifying speakers...")
	dia := &analysis.DiarizationResult{}
	if w.diarizer != nil {
		dia, err = w.diarizer.Diarize(ctx, stems[analysis.StemVocals], filepath.Join(job.OutputDir, "speakers"))
		if err != nil {
			return err
		}
	}
	if w.cancelled(ctx, jobID) {
		return context.Canceled
	}

	w.updateProgress(ctx, jobID, model.JobStatusDiarizing, model.ProgressFinalizing, "Building tracks...")
	tracks, err := analysis.BuildTracks(stems, dia, job.Duration)
	if err != nil {
		return err
	}

	if err := w.jobs.Complete(ctx, jobID, tracks, dia.SpeakerCount); err != nil {
		return err
	}

	w.hub.BroadcastComplete(jobID, model.TrackListResponse{
		JobID:        jobID,
		Tracks:       tracks,
		SpeakerCount: dia.SpeakerCount,
		Duration:     job.Duration,
	})
	log.Printf("Analysis job %s completed (%d speakers, %d tracks)", jobID, dia.SpeakerCount, len(tracks))
	return nil
}

func (w *AnalysisWorker) timeout(duration float64) time.Duration {
	d := time.Duration(duration*w.cfg.TimeoutFactor) * time.Second
	min := time.Duration(w.cfg.TimeoutMinSecs) * time.Second
	if d < min {
		return min
	}
	return d
}

// cancelled reports whether the job record disappeared, which is how
// deletion reaches an in-flight worker.
func (w *AnalysisWorker) cancelled(ctx context.Context, jobID string) bool {
	_, err := w.jobs.Get(context.WithoutCancel(ctx), jobID)
	return errors.Is(err, model.ErrJobNotFound)
}

func (w *AnalysisWorker) updateProgress(ctx context.Context, jobID string, status model.JobStatus, progress int, step string) {
	if err := w.jobs.SetProgress(ctx, jobID, status, progress, step); err != nil && !errors.Is(err, model.ErrJobNotFound) {
		log.Printf("Failed to update progress: %v", err)
	}
	w.hub.BroadcastProgress(jobID, progress, status, step)
}

func (w *AnalysisWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.jobs.Fail(context.WithoutCancel(ctx), jobID, errMsg); err != nil && !errors.Is(err, model.ErrJobNotFound) {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "ANALYSIS_FAILED", errMsg)
}

// failureMessage keeps stored errors human-readable while logs carry
// the full chain.
func failureMessage(ctx context.Context, err error) string {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "Analysis timed out"
	}
	var aerr *model.AnalysisError
	if errors.As(err, &aerr) {
		return fmt.Sprintf("%s failed: %v", aerr.Stage, aerr.Err)
	}
	return fmt.Sprintf("Analysis failed: %v", err)
}

package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hibiken/asynq"

	"github.com/voxsplit/api/internal/analysis"
	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/config"
	"github.com/voxsplit/api/internal/model"
	"github.com/voxsplit/api/internal/service"
	"github.com/voxsplit/api/internal/store"
	ws "github.com/voxsplit/api/internal/websocket"
)

type fakeSeparator struct {
	stems map[string]string
	err   error
}

func (f *fakeSeparator) Separate(ctx context.Context, inputPath, outputDir string) (map[string]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stems, nil
}

type fakeDiarizer struct {
	result *analysis.DiarizationResult
	err    error
}

func (f *fakeDiarizer) Diarize(ctx context.Context, vocalsPath, outputDir string) (*analysis.DiarizationResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type noopEnqueuer struct{}

func (noopEnqueuer) EnqueueAnalysis(ctx context.Context, jobID string) error { return nil }

func writeStem(t *testing.T, dir, name string) string {
	t.Helper()
	buf := audio.NewBuffer(800, 8000, 1)
	for i := range buf.Data {
		buf.Data[i] = 0.3
	}
	path := filepath.Join(dir, name)
	if err := audio.WriteWAV(path, buf); err != nil {
		t.Fatal(err)
	}
	return path
}

func analysisTask(t *testing.T, jobID string) *asynq.Task {
	t.Helper()
	data, err := json.Marshal(service.AnalysisTaskPayload{JobID: jobID})
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(service.TaskTypeAnalysis, data)
}

func newWorkerFixture(t *testing.T, sep analysis.Separator, dia analysis.Diarizer) (*AnalysisWorker, *service.JobService) {
	t.Helper()
	jobs := service.NewJobService(store.NewMemoryStore(), noopEnqueuer{})
	hub := ws.NewHub()
	go hub.Run()
	cfg := config.WorkerConfig{Concurrency: 1, TimeoutFactor: 6.0, TimeoutMinSecs: 600}
	return NewAnalysisWorker(jobs, sep, dia, hub, cfg), jobs
}

func seedProcessingJob(t *testing.T, jobs *service.JobService, outputDir string) *model.Job {
	t.Helper()
	ctx := context.Background()
	job, err := jobs.Create(ctx, service.UploadMeta{
		JobID:     "job1",
		Filename:  "standup.mp3",
		WavPath:   filepath.Join(outputDir, "original.wav"),
		OutputDir: outputDir,
		Duration:  10,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := jobs.Start(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	return job
}

func TestProcessTaskSuccess(t *testing.T) {
	dir := t.TempDir()
	sep := &fakeSeparator{stems: map[string]string{
		analysis.StemVocals: writeStem(t, dir, "vocals.wav"),
		analysis.StemOther:  writeStem(t, dir, "other.wav"),
	}}
	dia := &fakeDiarizer{result: &analysis.DiarizationResult{
		SpeakerCount: 1,
		Segments:     []model.SpeakerSegment{{Start: 0, End: 5, SpeakerID: "SPEAKER_00"}},
		SpeakerPaths: map[string]string{"SPEAKER_00": writeStem(t, dir, "s0.wav")},
	}}

	w, jobs := newWorkerFixture(t, sep, dia)
	seedProcessingJob(t, jobs, dir)

	if err := w.ProcessTask(context.Background(), analysisTask(t, "job1")); err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}

	job, err := jobs.Get(context.Background(), "job1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobStatusComplete {
		t.Errorf("expected complete, got %v (%v)", job.Status, job.Error)
	}
	if job.Progress != model.ProgressDone {
		t.Errorf("expected progress 100, got %d", job.Progress)
	}
	if len(job.Tracks) != 2 { // speaker + noise
		t.Errorf("expected 2 tracks, got %d", len(job.Tracks))
	}
	if job.SpeakerCount != 1 {
		t.Errorf("expected 1 speaker, got %d", job.SpeakerCount)
	}
}

func TestProcessTaskNoDiarizer(t *testing.T) {
	dir := t.TempDir()
	sep := &fakeSeparator{stems: map[string]string{
		analysis.StemVocals: writeStem(t, dir, "vocals.wav"),
		analysis.StemOther:  writeStem(t, dir, "other.wav"),
	}}

	w, jobs := newWorkerFixture(t, sep, nil)
	seedProcessingJob(t, jobs, dir)

	if err := w.ProcessTask(context.Background(), analysisTask(t, "job1")); err != nil {
		t.Fatalf("ProcessTask failed: %v", err)
	}

	job, err := jobs.Get(context.Background(), "job1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobStatusComplete {
		t.Errorf("expected complete, got %v", job.Status)
	}
	// Without diarization the vocal stem survives as one track.
	if len(job.Tracks) != 2 || job.Tracks[0].Type != model.TrackTypeVocals {
		t.Errorf("expected unsplit vocals + noise, got %+v", job.Tracks)
	}
}

func TestProcessTaskSeparationFailure(t *testing.T) {
	sep := &fakeSeparator{err: model.NewSeparationError(fmt.Errorf("model crashed"))}
	w, jobs := newWorkerFixture(t, sep, nil)
	seedProcessingJob(t, jobs, t.TempDir())

	if err := w.ProcessTask(context.Background(), analysisTask(t, "job1")); err == nil {
		t.Fatal("expected task error for failed separation")
	}

	job, err := jobs.Get(context.Background(), "job1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != model.JobStatusFailed {
		t.Errorf("expected failed, got %v", job.Status)
	}
	if job.Error == nil || *job.Error == "" {
		t.Error("expected stored failure message")
	}
}

func TestProcessTaskJobDeleted(t *testing.T) {
	w, jobs := newWorkerFixture(t, &fakeSeparator{}, nil)

	// Never created: behaves like a job deleted before pickup.
	if err := w.ProcessTask(context.Background(), analysisTask(t, "gone")); err != nil {
		t.Errorf("deleted job should be dropped silently, got %v", err)
	}

	if _, err := jobs.Get(context.Background(), "gone"); !errors.Is(err, model.ErrJobNotFound) {
		t.Errorf("no job record should appear, got %v", err)
	}
}

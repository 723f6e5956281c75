package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/encode"
	"github.com/voxsplit/api/internal/mixer"
	"github.com/voxsplit/api/internal/model"
	"github.com/voxsplit/api/internal/store"
)

// PreviewFadeSeconds is the linear fade applied to both ends of a
// preview so arbitrary window cuts don't click.
const PreviewFadeSeconds = 0.1

// RenderService turns a complete job plus a mix configuration into
// audible output: short previews and full-length exports. Renders are
// deterministic; the same job and config always produce the same
// samples.
type RenderService struct {
	store   store.JobStore
	engine  *mixer.Engine
	encoder *encode.Encoder
}

func NewRenderService(jobStore store.JobStore, encoder *encode.Encoder) *RenderService {
	return &RenderService{
		store:   jobStore,
		engine:  &mixer.Engine{},
		encoder: encoder,
	}
}

// Preview renders a bounded window of the mix as WAV and returns a URL
// the client can stream immediately.
func (s *RenderService) Preview(ctx context.Context, req *model.PreviewRequest) (*model.PreviewResponse, error) {
	job, err := s.completeJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	tracks, err := s.loadTracks(job)
	if err != nil {
		return nil, err
	}

	window := &mixer.Window{Start: req.StartTime, Duration: req.Duration}
	res, err := s.engine.Mix(tracks, &req.MixConfig, window, job.Duration)
	if err != nil {
		return nil, err
	}
	res.Buffer.Fade(PreviewFadeSeconds)

	name := fmt.Sprintf("preview_%s.wav", uuid.New().String()[:8])
	outPath := filepath.Join(job.OutputDir, "previews", name)
	if _, err := s.encoder.Encode(ctx, res.Buffer, model.FormatWAV, outPath); err != nil {
		return nil, err
	}

	return &model.PreviewResponse{
		PreviewURL: fmt.Sprintf("/audio/%s/previews/%s", job.ID, name),
		Duration:   res.Buffer.Duration(),
		Clipped:    res.Clipped,
	}, nil
}

// Export renders the full mix and encodes it in the requested format.
func (s *RenderService) Export(ctx context.Context, req *model.ExportRequest) (*model.ExportResponse, error) {
	format := req.MixConfig.Format()
	switch format {
	case model.FormatWAV, model.FormatMP3, model.FormatFLAC:
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, format)
	}

	job, err := s.completeJob(ctx, req.JobID)
	if err != nil {
		return nil, err
	}

	tracks, err := s.loadTracks(job)
	if err != nil {
		return nil, err
	}

	res, err := s.engine.Mix(tracks, &req.MixConfig, nil, job.Duration)
	if err != nil {
		return nil, err
	}

	filename := exportFilename(req.Filename, job.OriginalFilename, format)
	outPath := filepath.Join(job.OutputDir, "exports", filename)
	size, err := s.encoder.Encode(ctx, res.Buffer, format, outPath)
	if err != nil {
		return nil, err
	}

	return &model.ExportResponse{
		DownloadURL: fmt.Sprintf("/audio/%s/exports/%s", job.ID, filename),
		Filename:    filename,
		Size:        size,
		Duration:    res.Buffer.Duration(),
		Format:      format,
		Clipped:     res.Clipped,
	}, nil
}

// completeJob loads the job and enforces that rendering is only
// available once analysis has finished.
func (s *RenderService) completeJob(ctx context.Context, jobID string) (*model.Job, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != model.JobStatusComplete {
		return nil, fmt.Errorf("%w: job is %s", model.ErrJobNotComplete, job.Status)
	}
	return job, nil
}

// loadTracks decodes every track's stem from disk. Track files are
// immutable after analysis, so repeated renders always see the same
// input.
func (s *RenderService) loadTracks(job *model.Job) ([]mixer.Track, error) {
	if len(job.Tracks) == 0 {
		return nil, model.ErrNoTracks
	}

	tracks := make([]mixer.Track, 0, len(job.Tracks))
	for _, t := range job.Tracks {
		buf, err := audio.ReadWAV(t.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load track %s: %w", t.ID, err)
		}
		tracks = append(tracks, mixer.Track{ID: t.ID, Type: t.Type, Samples: buf})
	}
	return tracks, nil
}

// exportFilename picks the user-supplied name or derives one from the
// original recording. Path components are stripped either way.
func exportFilename(requested, original, format string) string {
	name := filepath.Base(requested)
	if name == "." || name == "/" || name == "" {
		stem := strings.TrimSuffix(filepath.Base(original), filepath.Ext(original))
		name = fmt.Sprintf("%s_mixed.%s", stem, format)
	} else if filepath.Ext(name) == "" {
		name += "." + format
	}
	return name
}

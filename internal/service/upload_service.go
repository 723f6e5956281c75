package service

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/config"
	"github.com/voxsplit/api/internal/model"
)

const (
	// Recordings shorter than a second carry nothing to separate;
	// anything over two hours is rejected before it ties up a worker.
	MinUploadSeconds = 1.0
	MaxUploadSeconds = 2 * 60 * 60
)

// UploadService ingests a recording: validates it, converts it to the
// canonical PCM format every later stage assumes, and registers the
// pending job.
type UploadService struct {
	jobs   *JobService
	ffmpeg *audio.FFmpeg
	cfg    *config.Config
}

func NewUploadService(jobs *JobService, ffmpeg *audio.FFmpeg, cfg *config.Config) *UploadService {
	return &UploadService{jobs: jobs, ffmpeg: ffmpeg, cfg: cfg}
}

// ProcessUpload stores the raw file, probes and normalizes it, and
// creates the job record. The returned response carries a rough
// processing estimate for the client's progress UI.
func (s *UploadService) ProcessUpload(ctx context.Context, filename string, file io.Reader, size int64) (*model.UploadResponse, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !s.allowed(ext) {
		return nil, fmt.Errorf("%w: format %q not supported (allowed: %s)",
			model.ErrInvalidUpload, ext, strings.Join(s.cfg.Audio.AllowedFormats, ", "))
	}
	maxBytes := int64(s.cfg.Audio.MaxFileSizeMB) * 1024 * 1024
	if size > maxBytes {
		return nil, fmt.Errorf("%w: file exceeds %dMB limit", model.ErrInvalidUpload, s.cfg.Audio.MaxFileSizeMB)
	}

	jobID := newJobID(filename)
	uploadDir := filepath.Join(s.cfg.Storage.UploadDir, jobID)
	outputDir := filepath.Join(s.cfg.Storage.OutputDir, jobID)
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}

	originalPath := filepath.Join(uploadDir, "original."+ext)
	if err := saveFile(originalPath, file); err != nil {
		os.RemoveAll(uploadDir)
		return nil, err
	}

	info, err := s.ffmpeg.Probe(ctx, originalPath)
	if err != nil {
		os.RemoveAll(uploadDir)
		return nil, fmt.Errorf("%w: file is not decodable audio", model.ErrInvalidUpload)
	}
	if info.Duration < MinUploadSeconds {
		os.RemoveAll(uploadDir)
		return nil, fmt.Errorf("%w: recording shorter than %.0fs", model.ErrInvalidUpload, MinUploadSeconds)
	}
	if info.Duration > MaxUploadSeconds {
		os.RemoveAll(uploadDir)
		return nil, fmt.Errorf("%w: recording longer than %d hours", model.ErrInvalidUpload, MaxUploadSeconds/3600)
	}

	// Everything downstream works on one canonical PCM file. The
	// converted file gets its own name: ffmpeg refuses to read and
	// write the same path, and a wav upload at the wrong rate would
	// otherwise hand it exactly that.
	wavPath := originalPath
	sampleRate := info.SampleRate
	if ext != "wav" || info.SampleRate != s.cfg.Audio.SampleRate {
		wavPath = filepath.Join(uploadDir, "converted.wav")
		if err := s.ffmpeg.ConvertToWAV(ctx, originalPath, wavPath, s.cfg.Audio.SampleRate); err != nil {
			os.RemoveAll(uploadDir)
			return nil, fmt.Errorf("failed to convert upload: %w", err)
		}
		sampleRate = s.cfg.Audio.SampleRate
	}

	job, err := s.jobs.Create(ctx, UploadMeta{
		JobID:        jobID,
		Filename:     filepath.Base(filename),
		OriginalPath: originalPath,
		WavPath:      wavPath,
		UploadDir:    uploadDir,
		OutputDir:    outputDir,
		Duration:     info.Duration,
		SampleRate:   sampleRate,
	})
	if err != nil {
		os.RemoveAll(uploadDir)
		return nil, err
	}

	return &model.UploadResponse{
		JobID:         job.ID,
		Filename:      job.OriginalFilename,
		Duration:      job.Duration,
		SampleRate:    job.SampleRate,
		Status:        job.Status,
		EstimatedTime: EstimateProcessingSeconds(job.Duration),
	}, nil
}

// EstimateProcessingSeconds is a coarse wall-clock guess: roughly 3x
// realtime for separation plus 2x for diarization on CPU.
func EstimateProcessingSeconds(duration float64) float64 {
	return duration * 5
}

func (s *UploadService) allowed(ext string) bool {
	for _, a := range s.cfg.Audio.AllowedFormats {
		if ext == a {
			return true
		}
	}
	return false
}

// newJobID derives a short unique ID in the same shape the rest of the
// pipeline uses for directories and URLs.
func newJobID(filename string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s-%d-%s", filename, time.Now().UnixNano(), uuid.New().String())))
	return fmt.Sprintf("%x", sum)[:16]
}

func saveFile(path string, src io.Reader) error {
	dst, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to store upload: %w", err)
	}
	return nil
}

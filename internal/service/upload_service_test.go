package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/config"
	"github.com/voxsplit/api/internal/model"
)

// stubFFmpeg writes fake ffmpeg/ffprobe scripts into a temp dir and
// returns the ffmpeg path. The probe reports the given sample rate;
// the converter refuses identical input/output paths the way the real
// binary does, and otherwise just creates the output file.
func stubFFmpeg(t *testing.T, sampleRate int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts require a POSIX shell")
	}
	dir := t.TempDir()

	probe := fmt.Sprintf(`#!/bin/sh
echo '{"streams":[{"sample_rate":"%d","channels":2}],"format":{"duration":"12.5"}}'
`, sampleRate)
	if err := os.WriteFile(filepath.Join(dir, "ffprobe"), []byte(probe), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}

	convert := `#!/bin/sh
in=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"
done
out="$a"
if [ "$in" = "$out" ]; then
  echo "cannot edit file in place" >&2
  exit 1
fi
: > "$out"
`
	if err := os.WriteFile(filepath.Join(dir, "ffmpeg"), []byte(convert), 0o755); err != nil {
		t.Fatalf("write ffmpeg stub: %v", err)
	}
	return filepath.Join(dir, "ffmpeg")
}

func newTestUploadService(t *testing.T, probedRate int) (*UploadService, *JobService) {
	t.Helper()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			UploadDir: t.TempDir(),
			OutputDir: t.TempDir(),
		},
		Audio: config.AudioConfig{
			SampleRate:     44100,
			MaxFileSizeMB:  500,
			AllowedFormats: []string{"mp3", "wav", "m4a", "flac", "ogg", "aac"},
		},
	}
	jobs, _ := newTestJobService()
	ffmpeg := audio.NewFFmpeg(stubFFmpeg(t, probedRate))
	return NewUploadService(jobs, ffmpeg, cfg), jobs
}

func TestProcessUploadConvertsWrongRateWAV(t *testing.T) {
	svc, jobs := newTestUploadService(t, 48000)
	ctx := context.Background()

	body := strings.NewReader("not real audio, ffprobe is stubbed")
	resp, err := svc.ProcessUpload(ctx, "meeting.wav", body, int64(body.Len()))
	if err != nil {
		t.Fatalf("ProcessUpload failed: %v", err)
	}
	if resp.SampleRate != 44100 {
		t.Fatalf("expected resampled rate 44100, got %d", resp.SampleRate)
	}

	job, err := jobs.Get(ctx, resp.JobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.WavPath == job.OriginalPath {
		t.Fatalf("conversion reused the original path %s", job.WavPath)
	}
	if filepath.Base(job.WavPath) != "converted.wav" {
		t.Fatalf("expected converted.wav, got %s", job.WavPath)
	}
	if _, err := os.Stat(job.WavPath); err != nil {
		t.Fatalf("converted file missing: %v", err)
	}
}

func TestProcessUploadKeepsCanonicalWAV(t *testing.T) {
	svc, jobs := newTestUploadService(t, 44100)
	ctx := context.Background()

	body := strings.NewReader("already canonical")
	resp, err := svc.ProcessUpload(ctx, "meeting.wav", body, int64(body.Len()))
	if err != nil {
		t.Fatalf("ProcessUpload failed: %v", err)
	}

	job, err := jobs.Get(ctx, resp.JobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.WavPath != job.OriginalPath {
		t.Fatalf("canonical wav should not be converted: wav=%s original=%s", job.WavPath, job.OriginalPath)
	}
}

func TestProcessUploadConvertsCompressedFormats(t *testing.T) {
	svc, jobs := newTestUploadService(t, 44100)
	ctx := context.Background()

	body := strings.NewReader("mp3 payload")
	resp, err := svc.ProcessUpload(ctx, "standup.mp3", body, int64(body.Len()))
	if err != nil {
		t.Fatalf("ProcessUpload failed: %v", err)
	}

	job, err := jobs.Get(ctx, resp.JobID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if job.WavPath == job.OriginalPath {
		t.Fatal("compressed upload must be transcoded to a separate wav")
	}
	if filepath.Base(job.OriginalPath) != "original.mp3" {
		t.Fatalf("original should keep its extension, got %s", job.OriginalPath)
	}
}

func TestProcessUploadRejectsUnsupportedFormat(t *testing.T) {
	svc, _ := newTestUploadService(t, 44100)

	body := strings.NewReader("video container")
	_, err := svc.ProcessUpload(context.Background(), "meeting.mkv", body, int64(body.Len()))
	if !errors.Is(err, model.ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
}

func TestProcessUploadRejectsOversizedFile(t *testing.T) {
	svc, _ := newTestUploadService(t, 44100)

	_, err := svc.ProcessUpload(context.Background(), "huge.wav", strings.NewReader("x"), 501*1024*1024)
	if !errors.Is(err, model.ErrInvalidUpload) {
		t.Fatalf("expected ErrInvalidUpload, got %v", err)
	}
}

package config

import (
	"path/filepath"
	"testing"
)

func setTestDirs(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("UPLOAD_DIR", filepath.Join(dir, "uploads"))
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "outputs"))
}

func TestLoadDefaults(t *testing.T) {
	setTestDirs(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != "8000" {
		t.Errorf("default port: got %s", cfg.Server.Port)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("default sample rate: got %d", cfg.Audio.SampleRate)
	}
	if cfg.Diarization.MinSpeakers != 1 || cfg.Diarization.MaxSpeakers != 10 {
		t.Errorf("default speaker bounds: got %d..%d", cfg.Diarization.MinSpeakers, cfg.Diarization.MaxSpeakers)
	}
	if cfg.RateLimit.UploadPerHour != 50 || cfg.RateLimit.AnalyzePerHour != 20 || cfg.RateLimit.RenderPerMin != 60 {
		t.Errorf("default rate limits: got %+v", cfg.RateLimit)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	setTestDirs(t)
	t.Setenv("DIARIZATION_MIN_SPEAKERS", "2")
	t.Setenv("DIARIZATION_MAX_SPEAKERS", "4")
	t.Setenv("RATELIMIT_UPLOAD_PER_HOUR", "5")
	t.Setenv("RATELIMIT_ANALYZE_PER_HOUR", "3")
	t.Setenv("RATELIMIT_RENDER_PER_MIN", "12")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Diarization.MinSpeakers != 2 {
		t.Errorf("DIARIZATION_MIN_SPEAKERS ignored: got %d", cfg.Diarization.MinSpeakers)
	}
	if cfg.Diarization.MaxSpeakers != 4 {
		t.Errorf("DIARIZATION_MAX_SPEAKERS ignored: got %d", cfg.Diarization.MaxSpeakers)
	}
	if cfg.RateLimit.UploadPerHour != 5 {
		t.Errorf("RATELIMIT_UPLOAD_PER_HOUR ignored: got %d", cfg.RateLimit.UploadPerHour)
	}
	if cfg.RateLimit.AnalyzePerHour != 3 {
		t.Errorf("RATELIMIT_ANALYZE_PER_HOUR ignored: got %d", cfg.RateLimit.AnalyzePerHour)
	}
	if cfg.RateLimit.RenderPerMin != 12 {
		t.Errorf("RATELIMIT_RENDER_PER_MIN ignored: got %d", cfg.RateLimit.RenderPerMin)
	}
}

package e2e

import (
	"fmt"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/model"
)

// seedRenderableJob stores a complete job with real stems on disk.
func seedRenderableJob(t *testing.T, ta *testApp) *model.Job {
	t.Helper()
	dir := t.TempDir()

	writeStem := func(name string, value float64) string {
		buf := audio.NewBuffer(8000, 8000, 1)
		for i := range buf.Data {
			buf.Data[i] = value
		}
		path := filepath.Join(dir, name)
		if err := audio.WriteWAV(path, buf); err != nil {
			t.Fatal(err)
		}
		return path
	}

	job := &model.Job{
		ID:               "job1",
		Status:           model.JobStatusComplete,
		Progress:         100,
		Duration:         1.0,
		OriginalFilename: "standup.mp3",
		OutputDir:        filepath.Join(dir, "out"),
		SpeakerCount:     1,
		Tracks: []model.Track{
			{ID: "speaker_0", Type: model.TrackTypeSpeaker, FilePath: writeStem("s0.wav", 0.3)},
			{ID: "noise", Type: model.TrackTypeNoise, FilePath: writeStem("noise.wav", 0.1)},
		},
	}
	ta.seedJob(t, job)
	return job
}

func TestPreviewEndpoint(t *testing.T) {
	ta := setupApp(t)
	seedRenderableJob(t, ta)

	body := `{
		"jobId": "job1",
		"startTime": 0,
		"duration": 0.5,
		"mixConfig": {
			"tracks": [{"trackId": "speaker_0", "isMain": true}],
			"mainSpeakerBoostDb": 6,
			"noiseReductionLevel": 1
		}
	}`

	resp, err := doRequest(ta.app, http.MethodPost, "/api/render/preview", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	url, _ := result["previewUrl"].(string)
	if url == "" {
		t.Fatal("expected previewUrl in response")
	}
	if result["clipped"] != false {
		t.Errorf("expected clipped false, got %v", result["clipped"])
	}
}

func TestPreviewValidation(t *testing.T) {
	ta := setupApp(t)
	seedRenderableJob(t, ta)

	for _, tc := range []struct {
		name string
		body string
		code string
	}{
		{
			"missing jobId",
			`{"duration": 5}`,
			"VALIDATION_ERROR",
		},
		{
			"zero duration",
			`{"jobId": "job1", "duration": 0}`,
			"VALIDATION_ERROR",
		},
		{
			"window too long",
			`{"jobId": "job1", "duration": 120}`,
			"VALIDATION_ERROR",
		},
		{
			"start beyond recording",
			`{"jobId": "job1", "startTime": 30, "duration": 5}`,
			"INVALID_RANGE",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := doRequest(ta.app, http.MethodPost, "/api/render/preview", tc.body)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			assertStatus(t, resp, http.StatusBadRequest)
			if code := errorCode(t, resp); code != tc.code {
				t.Errorf("expected %s, got %s", tc.code, code)
			}
		})
	}
}

func TestPreviewIncompleteJob(t *testing.T) {
	ta := setupApp(t)
	ta.seedJob(t, &model.Job{ID: "job1", Status: model.JobStatusDiarizing})

	body := `{"jobId": "job1", "duration": 5}`
	resp, err := doRequest(ta.app, http.MethodPost, "/api/render/preview", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusConflict)
}

func TestExportEndpoint(t *testing.T) {
	ta := setupApp(t)
	seedRenderableJob(t, ta)

	body := `{
		"jobId": "job1",
		"mixConfig": {
			"tracks": [{"trackId": "noise", "muted": true}],
			"outputFormat": "wav"
		}
	}`

	resp, err := doRequest(ta.app, http.MethodPost, "/api/render/export", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	result := parseJSON(t, resp)
	if result["filename"] != "standup_mixed.wav" {
		t.Errorf("unexpected filename: %v", result["filename"])
	}
	if result["format"] != "wav" {
		t.Errorf("expected wav, got %v", result["format"])
	}
	size, _ := result["fileSizeBytes"].(float64)
	if size <= 0 {
		t.Errorf("expected positive artifact size, got %v", result["fileSizeBytes"])
	}
	if dl, _ := result["downloadUrl"].(string); dl == "" {
		t.Error("expected downloadUrl")
	}
}

func TestExportUnsupportedFormatEndpoint(t *testing.T) {
	ta := setupApp(t)
	seedRenderableJob(t, ta)

	body := `{"jobId": "job1", "mixConfig": {"outputFormat": "ogg"}}`
	resp, err := doRequest(ta.app, http.MethodPost, "/api/render/export", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
	if code := errorCode(t, resp); code != "UNSUPPORTED_FORMAT" {
		t.Errorf("expected UNSUPPORTED_FORMAT, got %s", code)
	}
}

func TestExportNotFound(t *testing.T) {
	ta := setupApp(t)

	body := fmt.Sprintf(`{"jobId": "%s"}`, "nope")
	resp, err := doRequest(ta.app, http.MethodPost, "/api/render/export", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/config"
	"github.com/voxsplit/api/internal/encode"
	"github.com/voxsplit/api/internal/handler"
	"github.com/voxsplit/api/internal/middleware"
	"github.com/voxsplit/api/internal/model"
	"github.com/voxsplit/api/internal/service"
	"github.com/voxsplit/api/internal/store"
)

// recordingEnqueuer captures analysis enqueues instead of touching a
// real queue.
type recordingEnqueuer struct {
	jobIDs []string
}

func (r *recordingEnqueuer) EnqueueAnalysis(ctx context.Context, jobID string) error {
	r.jobIDs = append(r.jobIDs, jobID)
	return nil
}

// testApp holds all components needed for handler tests.
type testApp struct {
	app      *fiber.App
	store    store.JobStore
	enqueuer *recordingEnqueuer
}

// setupApp builds a Fiber app wired like main.go but backed by the
// in-memory store, with no Redis and no auth.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	jobStore := store.NewMemoryStore()
	enqueuer := &recordingEnqueuer{}
	validate := validator.New()

	cfg := &config.Config{
		Storage: config.StorageConfig{
			UploadDir: t.TempDir(),
			OutputDir: t.TempDir(),
		},
		Audio: config.AudioConfig{
			SampleRate:     44100,
			MaxFileSizeMB:  500,
			AllowedFormats: []string{"mp3", "wav", "m4a", "flac", "ogg", "aac"},
			FFmpegBin:      "ffmpeg",
		},
	}

	ffmpeg := audio.NewFFmpeg(cfg.Audio.FFmpegBin)
	encoder := encode.NewEncoder(ffmpeg)

	jobService := service.NewJobService(jobStore, enqueuer)
	uploadService := service.NewUploadService(jobService, ffmpeg, cfg)
	renderService := service.NewRenderService(jobStore, encoder)

	uploadHandler := handler.NewUploadHandler(uploadService)
	jobHandler := handler.NewJobHandler(jobService)
	renderHandler := handler.NewRenderHandler(renderService, validate)

	authMiddleware := middleware.NewAuthMiddleware("") // open
	rateLimiter := middleware.NewRateLimiter(nil)      // no Redis → pass-through

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", authMiddleware.Authenticate())
	api.Post("/upload", rateLimiter.UploadLimit(10000), uploadHandler.Upload)

	jobs := api.Group("/jobs")
	jobs.Post("/:jobId/analyze", rateLimiter.AnalyzeLimit(10000), jobHandler.Analyze)
	jobs.Get("/:jobId/status", jobHandler.Status)
	jobs.Get("/:jobId/tracks", jobHandler.Tracks)
	jobs.Get("/:jobId/tracks/:trackId/audio", jobHandler.TrackAudio)
	jobs.Delete("/:jobId", jobHandler.Delete)

	render := api.Group("/render", rateLimiter.RenderLimit(10000))
	render.Post("/preview", renderHandler.Preview)
	render.Post("/export", renderHandler.Export)

	return &testApp{app: app, store: jobStore, enqueuer: enqueuer}
}

// seedJob stores a job directly, bypassing the upload path.
func (ta *testApp) seedJob(t *testing.T, job *model.Job) {
	t.Helper()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if err := ta.store.Save(context.Background(), job); err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
}

// doRequest performs an HTTP request against the test app.
func doRequest(app *fiber.App, method, path, body string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return app.Test(req, -1)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	var result map[string]interface{}
	if err := json.Unmarshal(b, &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, string(b))
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode digs the envelope error code out of a response.
func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	result := parseJSON(t, resp)
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", result)
	}
	code, _ := errObj["code"].(string)
	return code
}

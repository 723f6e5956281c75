package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/voxsplit/api/internal/config"
	"github.com/voxsplit/api/internal/model"
)

// DiarizerClient talks to the pyannote sidecar service over HTTP. The
// sidecar loads the diarization pipeline once and exposes a single
// blocking endpoint; this client is the only component aware of it.
type DiarizerClient struct {
	httpClient *http.Client
	baseURL    string
	cfg        config.DiarizationConfig
}

func NewDiarizerClient(cfg config.DiarizationConfig) *DiarizerClient {
	return &DiarizerClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.ServiceURL,
		cfg:     cfg,
	}
}

// IsConfigured returns true if the client has a service URL.
func (c *DiarizerClient) IsConfigured() bool {
	return c.baseURL != ""
}

type diarizeRequest struct {
	AudioPath   string `json:"audio_path"`
	OutputDir   string `json:"output_dir"`
	Model       string `json:"model"`
	MinSpeakers int    `json:"min_speakers"`
	MaxSpeakers int    `json:"max_speakers"`
}

// Diarize submits the vocal stem and returns per-speaker segments and
// audio slices. Segment ordering is normalized here so downstream
// consumers never have to re-validate it.
func (c *DiarizerClient) Diarize(ctx context.Context, vocalsPath, outputDir string) (*DiarizationResult, error) {
	reqBody := diarizeRequest{
		AudioPath:   vocalsPath,
		OutputDir:   outputDir,
		Model:       c.cfg.Model,
		MinSpeakers: c.cfg.MinSpeakers,
		MaxSpeakers: c.cfg.MaxSpeakers,
	}

	var result DiarizationResult
	if err := c.post(ctx, "/diarize", reqBody, &result); err != nil {
		return nil, model.NewDiarizationError(err)
	}

	sort.Slice(result.Segments, func(i, j int) bool {
		return result.Segments[i].Start < result.Segments[j].Start
	})
	return &result, nil
}

// HealthCheck checks if the diarization service is reachable.
func (c *DiarizerClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("diarization service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *DiarizerClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("diarization service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

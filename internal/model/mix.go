package model

import "time"

// Output formats accepted by the export stage.
const (
	FormatWAV  = "wav"
	FormatMP3  = "mp3"
	FormatFLAC = "flac"
)

// TrackConfig is one track's contribution to a mix. Volume is a pointer
// so an omitted field keeps the 1.0 default instead of collapsing to 0.
type TrackConfig struct {
	TrackID string   `json:"trackId" validate:"required"`
	Muted   bool     `json:"muted"`
	Solo    bool     `json:"solo"`
	Volume  *float64 `json:"volume"`
	IsMain  bool     `json:"isMain"`
}

// MixConfig is the full rendering request. It is a pure input value:
// echoed in responses, never persisted as job state. Tracks absent from
// the list render with defaults (unmuted, unsoloed, volume 1.0, not main).
type MixConfig struct {
	JobID               string        `json:"jobId"`
	Tracks              []TrackConfig `json:"tracks" validate:"dive"`
	MainSpeakerBoostDB  float64       `json:"mainSpeakerBoostDb"`
	NoiseReductionLevel float64       `json:"noiseReductionLevel"`
	OutputFormat        string        `json:"outputFormat"`
	Normalize           *bool         `json:"normalize"`
}

// NormalizeEnabled resolves the tri-state normalize flag; the default
// matches the upstream behavior (on).
func (m *MixConfig) NormalizeEnabled() bool {
	if m.Normalize == nil {
		return true
	}
	return *m.Normalize
}

// Format returns the requested output format, defaulting to WAV.
func (m *MixConfig) Format() string {
	if m.OutputFormat == "" {
		return FormatWAV
	}
	return m.OutputFormat
}

// UploadResponse is returned after a successful upload.
type UploadResponse struct {
	JobID         string    `json:"jobId"`
	Filename      string    `json:"filename"`
	Duration      float64   `json:"durationSeconds"`
	SampleRate    int       `json:"sampleRate"`
	Status        JobStatus `json:"status"`
	EstimatedTime float64   `json:"estimatedProcessingSeconds"`
}

// JobStatusResponse is the polling payload. Tracks are present only
// when the job is complete.
type JobStatusResponse struct {
	JobID        string     `json:"jobId"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	CurrentStep  string     `json:"currentStep,omitempty"`
	Error        *string    `json:"error,omitempty"`
	SpeakerCount int        `json:"speakerCount,omitempty"`
	Tracks       []Track    `json:"tracks,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// TrackListResponse is returned by the tracks endpoint for complete jobs.
type TrackListResponse struct {
	JobID        string  `json:"jobId"`
	Tracks       []Track `json:"tracks"`
	SpeakerCount int     `json:"speakerCount"`
	Duration     float64 `json:"durationSeconds"`
}

// PreviewRequest asks for a windowed render of the current mix.
type PreviewRequest struct {
	JobID     string    `json:"jobId" validate:"required"`
	MixConfig MixConfig `json:"mixConfig"`
	StartTime float64   `json:"startTime" validate:"gte=0"`
	Duration  float64   `json:"duration" validate:"gt=0,lte=60"`
}

// PreviewResponse points at the transient preview artifact.
type PreviewResponse struct {
	PreviewURL string  `json:"previewUrl"`
	Duration   float64 `json:"durationSeconds"`
	Clipped    bool    `json:"clipped"`
}

// ExportRequest asks for a full-duration render of the current mix.
type ExportRequest struct {
	JobID     string    `json:"jobId" validate:"required"`
	MixConfig MixConfig `json:"mixConfig"`
	Filename  string    `json:"filename"`
}

// ExportResponse describes the durable export artifact.
type ExportResponse struct {
	DownloadURL string  `json:"downloadUrl"`
	Filename    string  `json:"filename"`
	Size        int64   `json:"fileSizeBytes"`
	Duration    float64 `json:"durationSeconds"`
	Format      string  `json:"format"`
	Clipped     bool    `json:"clipped"`
}

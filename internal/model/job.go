package model

import "time"

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSeparating JobStatus = "separating"
	JobStatusDiarizing  JobStatus = "diarizing"
	JobStatusComplete   JobStatus = "complete"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is final. Terminal jobs are
// never mutated again; progress and step stay frozen at their last value.
func (s JobStatus) Terminal() bool {
	return s == JobStatusComplete || s == JobStatusFailed
}

// Job represents one end-to-end analysis request for an uploaded recording.
// Stored as JSON; all writes go through the single worker owning the job.
type Job struct {
	ID               string     `json:"id"`
	OriginalFilename string     `json:"originalFilename"`
	OriginalPath     string     `json:"originalPath"`
	WavPath          string     `json:"wavPath"`
	UploadDir        string     `json:"uploadDir"`
	OutputDir        string     `json:"outputDir"`
	Duration         float64    `json:"durationSeconds"`
	SampleRate       int        `json:"sampleRate"`
	Status           JobStatus  `json:"status"`
	Progress         int        `json:"progress"`
	CurrentStep      string     `json:"currentStep,omitempty"`
	Error            *string    `json:"error,omitempty"`
	SpeakerCount     int        `json:"speakerCount"`
	Tracks           []Track    `json:"tracks,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// Progress phase bounds shared by the worker and anything that wants to
// reconstruct UI-visible phases from a bare percentage.
const (
	ProgressPreparing  = 0   // 0-10: preparing input
	ProgressSeparating = 10  // 10-40: source separation
	ProgressDiarizing  = 40  // 40-80: speaker diarization
	ProgressFinalizing = 80  // 80-100: track materialization
	ProgressDone       = 100 // complete
)

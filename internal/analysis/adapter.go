// Package analysis is the boundary to the external separation and
// diarization models. It translates their outputs into the Track data
// model and carries no mixing logic.
package analysis

import (
	"context"

	"github.com/voxsplit/api/internal/model"
)

// Stem names produced by source separation.
const (
	StemVocals = "vocals"
	StemOther  = "other"
)

// Separator splits a recording into stems. The returned map carries at
// minimum a vocal stem and a residual stem, keyed by stem name, with
// values pointing at WAV artifacts under outputDir.
type Separator interface {
	Separate(ctx context.Context, inputPath, outputDir string) (map[string]string, error)
}

// DiarizationResult is the outcome of speaker diarization: who spoke
// when, plus one isolated audio artifact per detected speaker.
type DiarizationResult struct {
	SpeakerCount int                    `json:"speakerCount"`
	Segments     []model.SpeakerSegment `json:"segments"`
	SpeakerPaths map[string]string      `json:"speakerFiles"`
}

// Diarizer attributes time segments of a vocal stem to speakers.
// Segments come back non-overlapping and sorted by start time.
type Diarizer interface {
	Diarize(ctx context.Context, vocalsPath, outputDir string) (*DiarizationResult, error)
}

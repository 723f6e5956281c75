package model

// TrackType classifies a separated or diarized channel.
type TrackType string

const (
	TrackTypeSpeaker TrackType = "speaker"
	TrackTypeNoise   TrackType = "noise"
	TrackTypeVocals  TrackType = "vocals"
	TrackTypeDrums   TrackType = "drums"
	TrackTypeBass    TrackType = "bass"
	TrackTypeOther   TrackType = "other"
)

// Attenuable reports whether the noise-reduction control applies to
// tracks of this type.
func (t TrackType) Attenuable() bool {
	return t == TrackTypeNoise || t == TrackTypeOther
}

// Track is one separated/diarized channel belonging to a job. Tracks are
// created in bulk when analysis finishes and are immutable afterwards.
// All tracks of a job share the same duration and sample rate.
type Track struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Type     TrackType        `json:"type"`
	FilePath string           `json:"filePath"`
	Duration float64          `json:"durationSeconds"`
	Segments []SpeakerSegment `json:"segments"`
	Waveform []float64        `json:"waveformData,omitempty"`
	Color    string           `json:"color"`
}

// SpeakerSegment is one interval attributed to a speaker. Segments of a
// track are non-overlapping and sorted by start time; the adapter
// enforces this at construction, consumers do not re-validate.
type SpeakerSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SpeakerID  string  `json:"speakerId"`
	Confidence float64 `json:"confidence"`
}

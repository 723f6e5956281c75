package analysis

import (
	"fmt"
	"sort"

	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/model"
)

var speakerColors = []string{
	"#3B82F6", // blue
	"#EF4444", // red
	"#10B981", // green
	"#F59E0B", // amber
	"#8B5CF6", // purple
	"#EC4899", // pink
	"#06B6D4", // cyan
	"#F97316", // orange
	"#6366F1", // indigo
	"#84CC16", // lime
}

const noiseColor = "#6B7280"

// SpeakerColor returns a stable display color for the nth speaker.
func SpeakerColor(index int) string {
	return speakerColors[index%len(speakerColors)]
}

// BuildTracks materializes the job's Track list from the separation
// stems and the diarization result. Speaker tracks come first in
// speaker order, followed by the residual noise track. When diarization
// found no speakers the vocal stem is kept as a single unsplit vocals
// track, so every job yields at least two tracks.
func BuildTracks(stems map[string]string, dia *DiarizationResult, jobDuration float64) ([]model.Track, error) {
	var tracks []model.Track

	speakerIDs := make([]string, 0, len(dia.SpeakerPaths))
	for id := range dia.SpeakerPaths {
		speakerIDs = append(speakerIDs, id)
	}
	sort.Strings(speakerIDs)

	for i, speakerID := range speakerIDs {
		path := dia.SpeakerPaths[speakerID]

		var segments []model.SpeakerSegment
		for _, seg := range dia.Segments {
			if seg.SpeakerID == speakerID {
				segments = append(segments, seg)
			}
		}

		waveform, err := waveformFor(path)
		if err != nil {
			return nil, model.NewDiarizationError(
				fmt.Errorf("speaker track %s: %w", speakerID, err))
		}

		// Track IDs come from the sorted position, never from the
		// diarizer's own numbering: mixed ID schemes (SPEAKER_1 next
		// to an ad-hoc label) must not collide.
		tracks = append(tracks, model.Track{
			ID:       fmt.Sprintf("speaker_%d", i),
			Name:     fmt.Sprintf("Speaker %d", i+1),
			Type:     model.TrackTypeSpeaker,
			FilePath: path,
			Duration: jobDuration,
			Segments: segments,
			Waveform: waveform,
			Color:    SpeakerColor(i),
		})
	}

	if len(tracks) == 0 {
		// No speakers detected: keep the unsplit vocal stem.
		if vocalsPath, ok := stems[StemVocals]; ok {
			waveform, err := waveformFor(vocalsPath)
			if err != nil {
				return nil, model.NewSeparationError(err)
			}
			tracks = append(tracks, model.Track{
				ID:       StemVocals,
				Name:     "Vocals",
				Type:     model.TrackTypeVocals,
				FilePath: vocalsPath,
				Duration: jobDuration,
				Segments: []model.SpeakerSegment{},
				Waveform: waveform,
				Color:    SpeakerColor(0),
			})
		}
	}

	if noisePath, ok := stems[StemOther]; ok {
		waveform, err := waveformFor(noisePath)
		if err != nil {
			return nil, model.NewSeparationError(err)
		}
		tracks = append(tracks, model.Track{
			ID:       "noise",
			Name:     "Background / Noise",
			Type:     model.TrackTypeNoise,
			FilePath: noisePath,
			Duration: jobDuration,
			Segments: []model.SpeakerSegment{},
			Waveform: waveform,
			Color:    noiseColor,
		})
	}

	if len(tracks) == 0 {
		return nil, model.NewSeparationError(fmt.Errorf("separation produced no usable stems"))
	}
	return tracks, nil
}

func waveformFor(path string) ([]float64, error) {
	buf, err := audio.ReadWAV(path)
	if err != nil {
		return nil, err
	}
	return audio.WaveformSummary(buf, audio.WaveformPoints), nil
}

// Package mixer renders a job's tracks into a single sample buffer
// under a mix configuration. It is pure computation: buffers in,
// buffer out, no file or codec work.
package mixer

import (
	"fmt"
	"math"

	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/model"
)

// NormalizeTarget is the peak the normalized output is scaled to,
// just under full scale so the encoder never clips.
const NormalizeTarget = 0.98

const (
	minVolume = 0.0
	maxVolume = 2.0
	maxBoost  = 10.0
)

// Track pairs a job track's metadata with its decoded samples.
type Track struct {
	ID      string
	Type    model.TrackType
	Samples *audio.Buffer
}

// Window bounds a preview render in seconds. A nil *Window renders the
// full job duration.
type Window struct {
	Start    float64
	Duration float64
}

// Result is the rendered buffer plus render-quality reporting. Clipped
// is set when normalization was off and at least one summed sample had
// to be hard-limited; it is a quality condition, not an error.
type Result struct {
	Buffer  *audio.Buffer
	Peak    float64
	Clipped bool
}

// Engine renders mixes. The zero value is usable.
type Engine struct{}

// params is the resolved per-track contribution after joining the
// caller's TrackConfig list against the job's tracks.
type params struct {
	muted  bool
	solo   bool
	volume float64
}

// Mix renders the given tracks under cfg. Tracks are assumed
// time-aligned at a shared sample rate (an adapter invariant).
// jobDuration bounds the preview window; window == nil renders fully.
func (e *Engine) Mix(tracks []Track, cfg *model.MixConfig, window *Window, jobDuration float64) (*Result, error) {
	if len(tracks) == 0 {
		return nil, model.ErrNoTracks
	}

	sampleRate := tracks[0].Samples.SampleRate
	channels := tracks[0].Samples.Channels

	startFrame, endFrame, err := resolveWindow(window, jobDuration, sampleRate)
	if err != nil {
		return nil, err
	}

	resolved, mainID := e.resolve(tracks, cfg)

	anySolo := false
	for _, p := range resolved {
		if p.solo {
			anySolo = true
			break
		}
	}

	boost := clamp(cfg.MainSpeakerBoostDB, 0, maxBoost)
	noiseLevel := clamp(cfg.NoiseReductionLevel, 0, 1)

	// Output covers the longest track within the window; tracks may
	// differ by a rounding unit at the tail.
	outFrames := 0
	for _, t := range tracks {
		if f := t.Samples.Slice(startFrame, endFrame).Frames(); f > outFrames {
			outFrames = f
		}
	}
	out := audio.NewBuffer(outFrames, sampleRate, channels)

	for _, t := range tracks {
		p := resolved[t.ID]

		// Solo strictly dominates mute: with any solo active, only
		// soloed tracks sound, regardless of their own muted flag.
		if anySolo {
			if !p.solo {
				continue
			}
		} else if p.muted {
			continue
		}

		gain := clamp(p.volume, minVolume, maxVolume)
		if t.ID == mainID {
			gain *= math.Pow(10, boost/20)
		}
		if t.Type.Attenuable() {
			gain *= 1 - noiseLevel
		}
		if gain == 0 {
			continue
		}

		slice := t.Samples.Slice(startFrame, endFrame)
		for i, s := range slice.Data {
			out.Data[i] += s * gain
		}
	}

	res := &Result{Buffer: out, Peak: out.Peak()}
	if cfg.NormalizeEnabled() {
		normalize(out, res.Peak)
		res.Peak = out.Peak()
	} else if res.Peak > 1.0 {
		hardClip(out)
		res.Clipped = true
		res.Peak = 1.0
	}
	return res, nil
}

// resolve joins the caller's TrackConfig entries against the job's
// track set. Tracks without an entry get defaults. At most one track is
// treated as main: the first marked entry in caller order wins and the
// rest are ignored.
func (e *Engine) resolve(tracks []Track, cfg *model.MixConfig) (map[string]params, string) {
	known := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		known[t.ID] = true
	}

	resolved := make(map[string]params, len(tracks))
	for _, t := range tracks {
		resolved[t.ID] = params{volume: 1.0}
	}

	mainID := ""
	for _, tc := range cfg.Tracks {
		if !known[tc.TrackID] {
			continue
		}
		p := params{
			muted: tc.Muted,
			solo:  tc.Solo,
		}
		if tc.Volume != nil {
			p.volume = *tc.Volume
		} else {
			p.volume = 1.0
		}
		if tc.IsMain && mainID == "" {
			mainID = tc.TrackID
		}
		resolved[tc.TrackID] = p
	}
	return resolved, mainID
}

func resolveWindow(window *Window, jobDuration float64, sampleRate int) (int, int, error) {
	if window == nil {
		return 0, math.MaxInt, nil
	}
	if window.Start >= jobDuration {
		return 0, 0, fmt.Errorf("%w: start %.2fs beyond %.2fs recording",
			model.ErrInvalidRange, window.Start, jobDuration)
	}
	start := window.Start
	if start < 0 {
		start = 0
	}
	end := window.Start + window.Duration
	if end > jobDuration {
		end = jobDuration
	}
	return int(start * float64(sampleRate)), int(end * float64(sampleRate)), nil
}

func normalize(buf *audio.Buffer, peak float64) {
	if peak == 0 {
		return
	}
	scale := NormalizeTarget / peak
	for i := range buf.Data {
		buf.Data[i] *= scale
	}
}

func hardClip(buf *audio.Buffer) {
	for i, s := range buf.Data {
		if s > 1.0 {
			buf.Data[i] = 1.0
		} else if s < -1.0 {
			buf.Data[i] = -1.0
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpeg wraps the ffmpeg/ffprobe binaries for the operations the
// pipeline treats as black boxes: probing uploads, normalizing them to
// the canonical PCM16 WAV format, and lossy export encodes.
type FFmpeg struct {
	Bin string
}

// NewFFmpeg returns a wrapper around the given ffmpeg binary; an empty
// name falls back to PATH lookup of "ffmpeg".
func NewFFmpeg(bin string) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{Bin: bin}
}

// Info describes an audio file as reported by ffprobe.
type Info struct {
	Duration   float64
	SampleRate int
	Channels   int
}

// Probe runs ffprobe and returns duration, sample rate and channel count.
func (f *FFmpeg) Probe(ctx context.Context, path string) (*Info, error) {
	// Keep custom install prefixes (e.g. /opt/ffmpeg/bin/ffmpeg) working.
	probe := "ffprobe"
	if strings.HasSuffix(f.Bin, "ffmpeg") {
		probe = strings.TrimSuffix(f.Bin, "ffmpeg") + "ffprobe"
	}

	cmd := exec.CommandContext(ctx, probe,
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels:format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed struct {
		Streams []struct {
			SampleRate string `json:"sample_rate"`
			Channels   int    `json:"channels"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return nil, fmt.Errorf("no audio stream in %s", path)
	}

	info := &Info{Channels: parsed.Streams[0].Channels}
	info.Duration, _ = strconv.ParseFloat(parsed.Format.Duration, 64)
	info.SampleRate, _ = strconv.Atoi(parsed.Streams[0].SampleRate)
	return info, nil
}

// ConvertToWAV transcodes any supported input to stereo PCM16 WAV at
// the target sample rate.
func (f *FFmpeg) ConvertToWAV(ctx context.Context, inPath, outPath string, sampleRate int) error {
	return f.run(ctx,
		"-y",
		"-i", inPath,
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", "2",
		outPath,
	)
}

// EncodeMP3 transcodes a WAV file to MP3 at the given bitrate in kbit/s.
func (f *FFmpeg) EncodeMP3(ctx context.Context, inPath, outPath string, bitrateK int) error {
	return f.run(ctx,
		"-y",
		"-i", inPath,
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrateK),
		outPath,
	)
}

// EncodeFLAC transcodes a WAV file to FLAC.
func (f *FFmpeg) EncodeFLAC(ctx context.Context, inPath, outPath string) error {
	return f.run(ctx,
		"-y",
		"-i", inPath,
		"-codec:a", "flac",
		outPath,
	)
}

func (f *FFmpeg) run(ctx context.Context, args ...string) error {
	full := append([]string{"-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, f.Bin, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w: %s", f.Bin, args, err, stderr.String())
	}
	return nil
}

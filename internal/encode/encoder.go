// Package encode serializes rendered buffers to their output
// containers and persists them as artifacts.
package encode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/voxsplit/api/internal/audio"
	"github.com/voxsplit/api/internal/model"
)

// MP3BitrateK is the export bitrate in kbit/s.
const MP3BitrateK = 192

// Encoder writes buffers to disk. WAV is produced directly; mp3 and
// flac go through ffmpeg from a temporary WAV.
type Encoder struct {
	ffmpeg *audio.FFmpeg
}

func NewEncoder(ffmpeg *audio.FFmpeg) *Encoder {
	return &Encoder{ffmpeg: ffmpeg}
}

// Encode writes buf to outPath in the requested format and returns the
// artifact's byte size. The parent directory is created as needed.
func (e *Encoder) Encode(ctx context.Context, buf *audio.Buffer, format, outPath string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrEncodeFailed, err)
	}

	switch format {
	case model.FormatWAV:
		if err := audio.WriteWAV(outPath, buf); err != nil {
			return 0, fmt.Errorf("%w: %v", model.ErrEncodeFailed, err)
		}

	case model.FormatMP3, model.FormatFLAC:
		tmp := outPath + ".tmp.wav"
		if err := audio.WriteWAV(tmp, buf); err != nil {
			return 0, fmt.Errorf("%w: %v", model.ErrEncodeFailed, err)
		}
		defer os.Remove(tmp)

		var err error
		if format == model.FormatMP3 {
			err = e.ffmpeg.EncodeMP3(ctx, tmp, outPath, MP3BitrateK)
		} else {
			err = e.ffmpeg.EncodeFLAC(ctx, tmp, outPath)
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", model.ErrEncodeFailed, err)
		}

	default:
		return 0, fmt.Errorf("%w: %q", model.ErrUnsupportedFormat, format)
	}

	fi, err := os.Stat(outPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", model.ErrEncodeFailed, err)
	}
	return fi.Size(), nil
}

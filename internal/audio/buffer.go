package audio

// Buffer holds interleaved PCM samples in the [-1, 1] float range.
type Buffer struct {
	Data       []float64
	SampleRate int
	Channels   int
}

// NewBuffer allocates a zeroed buffer of the given frame count.
func NewBuffer(frames, sampleRate, channels int) *Buffer {
	return &Buffer{
		Data:       make([]float64, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Frames returns the number of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if b.Channels == 0 {
		return 0
	}
	return len(b.Data) / b.Channels
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float64 {
	peak := 0.0
	for _, s := range b.Data {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	return peak
}

// Slice returns a view of the frame range [start, end). Bounds are
// clamped to the buffer; an inverted range yields an empty view.
func (b *Buffer) Slice(start, end int) *Buffer {
	frames := b.Frames()
	if start < 0 {
		start = 0
	}
	if end > frames {
		end = frames
	}
	if start > end {
		start = end
	}
	return &Buffer{
		Data:       b.Data[start*b.Channels : end*b.Channels],
		SampleRate: b.SampleRate,
		Channels:   b.Channels,
	}
}

// Fade applies a linear fade-in and fade-out of the given duration to
// the edges of the buffer, in place. Buffers shorter than two fade
// spans are left untouched.
func (b *Buffer) Fade(seconds float64) {
	fadeFrames := int(seconds * float64(b.SampleRate))
	if fadeFrames <= 0 || b.Frames() < fadeFrames*2 {
		return
	}
	ch := b.Channels
	for i := 0; i < fadeFrames; i++ {
		gain := float64(i) / float64(fadeFrames)
		for c := 0; c < ch; c++ {
			b.Data[i*ch+c] *= gain
		}
	}
	total := b.Frames()
	for i := 0; i < fadeFrames; i++ {
		gain := float64(i) / float64(fadeFrames)
		frame := total - 1 - i
		for c := 0; c < ch; c++ {
			b.Data[frame*ch+c] *= gain
		}
	}
}

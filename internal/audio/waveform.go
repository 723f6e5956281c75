package audio

// WaveformPoints is the display resolution of track waveform summaries.
const WaveformPoints = 200

// WaveformSummary decimates the buffer into peak values for display,
// normalized so the loudest point is 1.0. The buffer is mixed down to
// mono before decimation.
func WaveformSummary(buf *Buffer, points int) []float64 {
	if points <= 0 {
		return nil
	}
	frames := buf.Frames()
	ch := buf.Channels
	perPoint := frames / points
	if perPoint < 1 {
		perPoint = 1
	}

	waveform := make([]float64, points)
	maxPeak := 0.0
	for i := 0; i < points; i++ {
		start := i * perPoint
		end := start + perPoint
		if end > frames {
			end = frames
		}
		if start >= frames {
			break
		}
		peak := 0.0
		for f := start; f < end; f++ {
			mono := 0.0
			for c := 0; c < ch; c++ {
				mono += buf.Data[f*ch+c]
			}
			mono /= float64(ch)
			if mono < 0 {
				mono = -mono
			}
			if mono > peak {
				peak = mono
			}
		}
		waveform[i] = peak
		if peak > maxPeak {
			maxPeak = peak
		}
	}

	if maxPeak > 0 {
		for i := range waveform {
			waveform[i] /= maxPeak
		}
	}
	return waveform
}

package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// RIFF/WAVE PCM16 reader and writer. Analysis stages emit 16-bit PCM
// and the export stage feeds ffmpeg through the same container, so one
// subtype covers the whole pipeline.

const wavHeaderSize = 44

// ReadWAV decodes a PCM16 WAV file into a float buffer.
func ReadWAV(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeWAV(f)
}

// DecodeWAV decodes PCM16 WAV data from r.
func DecodeWAV(r io.Reader) (*Buffer, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE stream")
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		haveFmt       bool
	)

	for {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, fmt.Errorf("no data chunk found")
			}
			return nil, err
		}
		id := string(chunk[0:4])
		size := int(binary.LittleEndian.Uint32(chunk[4:8]))

		switch id {
		case "fmt ":
			body := make([]byte, size)
			if _, err := io.ReadFull(r, body); err != nil {
				return nil, fmt.Errorf("read fmt chunk: %w", err)
			}
			format := binary.LittleEndian.Uint16(body[0:2])
			if format != 1 {
				return nil, fmt.Errorf("unsupported wav encoding %d (want PCM)", format)
			}
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(body[14:16]))
			if bitsPerSample != 16 {
				return nil, fmt.Errorf("unsupported bit depth %d (want 16)", bitsPerSample)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, fmt.Errorf("data chunk before fmt chunk")
			}
			raw := make([]byte, size)
			if _, err := io.ReadFull(r, raw); err != nil {
				return nil, fmt.Errorf("read data chunk: %w", err)
			}
			if len(raw)%2 != 0 {
				raw = raw[:len(raw)-1]
			}
			data := make([]float64, len(raw)/2)
			for i := range data {
				s := int16(binary.LittleEndian.Uint16(raw[i*2 : i*2+2]))
				data[i] = float64(s) / 32768.0
			}
			return &Buffer{Data: data, SampleRate: sampleRate, Channels: channels}, nil

		default:
			// Skip unknown chunks (LIST, fact, ...)
			if _, err := io.CopyN(io.Discard, r, int64(size+size%2)); err != nil {
				return nil, err
			}
		}
	}
}

// WriteWAV encodes the buffer as a PCM16 WAV file.
func WriteWAV(path string, buf *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeWAV(f, buf)
}

// EncodeWAV writes the buffer to w as PCM16 WAV.
func EncodeWAV(w io.Writer, buf *Buffer) error {
	dataSize := len(buf.Data) * 2
	header := make([]byte, wavHeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(buf.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(buf.SampleRate))
	byteRate := buf.SampleRate * buf.Channels * 2
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(buf.Channels*2))
	binary.LittleEndian.PutUint16(header[34:36], 16)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(dataSize))

	if _, err := w.Write(header); err != nil {
		return err
	}

	pcm := make([]byte, dataSize)
	for i, s := range buf.Data {
		// Same scale the decoder divides by, so dyadic values survive a
		// round trip exactly; full-scale positive caps at the int16 max.
		v := math.Round(clampSample(s) * 32768.0)
		if v > 32767 {
			v = 32767
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v)))
	}
	_, err := w.Write(pcm)
	return err
}

func clampSample(s float64) float64 {
	if s > 1.0 {
		return 1.0
	}
	if s < -1.0 {
		return -1.0
	}
	return s
}

// SPDX-License-Identifier: MIT
/*
Package export writes recording snapshots to disk as PCM WAV files.

Snapshots arrive as one float32 slice per channel in [-1, 1]. They are
interleaved and scaled to the configured integer bit depth in fixed-size
chunks, so exporting a long take never builds a second full-size copy.
*/
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/oklog/ulid/v2"
)

const (
	chunkFrames = 4096
	pcmFormat   = 1 // WAVE_FORMAT_PCM
)

var (
	ErrEmptyRecording  = errors.New("recording is empty")
	ErrInvalidBitDepth = errors.New("unsupported bit depth")
)

// Format describes the WAV output.
type Format struct {
	SampleRate int
	BitDepth   int // 16, 24 or 32
}

// Validate checks the format is writable.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	}
	switch f.BitDepth {
	case 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidBitDepth, f.BitDepth)
	}
}

// Frames returns the per-channel length of a snapshot.
func Frames(channels [][]float32) int {
	if len(channels) == 0 {
		return 0
	}
	return len(channels[0])
}

// Encode writes channels to w as an interleaved PCM WAV stream.
func Encode(w io.WriteSeeker, channels [][]float32, format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}
	frames := Frames(channels)
	if frames == 0 {
		return ErrEmptyRecording
	}

	numChannels := len(channels)
	enc := wav.NewEncoder(w, format.SampleRate, format.BitDepth, numChannels, pcmFormat)

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  format.SampleRate,
		},
		SourceBitDepth: format.BitDepth,
		Data:           make([]int, min(frames, chunkFrames)*numChannels),
	}

	for start := 0; start < frames; start += chunkFrames {
		end := min(start+chunkFrames, frames)
		buf.Data = Interleave(buf.Data[:0], channels, start, end, format.BitDepth)
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("failed to write samples: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize wav: %w", err)
	}
	return nil
}

// Interleave appends frames [start, end) of channels to dst as integer
// samples at bitDepth, channel-interleaved. Short channels are padded with
// silence.
func Interleave(dst []int, channels [][]float32, start, end, bitDepth int) []int {
	scale := float64(int64(1)<<(bitDepth-1) - 1)
	for i := start; i < end; i++ {
		for _, ch := range channels {
			var v float32
			if i < len(ch) {
				v = ch[i]
			}
			dst = append(dst, quantize(v, scale))
		}
	}
	return dst
}

func quantize(v float32, scale float64) int {
	f := float64(v)
	if f > 1 {
		f = 1
	} else if f < -1 {
		f = -1
	}
	return int(f * scale)
}

// WriteFile encodes channels into a new file at path. Empty recordings are
// refused before the file is created.
func WriteFile(path string, channels [][]float32, format Format) (err error) {
	if Frames(channels) == 0 {
		return ErrEmptyRecording
	}
	if err := format.Validate(); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	return Encode(file, channels, format)
}

// NewTakeID returns a sortable unique identifier for a saved take.
func NewTakeID() string {
	return ulid.Make().String()
}

// TakePath returns the output path for a take inside dir.
func TakePath(dir, id string) string {
	return filepath.Join(dir, "take-"+id+".wav")
}

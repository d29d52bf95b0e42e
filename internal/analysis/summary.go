// SPDX-License-Identifier: MIT
package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"grec/internal/message"
	"grec/pkg/bitint"
	"grec/pkg/utils"
)

const (
	// MaxSummaryFFT caps the analysis block used for the dominant frequency.
	MaxSummaryFFT = 8192
	// MinSummaryFFT is the shortest block worth analysing.
	MinSummaryFFT = 64
	// SilenceDBFS is reported for digital silence instead of -Inf.
	SilenceDBFS = -120.0
)

// Summarize describes a finished snapshot: peak and RMS over all channels
// and the dominant frequency of the mono mixdown, averaged across
// consecutive FFT blocks. It runs on the host, never in the audio callback.
func Summarize(channels [][]float32, sampleRate int, windowType WindowFunc) message.Summary {
	frames := 0
	if len(channels) > 0 {
		frames = len(channels[0])
	}
	summary := message.Summary{
		PeakDBFS:    SilenceDBFS,
		RMSDBFS:     SilenceDBFS,
		SampleCount: frames * len(channels),
	}
	if summary.SampleCount == 0 {
		return summary
	}

	mono := make([]float64, frames)
	var sumSq float64
	for _, ch := range channels {
		for i, v := range ch[:min(len(ch), frames)] {
			f := float64(v)
			mono[i] += f
			sumSq += f * f
			if a := math.Abs(f); a > summary.Peak {
				summary.Peak = a
			}
		}
	}
	floats.Scale(1/float64(len(channels)), mono)

	summary.RMS = math.Sqrt(sumSq / float64(summary.SampleCount))
	summary.PeakDBFS = DBFS(summary.Peak)
	summary.RMSDBFS = DBFS(summary.RMS)
	summary.DominantHz = dominantFrequency(mono, sampleRate, windowType)

	return summary
}

// DBFS converts a linear amplitude to decibels relative to full scale.
func DBFS(amplitude float64) float64 {
	if amplitude <= 0 {
		return SilenceDBFS
	}
	return math.Max(20*math.Log10(amplitude), SilenceDBFS)
}

func dominantFrequency(mono []float64, sampleRate int, windowType WindowFunc) float64 {
	size := bitint.PrevPowerOfTwo(min(len(mono), MaxSummaryFFT))
	if size < MinSummaryFFT || sampleRate <= 0 {
		return 0
	}
	spectrum, err := NewSpectrum(size, float64(sampleRate), windowType)
	if err != nil {
		return 0
	}

	block := make([]float32, size)
	acc := make([]float64, spectrum.Bins())
	for start := 0; start+size <= len(mono); start += size {
		for i := range block {
			block[i] = float32(mono[start+i])
		}
		floats.Add(acc, spectrum.Process(block))
	}

	if floats.Max(acc) == 0 {
		return 0
	}
	// Skip the DC bin.
	return spectrum.FrequencyForBin(utils.FindPeakBin(acc, 1, len(acc)-1))
}

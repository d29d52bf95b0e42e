// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	applog "grec/internal/log"
	"grec/pkg/bitint"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions.
const (
	BartlettHann WindowFunc = iota
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Spectrum computes magnitude spectra of float32 sample blocks. The FFT
// plan and all buffers are allocated once; Process does not allocate.
// A Spectrum is not safe for concurrent use.
type Spectrum struct {
	fft        *fourier.FFT
	fftSize    int     // Number of points (power of 2)
	sampleRate float64 // Hz

	input     []float64    // Windowed input
	output    []complex128 // FFT coefficients, N/2 + 1
	magnitude []float64    // |output|
	window    []float64    // Pre-calculated window coefficients
}

// NewSpectrum creates a Spectrum of fftSize points.
func NewSpectrum(fftSize int, sampleRate float64, windowType WindowFunc) (*Spectrum, error) {
	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	coeffs := make([]float64, fftSize)
	applyWindow(coeffs, windowType)

	// FFT output size for real input is N/2 + 1 complex values.
	bins := fftSize/2 + 1

	applog.Debugf("Analysis: spectrum size %d, sample rate %.1f Hz, window %d", fftSize, sampleRate, windowType)

	return &Spectrum{
		fft:        fourier.NewFFT(fftSize),
		fftSize:    fftSize,
		sampleRate: sampleRate,
		input:      make([]float64, fftSize),
		output:     make([]complex128, bins),
		magnitude:  make([]float64, bins),
		window:     coeffs,
	}, nil
}

// Process windows block, zero-padding or truncating to the FFT size, and
// returns the magnitude spectrum. The returned slice is reused by the next
// call.
func (s *Spectrum) Process(block []float32) []float64 {
	n := len(block)
	for i := range s.fftSize {
		if i < n {
			s.input[i] = float64(block[i]) * s.window[i]
		} else {
			s.input[i] = 0
		}
	}

	s.fft.Coefficients(s.output, s.input)

	for i, c := range s.output {
		s.magnitude[i] = cmplx.Abs(c)
	}
	return s.magnitude
}

// MagnitudesInto copies the latest magnitudes into dst, which must have
// Bins() elements.
func (s *Spectrum) MagnitudesInto(dst []float64) error {
	if len(dst) != len(s.magnitude) {
		return fmt.Errorf("destination slice length %d does not match required length %d", len(dst), len(s.magnitude))
	}
	copy(dst, s.magnitude)
	return nil
}

// FrequencyForBin returns the center frequency (Hz) of an FFT bin.
func (s *Spectrum) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin >= len(s.output) {
		return 0.0
	}
	return float64(bin) * (s.sampleRate / float64(s.fftSize))
}

// Size returns the number of FFT points.
func (s *Spectrum) Size() int {
	return s.fftSize
}

// Bins returns the number of magnitude bins.
func (s *Spectrum) Bins() int {
	return len(s.magnitude)
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc
// enum, returns a known default (Hann) and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning", "":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window. Unknown types fall
// back to Hann.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	// Window funcs scale in place, so start from a rectangular window.
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		applog.Warnf("Analysis: unknown window function type %d, defaulting to Hann", windowType)
		window.Hann(coeffs)
	}
}

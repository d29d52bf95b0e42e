// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"

	"grec/pkg/utils"
)

const testSampleRate = 16000

func TestNewSpectrumValidation(t *testing.T) {
	tests := []struct {
		desc       string
		size       int
		sampleRate float64
		wantErr    bool
	}{
		{"Valid", 1024, testSampleRate, false},
		{"Not power of two", 1000, testSampleRate, true},
		{"Zero rate", 1024, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			_, err := NewSpectrum(tt.size, tt.sampleRate, Hann)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewSpectrum() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSpectrumPeak(t *testing.T) {
	const size = 1024
	s, err := NewSpectrum(size, testSampleRate, Hann)
	if err != nil {
		t.Fatal(err)
	}

	// 1000 Hz lands exactly on bin 64 at 15.625 Hz resolution.
	mags := s.Process(utils.GenerateSineWave(size, testSampleRate, 1000, 0.8))
	if len(mags) != size/2+1 {
		t.Fatalf("got %d bins, want %d", len(mags), size/2+1)
	}

	peak := utils.FindPeakBin(mags, 1, len(mags)-1)
	if peak != 64 {
		t.Errorf("peak bin = %d, want 64", peak)
	}
	if got := s.FrequencyForBin(peak); got != 1000 {
		t.Errorf("FrequencyForBin(%d) = %f, want 1000", peak, got)
	}
	if got := s.FrequencyForBin(-1); got != 0 {
		t.Errorf("FrequencyForBin(-1) = %f, want 0", got)
	}
}

func TestMagnitudesInto(t *testing.T) {
	s, _ := NewSpectrum(256, testSampleRate, Hamming)
	s.Process(utils.GenerateConstant(256, 0.5))

	if err := s.MagnitudesInto(make([]float64, 3)); err == nil {
		t.Error("expected length mismatch error")
	}
	dst := make([]float64, s.Bins())
	if err := s.MagnitudesInto(dst); err != nil {
		t.Fatalf("MagnitudesInto: %v", err)
	}
	if dst[0] == 0 {
		t.Error("DC bin of a constant signal should be non-zero")
	}
}

func TestSummarize(t *testing.T) {
	sine := utils.GenerateSineWave(testSampleRate, testSampleRate, 1000, 0.5)
	s := Summarize([][]float32{sine}, testSampleRate, Hann)

	if s.SampleCount != testSampleRate {
		t.Errorf("SampleCount = %d, want %d", s.SampleCount, testSampleRate)
	}
	if math.Abs(s.Peak-0.5) > 1e-6 {
		t.Errorf("Peak = %f, want 0.5", s.Peak)
	}
	if want := 0.5 / math.Sqrt2; math.Abs(s.RMS-want) > 1e-3 {
		t.Errorf("RMS = %f, want %f", s.RMS, want)
	}
	if math.Abs(s.PeakDBFS-DBFS(0.5)) > 1e-6 {
		t.Errorf("PeakDBFS = %f, want %f", s.PeakDBFS, DBFS(0.5))
	}
	if math.Abs(s.DominantHz-1000) > 2 {
		t.Errorf("DominantHz = %f, want ~1000", s.DominantHz)
	}
}

func TestSummarizeStereoMixdown(t *testing.T) {
	left := utils.GenerateSineWave(4096, testSampleRate, 500, 0.9)
	right := utils.GenerateConstant(4096, 0)

	s := Summarize([][]float32{left, right}, testSampleRate, Blackman)
	if s.SampleCount != 8192 {
		t.Errorf("SampleCount = %d, want 8192", s.SampleCount)
	}
	if math.Abs(s.DominantHz-500) > 4 {
		t.Errorf("DominantHz = %f, want ~500", s.DominantHz)
	}
}

func TestSummarizeEdgeCases(t *testing.T) {
	tests := []struct {
		desc      string
		channels  [][]float32
		wantCount int
	}{
		{"Nil", nil, 0},
		{"Empty channels", [][]float32{{}, {}}, 0},
		{"Silence", [][]float32{utils.GenerateConstant(2048, 0)}, 2048},
		{"Too short for FFT", [][]float32{utils.GenerateConstant(10, 0)}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			s := Summarize(tt.channels, testSampleRate, Hann)
			if s.SampleCount != tt.wantCount {
				t.Errorf("SampleCount = %d, want %d", s.SampleCount, tt.wantCount)
			}
			if s.PeakDBFS != SilenceDBFS || s.RMSDBFS != SilenceDBFS {
				t.Errorf("dBFS = %f/%f, want %f", s.PeakDBFS, s.RMSDBFS, SilenceDBFS)
			}
			if s.DominantHz != 0 {
				t.Errorf("DominantHz = %f, want 0", s.DominantHz)
			}
		})
	}
}

func TestDBFS(t *testing.T) {
	tests := []struct {
		amplitude float64
		want      float64
	}{
		{1, 0},
		{0.5, -6.0206},
		{0.1, -20},
		{0, SilenceDBFS},
		{1e-9, SilenceDBFS},
	}
	for _, tt := range tests {
		if got := DBFS(tt.amplitude); math.Abs(got-tt.want) > 1e-3 {
			t.Errorf("DBFS(%g) = %f, want %f", tt.amplitude, got, tt.want)
		}
	}
}

func TestParseWindowFunc(t *testing.T) {
	tests := []struct {
		name    string
		want    WindowFunc
		wantErr bool
	}{
		{"hann", Hann, false},
		{"Hanning", Hann, false},
		{"", Hann, false},
		{"BLACKMAN", Blackman, false},
		{"blackmannuttall", BlackmanNuttall, false},
		{"bartletthann", BartlettHann, false},
		{"hamming", Hamming, false},
		{"lanczos", Lanczos, false},
		{"nuttall", Nuttall, false},
		{"triangle", Hann, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseWindowFunc(tt.name)
			if got != tt.want || (err != nil) != tt.wantErr {
				t.Errorf("ParseWindowFunc(%q) = %d, %v; want %d, err %v", tt.name, got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestSpectrumProcessHotPath(t *testing.T) {
	s, _ := NewSpectrum(512, testSampleRate, Hann)
	block := utils.GenerateSineWave(512, testSampleRate, 440, 0.5)

	allocs := testing.AllocsPerRun(100, func() {
		s.Process(block)
	})
	if allocs > 0 {
		t.Errorf("Process allocated %v times", allocs)
	}
}

func BenchmarkSummarize(b *testing.B) {
	sine := utils.GenerateSineWave(testSampleRate*10, testSampleRate, 440, 0.5)
	channels := [][]float32{sine}

	b.ReportAllocs()
	for b.Loop() {
		Summarize(channels, testSampleRate, Hann)
	}
}

// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"testing"
)

func TestLevelGateEnable(t *testing.T) {
	g := NewLevelGate()

	if !g.Open(0.5) || g.Open(0.0001) {
		t.Error("enabled gate should only open above the threshold")
	}

	g.Disable()
	g.Disable() // Idempotent.
	if g.Enabled() {
		t.Error("Enabled() = true after Disable")
	}
	if !g.Open(0) {
		t.Error("disabled gate should always be open")
	}

	g.Enable()
	if g.Open(0) {
		t.Error("re-enabled gate should close on silence")
	}
}

func TestLevelGateThreshold(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0.25, 0.25},
		{-1, 0},
		{2, 1},
		{math.NaN(), 0},
	}
	g := NewLevelGate()
	for _, tt := range tests {
		g.SetThreshold(tt.in)
		if got := g.Threshold(); got != tt.want {
			t.Errorf("SetThreshold(%v) -> %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelGateHotPath(t *testing.T) {
	g := NewLevelGate()
	allocs := testing.AllocsPerRun(100, func() {
		_ = g.Open(0.1)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in gate check, got %.1f", allocs)
	}
}

// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync/atomic"
)

// DefaultGateThreshold is roughly -60 dBFS.
const DefaultGateThreshold = 0.001

// LevelGate classifies progress RMS values as signal or silence for the
// monitors. It never touches the recorded samples.
type LevelGate struct {
	threshold atomic.Uint64 // float64 bits
	enabled   atomic.Bool
}

// NewLevelGate returns an enabled gate at DefaultGateThreshold.
func NewLevelGate() *LevelGate {
	g := &LevelGate{}
	g.SetThreshold(DefaultGateThreshold)
	g.Enable()
	return g
}

func (g *LevelGate) Enable() {
	g.enabled.Store(true)
}

func (g *LevelGate) Disable() {
	g.enabled.Store(false)
}

// Enabled reports whether the gate classifies levels.
func (g *LevelGate) Enabled() bool {
	return g.enabled.Load()
}

// SetThreshold adjusts the gate threshold.
// The value is in the range of 0.0-1.0 where 0=always open, 1=always closed.
func (g *LevelGate) SetThreshold(threshold float64) {
	if threshold < 0.0 || math.IsNaN(threshold) {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}
	g.threshold.Store(math.Float64bits(threshold))
}

// Threshold returns the current threshold.
func (g *LevelGate) Threshold() float64 {
	return math.Float64frombits(g.threshold.Load())
}

// Open reports whether rms counts as signal. A disabled gate is always open.
func (g *LevelGate) Open(rms float64) bool {
	if !g.enabled.Load() {
		return true
	}
	return rms > g.Threshold()
}

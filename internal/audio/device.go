// SPDX-License-Identifier: MIT
package audio

import "time"

// Device describes an audio device in a PortAudio-independent form.
type Device struct {
	ID                int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	LowInputLatency   time.Duration
	HighInputLatency  time.Duration
	IsDefaultInput    bool
}

// Type returns "Input", "Output", "Input/Output" or "" for a device with no
// channels.
func (d Device) Type() string {
	switch {
	case d.MaxInputChannels > 0 && d.MaxOutputChannels > 0:
		return "Input/Output"
	case d.MaxInputChannels > 0:
		return "Input"
	case d.MaxOutputChannels > 0:
		return "Output"
	default:
		return ""
	}
}

// CanRecord reports whether the device can capture the requested channels.
func (d Device) CanRecord(channels int) bool {
	return d.MaxInputChannels >= channels
}

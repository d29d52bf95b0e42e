// SPDX-License-Identifier: MIT
package processor

// State is the recording state of a Processor.
type State uint8

const (
	Idle State = iota
	Recording
	Paused
	Stopped
)

// String returns the lower-case state name used in logs and UI messages.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// SPDX-License-Identifier: MIT
package message

// Summary describes the content of an exported recording.
type Summary struct {
	Peak        float64 `json:"peak"`
	RMS         float64 `json:"rms"`
	PeakDBFS    float64 `json:"peakDbfs"`
	RMSDBFS     float64 `json:"rmsDbfs"`
	DominantHz  float64 `json:"dominantHz"`
	SampleCount int     `json:"sampleCount"`
}

// RecordingSaved is sent by the host to UI clients after a snapshot has
// been written to disk. It is not part of the processor protocol.
type RecordingSaved struct {
	Type            string  `json:"type"`
	ID              string  `json:"id"`
	Path            string  `json:"path"`
	Frames          int     `json:"frames"`
	DurationSeconds float64 `json:"durationSeconds"`
	Final           bool    `json:"final"`
	Summary         Summary `json:"summary"`
}

// RecordingSavedTag is the wire tag of RecordingSaved.
const RecordingSavedTag = "recording_saved"

// StateChanged is sent by the host to UI clients whenever it issues a
// command or the processor stops on its own.
type StateChanged struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

// StateChangedTag is the wire tag of StateChanged.
const StateChangedTag = "state_changed"

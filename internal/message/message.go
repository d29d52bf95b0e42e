// SPDX-License-Identifier: MIT
/*
Package message defines the protocol spoken between the host and the frame
processor.

Both directions are closed tagged unions carried as plain value structs, so
they can be copied into a pre-allocated ring without boxing them in an
interface. Every message has a string tag used on the wire:

	Host -> Processor   set_recording_state  {isRecording, intent}
	Processor -> Host   progress_update      {recordedFrames, elapsedSeconds, rms}
	Processor -> Host   buffer_snapshot      {channels}
	Processor -> Host   max_length_reached   {}
*/
package message

// CommandType discriminates host-to-processor messages.
type CommandType uint8

const (
	CommandUnknown CommandType = iota
	SetRecordingState
)

// Tag returns the wire tag for the command type.
func (t CommandType) Tag() string {
	switch t {
	case SetRecordingState:
		return "set_recording_state"
	default:
		return ""
	}
}

// Intent says which transition a SetRecordingState command requests.
type Intent uint8

const (
	IntentNone Intent = iota
	IntentRecord
	IntentPause
	IntentStop
)

// String returns the wire name of the intent.
func (i Intent) String() string {
	switch i {
	case IntentRecord:
		return "record"
	case IntentPause:
		return "pause"
	case IntentStop:
		return "stop"
	default:
		return ""
	}
}

// ParseIntent converts a wire name to an Intent. Unknown names give IntentNone.
func ParseIntent(s string) Intent {
	switch s {
	case "record":
		return IntentRecord
	case "pause":
		return IntentPause
	case "stop":
		return IntentStop
	default:
		return IntentNone
	}
}

// Command is a host-to-processor message.
type Command struct {
	Type        CommandType
	IsRecording bool
	Intent      Intent
}

// Record, Pause and Stop build the three SetRecordingState commands.
func Record() Command { return Command{Type: SetRecordingState, IsRecording: true, Intent: IntentRecord} }
func Pause() Command  { return Command{Type: SetRecordingState, Intent: IntentPause} }
func Stop() Command   { return Command{Type: SetRecordingState, Intent: IntentStop} }

// EffectiveIntent resolves the transition a command asks for. Commands that
// carry only the isRecording flag use the legacy protocol, where clearing
// the flag pauses the recording.
func (c Command) EffectiveIntent() Intent {
	if c.Intent != IntentNone {
		return c.Intent
	}
	if c.IsRecording {
		return IntentRecord
	}
	return IntentPause
}

// EventType discriminates processor-to-host messages.
type EventType uint8

const (
	EventUnknown EventType = iota
	ProgressUpdate
	BufferSnapshot
	MaxLengthReached
)

// Tag returns the wire tag for the event type.
func (t EventType) Tag() string {
	switch t {
	case ProgressUpdate:
		return "progress_update"
	case BufferSnapshot:
		return "buffer_snapshot"
	case MaxLengthReached:
		return "max_length_reached"
	default:
		return ""
	}
}

// Progress is the payload of a ProgressUpdate event.
type Progress struct {
	RecordedFrames int     `json:"recordedFrames"`
	ElapsedSeconds float64 `json:"elapsedSeconds"`
	RMS            float64 `json:"rms"`
}

// Event is a processor-to-host message. Only the payload field matching
// Type is meaningful.
type Event struct {
	Type     EventType
	Progress Progress
	// Channels holds one PCM slice per channel for BufferSnapshot. The
	// slices belong to the receiver; the processor never writes them again.
	Channels [][]float32
}

// NewProgress builds a ProgressUpdate event.
func NewProgress(recordedFrames int, elapsedSeconds, rms float64) Event {
	return Event{
		Type: ProgressUpdate,
		Progress: Progress{
			RecordedFrames: recordedFrames,
			ElapsedSeconds: elapsedSeconds,
			RMS:            rms,
		},
	}
}

// NewSnapshot builds a BufferSnapshot event.
func NewSnapshot(channels [][]float32) Event {
	return Event{Type: BufferSnapshot, Channels: channels}
}

// NewMaxLengthReached builds a MaxLengthReached event.
func NewMaxLengthReached() Event {
	return Event{Type: MaxLengthReached}
}

// Frames returns the per-channel length of a snapshot.
func (e Event) Frames() int {
	if len(e.Channels) == 0 {
		return 0
	}
	return len(e.Channels[0])
}

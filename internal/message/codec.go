// SPDX-License-Identifier: MIT
package message

import (
	"encoding/json"
	"fmt"
)

type commandWire struct {
	Type string `json:"type"`
	// message carries the tag in legacy clients.
	Message     string `json:"message,omitempty"`
	IsRecording *bool  `json:"isRecording,omitempty"`
	Intent      string `json:"intent,omitempty"`
}

// MarshalJSON encodes a command in its tagged wire form.
func (c Command) MarshalJSON() ([]byte, error) {
	isRecording := c.IsRecording
	return json.Marshal(commandWire{
		Type:        c.Type.Tag(),
		IsRecording: &isRecording,
		Intent:      c.Intent.String(),
	})
}

// DecodeCommand parses a host command. Messages with an unknown tag or an
// unknown intent are ignored: ok is false and err is nil. Malformed JSON
// returns an error.
func DecodeCommand(data []byte) (cmd Command, ok bool, err error) {
	var w commandWire
	if err := json.Unmarshal(data, &w); err != nil {
		return Command{}, false, fmt.Errorf("failed to decode command: %w", err)
	}

	tag := w.Type
	if tag == "" {
		tag = w.Message
	}

	switch tag {
	case "set_recording_state", "UPDATE_RECORDING_STATE":
		intent := ParseIntent(w.Intent)
		if w.Intent != "" && intent == IntentNone {
			return Command{}, false, nil
		}
		cmd = Command{Type: SetRecordingState, Intent: intent}
		if w.IsRecording != nil {
			cmd.IsRecording = *w.IsRecording
		} else {
			cmd.IsRecording = cmd.Intent == IntentRecord
		}
		return cmd, true, nil
	default:
		return Command{}, false, nil
	}
}

type progressWire struct {
	Type string `json:"type"`
	Progress
}

type snapshotWire struct {
	Type     string      `json:"type"`
	Frames   int         `json:"frames"`
	Channels [][]float32 `json:"channels"`
}

type bareWire struct {
	Type string `json:"type"`
}

// MarshalJSON encodes an event in its tagged wire form.
func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case ProgressUpdate:
		return json.Marshal(progressWire{Type: e.Type.Tag(), Progress: e.Progress})
	case BufferSnapshot:
		channels := e.Channels
		if channels == nil {
			channels = [][]float32{}
		}
		return json.Marshal(snapshotWire{Type: e.Type.Tag(), Frames: e.Frames(), Channels: channels})
	case MaxLengthReached:
		return json.Marshal(bareWire{Type: e.Type.Tag()})
	default:
		return nil, fmt.Errorf("cannot encode event of unknown type %d", e.Type)
	}
}

// DecodeEvent parses a processor event. Unknown tags are ignored like in
// DecodeCommand.
func DecodeEvent(data []byte) (ev Event, ok bool, err error) {
	var head bareWire
	if err := json.Unmarshal(data, &head); err != nil {
		return Event{}, false, fmt.Errorf("failed to decode event: %w", err)
	}

	switch head.Type {
	case ProgressUpdate.Tag():
		var w progressWire
		if err := json.Unmarshal(data, &w); err != nil {
			return Event{}, false, fmt.Errorf("failed to decode progress update: %w", err)
		}
		return Event{Type: ProgressUpdate, Progress: w.Progress}, true, nil
	case BufferSnapshot.Tag():
		var w snapshotWire
		if err := json.Unmarshal(data, &w); err != nil {
			return Event{}, false, fmt.Errorf("failed to decode buffer snapshot: %w", err)
		}
		return NewSnapshot(w.Channels), true, nil
	case MaxLengthReached.Tag():
		return NewMaxLengthReached(), true, nil
	default:
		return Event{}, false, nil
	}
}

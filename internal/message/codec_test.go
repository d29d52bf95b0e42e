// SPDX-License-Identifier: MIT
package message

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDecodeCommand(t *testing.T) {
	tests := []struct {
		desc       string
		input      string
		wantOK     bool
		wantIntent Intent
		wantRec    bool
	}{
		{"Record", `{"type":"set_recording_state","isRecording":true,"intent":"record"}`, true, IntentRecord, true},
		{"Pause", `{"type":"set_recording_state","isRecording":false,"intent":"pause"}`, true, IntentPause, false},
		{"Stop", `{"type":"set_recording_state","isRecording":false,"intent":"stop"}`, true, IntentStop, false},
		{"Intent without flag", `{"type":"set_recording_state","intent":"record"}`, true, IntentRecord, true},
		{"Legacy start", `{"message":"UPDATE_RECORDING_STATE","isRecording":true}`, true, IntentRecord, true},
		{"Legacy pause", `{"message":"UPDATE_RECORDING_STATE","isRecording":false}`, true, IntentPause, false},
		{"Unknown tag", `{"type":"reticulate_splines"}`, false, IntentNone, false},
		{"No tag", `{"isRecording":true}`, false, IntentNone, false},
		{"Unknown intent", `{"type":"set_recording_state","intent":"bogus"}`, false, IntentNone, false},
		{"Unknown intent with flag", `{"type":"set_recording_state","isRecording":true,"intent":"rewind"}`, false, IntentNone, false},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			cmd, ok, err := DecodeCommand([]byte(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if cmd.Type != SetRecordingState {
				t.Errorf("Type = %d, want SetRecordingState", cmd.Type)
			}
			if got := cmd.EffectiveIntent(); got != tt.wantIntent {
				t.Errorf("EffectiveIntent() = %s, want %s", got, tt.wantIntent)
			}
			if cmd.IsRecording != tt.wantRec {
				t.Errorf("IsRecording = %v, want %v", cmd.IsRecording, tt.wantRec)
			}
		})
	}
}

func TestDecodeCommandMalformed(t *testing.T) {
	_, ok, err := DecodeCommand([]byte(`{"type":`))
	if err == nil || ok {
		t.Fatalf("expected decode error, got ok=%v err=%v", ok, err)
	}
	if !strings.Contains(err.Error(), "failed to decode command") {
		t.Errorf("error %q missing context", err)
	}
}

func TestCommandRoundTripThroughWire(t *testing.T) {
	for _, cmd := range []Command{Record(), Pause(), Stop()} {
		data, err := json.Marshal(cmd)
		if err != nil {
			t.Fatalf("Marshal(%v) error: %v", cmd, err)
		}
		got, ok, err := DecodeCommand(data)
		if err != nil || !ok {
			t.Fatalf("DecodeCommand(%s) = ok %v, err %v", data, ok, err)
		}
		if got != cmd {
			t.Errorf("decoded %+v, want %+v", got, cmd)
		}
	}
}

func TestEventMarshalJSON(t *testing.T) {
	tests := []struct {
		desc  string
		event Event
		want  string
	}{
		{
			"Progress",
			NewProgress(384, 0.02, 0.5),
			`{"type":"progress_update","recordedFrames":384,"elapsedSeconds":0.02,"rms":0.5}`,
		},
		{
			"Snapshot",
			NewSnapshot([][]float32{{0.5, -0.5}}),
			`{"type":"buffer_snapshot","frames":2,"channels":[[0.5,-0.5]]}`,
		},
		{
			"Empty snapshot",
			NewSnapshot(nil),
			`{"type":"buffer_snapshot","frames":0,"channels":[]}`,
		},
		{
			"Max length",
			NewMaxLengthReached(),
			`{"type":"max_length_reached"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal error: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}

	if _, err := json.Marshal(Event{}); err == nil {
		t.Error("expected error encoding unknown event type")
	}
}

func TestDecodeEvent(t *testing.T) {
	ev, ok, err := DecodeEvent([]byte(`{"type":"progress_update","recordedFrames":256,"elapsedSeconds":0.02,"rms":0.25}`))
	if err != nil || !ok {
		t.Fatalf("DecodeEvent progress: ok=%v err=%v", ok, err)
	}
	if ev.Type != ProgressUpdate || ev.Progress.RecordedFrames != 256 || ev.Progress.RMS != 0.25 {
		t.Errorf("decoded %+v", ev)
	}

	ev, ok, err = DecodeEvent([]byte(`{"type":"buffer_snapshot","channels":[[1,2,3]]}`))
	if err != nil || !ok || ev.Frames() != 3 {
		t.Fatalf("DecodeEvent snapshot: ok=%v err=%v frames=%d", ok, err, ev.Frames())
	}

	ev, ok, err = DecodeEvent([]byte(`{"type":"max_length_reached"}`))
	if err != nil || !ok || ev.Type != MaxLengthReached {
		t.Fatalf("DecodeEvent max length: ok=%v err=%v", ok, err)
	}

	if _, ok, err := DecodeEvent([]byte(`{"type":"something_else"}`)); ok || err != nil {
		t.Errorf("unknown tag: ok=%v err=%v, want ignored", ok, err)
	}
}

func TestIntentNames(t *testing.T) {
	for _, i := range []Intent{IntentRecord, IntentPause, IntentStop} {
		if ParseIntent(i.String()) != i {
			t.Errorf("ParseIntent(%q) did not round trip", i.String())
		}
	}
	if ParseIntent("rewind") != IntentNone {
		t.Error("unknown intent should parse to IntentNone")
	}
}

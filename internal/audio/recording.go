// SPDX-License-Identifier: MIT
package audio

import (
	"errors"
	"fmt"
	"os"

	"grec/internal/analysis"
	"grec/internal/export"
	applog "grec/internal/log"
	"grec/internal/message"
	"grec/internal/processor"
)

// drainEvents handles every pending processor event.
func (e *Engine) drainEvents() {
	e.consumerMu.Lock()
	defer e.consumerMu.Unlock()
	e.drainLocked()
}

// drainLocked handles pending events, then refills the processor's spare
// buffers so the next pause or stop does not wait at the boundary.
func (e *Engine) drainLocked() {
	proc := e.proc.Load()
	for {
		ev, ok := proc.PollEvent()
		if !ok {
			break
		}
		e.handleEvent(ev)
	}
	proc.Replenish()
}

// handleEvent runs on the consumer side, never on the callback.
func (e *Engine) handleEvent(ev message.Event) {
	switch ev.Type {
	case message.ProgressUpdate:
		e.notify(ev)

	case message.MaxLengthReached:
		e.maxLength = true
		e.mu.Lock()
		e.state = processor.Stopped
		e.mu.Unlock()
		e.notify(ev)
		e.notify(message.StateChanged{Type: message.StateChangedTag, State: processor.Stopped.String()})

	case message.BufferSnapshot:
		final := e.nextSnapshotFinal()
		if _, err := e.saveTake(ev.Channels, final); err != nil && !errors.Is(err, export.ErrEmptyRecording) {
			applog.Errorf("Engine: %v", err)
		}
		if final && e.maxLength {
			e.maxLength = false
			e.finishOnce.Do(func() { close(e.finished) })
		}
	}
}

// SavedTakes returns the number of takes written so far.
func (e *Engine) SavedTakes() int {
	e.consumerMu.Lock()
	defer e.consumerMu.Unlock()
	return e.saved
}

// nextSnapshotFinal matches a snapshot to its cause: a pending max length
// first, then the oldest pause or stop command.
func (e *Engine) nextSnapshotFinal() bool {
	if e.maxLength {
		return true
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.snapshotFinal) == 0 {
		return false
	}
	final := e.snapshotFinal[0]
	e.snapshotFinal = e.snapshotFinal[1:]
	return final
}

// saveTake writes a snapshot to the output directory and announces it.
// Empty snapshots are skipped with export.ErrEmptyRecording.
func (e *Engine) saveTake(channels [][]float32, final bool) (message.RecordingSaved, error) {
	frames := export.Frames(channels)
	if frames == 0 {
		applog.Infof("Engine: Empty take, nothing saved")
		return message.RecordingSaved{}, export.ErrEmptyRecording
	}

	dir := e.config.Recording.OutputDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return message.RecordingSaved{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	id := export.NewTakeID()
	path := export.TakePath(dir, id)
	format := export.Format{
		SampleRate: int(e.config.Audio.SampleRate),
		BitDepth:   e.config.Recording.BitDepth,
	}
	if err := export.WriteFile(path, channels, format); err != nil {
		return message.RecordingSaved{}, fmt.Errorf("failed to save take: %w", err)
	}

	notice := message.RecordingSaved{
		Type:            message.RecordingSavedTag,
		ID:              id,
		Path:            path,
		Frames:          frames,
		DurationSeconds: float64(frames) / e.config.Audio.SampleRate,
		Final:           final,
		Summary:         analysis.Summarize(channels, format.SampleRate, e.window),
	}
	e.saved++

	applog.Infof("Engine: Saved %s (%.2fs, peak %.1f dBFS)", path, notice.DurationSeconds, notice.Summary.PeakDBFS)
	e.notify(notice)

	return notice, nil
}

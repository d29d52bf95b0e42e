// SPDX-License-Identifier: MIT
/*
Package audio hosts the frame processor on a live PortAudio input stream:
- The stream callback hands every quantum to the processor and nothing else
- An event pump drains processor events off the callback thread
- Snapshots are exported as WAV takes and announced to the monitors
- Record/Pause/Stop are the only way the rest of the program steers capture

Thread Safety:
- The callback only touches the processor (lock-free) and an atomic flag
- Host-side command producers are serialized by a mutex
- Event consumers are serialized by a second mutex, taken before the first
*/
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gordonklaus/portaudio"

	"grec/internal/analysis"
	"grec/internal/config"
	applog "grec/internal/log"
	"grec/internal/message"
	"grec/internal/processor"
	"grec/internal/transport"
)

// DefaultPollInterval is how often the event pump drains the processor,
// about four times the progress rate.
const DefaultPollInterval = 4 * time.Millisecond

var (
	ErrCommandRejected = errors.New("command rejected: queue full")
	ErrTakeFinished    = errors.New("take finished: maximum length reached")
)

type Engine struct {
	// Core configuration.
	config  *config.Config
	opts    processor.Options
	window  analysis.WindowFunc
	monitor transport.Transport

	// The processor is swapped only while the stream is stopped. The
	// callback loads it atomically.
	proc atomic.Pointer[processor.Processor]

	// Audio input handling.
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream
	streaming    bool

	// mu serializes command producers, stream control and processor swaps.
	mu    sync.Mutex
	state processor.State // Host view, updated on accepted commands

	// consumerMu serializes event draining. Lock order: consumerMu, then mu.
	consumerMu    sync.Mutex
	snapshotFinal []bool // Final flags of snapshots requested by commands, FIFO
	maxLength     bool   // MaxLengthReached seen, next snapshot is final
	saved         int

	// Deactivation handoff from the callback to the pump.
	deactivated atomic.Bool
	deactivate  chan struct{}

	finished     chan struct{}
	finishOnce   sync.Once
	pollInterval time.Duration
}

// NewEngine resolves the configured input device and builds an engine
// around a fresh processor. monitor receives every event and host notice;
// it may be nil.
func NewEngine(cfg *config.Config, monitor transport.Transport) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	if inputDevice.MaxInputChannels < cfg.Audio.InputChannels {
		return nil, fmt.Errorf("device %s supports %d input channels, %d requested",
			inputDevice.Name, inputDevice.MaxInputChannels, cfg.Audio.InputChannels)
	}

	e, err := newEngine(cfg, monitor)
	if err != nil {
		return nil, err
	}

	e.inputDevice = inputDevice
	if cfg.Audio.LowLatency {
		e.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		e.inputLatency = inputDevice.DefaultHighInputLatency
	}

	applog.Infof("Engine: Input %q, %.0f Hz, %d ch, %d frames/buffer, max %s",
		inputDevice.Name, cfg.Audio.SampleRate, cfg.Audio.InputChannels,
		cfg.Audio.FramesPerBuffer, cfg.Timeout())

	return e, nil
}

// newEngine builds everything except the device binding.
func newEngine(cfg *config.Config, monitor transport.Transport) (*Engine, error) {
	window, err := analysis.ParseWindowFunc(cfg.Audio.FFTWindow)
	if err != nil {
		applog.Warnf("Engine: %v, using Hann", err)
	}
	if monitor == nil {
		monitor = transport.Fanout(nil)
	}

	e := &Engine{
		config:  cfg,
		window:  window,
		monitor: monitor,
		opts: processor.Options{
			SampleRate:     int(cfg.Audio.SampleRate),
			ChannelCount:   cfg.Audio.InputChannels,
			MaxFrames:      cfg.MaxFrames(),
			ExactSnapshots: cfg.Recording.ExactSnapshots,
			EventQueueSize: cfg.Recording.EventQueueSize,
		},
		state:        processor.Idle,
		deactivate:   make(chan struct{}, 1),
		finished:     make(chan struct{}),
		pollInterval: DefaultPollInterval,
	}
	e.proc.Store(processor.New(e.opts))

	return e, nil
}

// StartInputStream opens and starts the non-interleaved float32 input
// stream. The first callback marks the start of the hot path.
func (e *Engine) StartInputStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.startStreamLocked()
}

func (e *Engine) startStreamLocked() error {
	if e.streaming {
		return nil
	}
	if e.inputDevice == nil {
		return fmt.Errorf("engine has no input device")
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	e.inputStream = stream
	e.streaming = true
	return nil
}

// StopInputStream stops and closes the input stream. No callback is in
// flight once it returns.
func (e *Engine) StopInputStream() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopStreamLocked()
}

func (e *Engine) stopStreamLocked() error {
	if e.inputStream == nil {
		e.streaming = false
		return nil
	}

	stream := e.inputStream
	e.inputStream = nil
	e.streaming = false

	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	return nil
}

// processInputStream is the PortAudio callback.
// Performance Critical:
// - Uses pre-allocated buffers only
// - No dynamic allocations, locks or I/O
// - Deactivation is signalled without blocking
func (e *Engine) processInputStream(in [][]float32) {
	if e.proc.Load().Process(in) {
		return
	}
	if e.deactivated.CompareAndSwap(false, true) {
		select {
		case e.deactivate <- struct{}{}:
		default:
		}
	}
}

// Run drains processor events until ctx is cancelled. When the processor
// deactivates it stops the stream from this goroutine, never from the
// callback.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.deactivate:
			applog.Infof("Engine: Maximum recording length reached")
			if err := e.StopInputStream(); err != nil {
				applog.Errorf("Engine: %v", err)
			}
			e.drainEvents()
		case <-ticker.C:
			e.drainEvents()
		}
	}
}

// Finished is closed after the first take that hit the maximum length has
// been handled.
func (e *Engine) Finished() <-chan struct{} {
	return e.finished
}

// Record starts or resumes recording. After the maximum length was reached
// it arms a fresh processor and restarts the stream first.
func (e *Engine) Record() error {
	if !e.proc.Load().Active() {
		if err := e.rearm(); err != nil {
			return err
		}
	}
	return e.send(message.Record(), processor.Recording)
}

// Pause pauses recording and exports the take so far.
func (e *Engine) Pause() error {
	return e.send(message.Pause(), processor.Paused)
}

// Stop ends the take, exports it and resets the buffer.
func (e *Engine) Stop() error {
	return e.send(message.Stop(), processor.Stopped)
}

// State returns the host view of the recording state.
func (e *Engine) State() processor.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Processor returns the current processor.
func (e *Engine) Processor() *processor.Processor {
	return e.proc.Load()
}

// HandleCommand applies a command received from a remote client.
func (e *Engine) HandleCommand(cmd message.Command) {
	if cmd.Type != message.SetRecordingState {
		return
	}

	var err error
	switch cmd.EffectiveIntent() {
	case message.IntentRecord:
		err = e.Record()
	case message.IntentPause:
		err = e.Pause()
	case message.IntentStop:
		err = e.Stop()
	default:
		return
	}
	if err != nil {
		applog.Warnf("Engine: Remote %s command failed: %v", cmd.EffectiveIntent(), err)
	}
}

// send queues cmd and publishes the resulting host state. When no stream is
// running there is no quantum boundary to wait for, so pending commands are
// applied directly.
func (e *Engine) send(cmd message.Command, next processor.State) error {
	e.mu.Lock()

	proc := e.proc.Load()
	if !proc.Active() {
		e.mu.Unlock()
		return ErrTakeFinished
	}
	if !proc.Send(cmd) {
		e.mu.Unlock()
		return ErrCommandRejected
	}

	if intent := cmd.EffectiveIntent(); intent == message.IntentPause || intent == message.IntentStop {
		e.snapshotFinal = append(e.snapshotFinal, intent == message.IntentStop)
	}
	if !e.streaming {
		proc.Replenish()
		proc.ApplyPending()
	}
	e.state = next
	e.mu.Unlock()

	e.notify(message.StateChanged{Type: message.StateChangedTag, State: next.String()})
	return nil
}

// rearm replaces a deactivated processor with a fresh one.
func (e *Engine) rearm() error {
	e.consumerMu.Lock()
	defer e.consumerMu.Unlock()

	// Flush whatever the old processor still holds.
	e.drainLocked()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.proc.Load().Active() {
		return nil
	}
	hadStream := e.inputDevice != nil
	if err := e.stopStreamLocked(); err != nil {
		return err
	}

	e.proc.Store(processor.New(e.opts))
	e.deactivated.Store(false)
	e.snapshotFinal = e.snapshotFinal[:0]
	e.state = processor.Idle
	applog.Infof("Engine: Armed a new take")

	if hadStream {
		return e.startStreamLocked()
	}
	return nil
}

// Close stops the stream, finalizes an unfinished take and drains the
// remaining events. The event pump must have returned.
func (e *Engine) Close() error {
	e.mu.Lock()
	err := e.stopStreamLocked()
	state := e.state
	e.mu.Unlock()

	if state == processor.Recording || state == processor.Paused {
		if stopErr := e.Stop(); stopErr != nil && !errors.Is(stopErr, ErrTakeFinished) {
			err = errors.Join(err, stopErr)
		}
	}
	e.drainEvents()

	if dropped := e.proc.Load().Dropped(); dropped > 0 {
		applog.Warnf("Engine: %d events were dropped", dropped)
	}
	return err
}

func (e *Engine) notify(data any) {
	if err := e.monitor.Send(data); err != nil {
		applog.Debugf("Engine: monitor: %v", err)
	}
}

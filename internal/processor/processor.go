// SPDX-License-Identifier: MIT
/*
Package processor implements the real-time frame processor that sits inside
the audio callback:
- Copies every quantum of live samples into a bounded per-channel buffer
- Tracks elapsed recording time and an RMS loudness window (~60 Hz updates)
- Enforces the maximum recording length
- Hands stable snapshots of the recording to the host

Thread Safety:
- Process and ApplyPending run on the processing goroutine only
- Send is called by a single host goroutine, PollEvent by a single host goroutine
- Commands, events and spare buffers travel over lock-free SPSC rings
- Commands are applied at quantum boundaries, never mid-copy

Memory:
- Pause copies into a spare buffer and stop swaps a spare in for the live
  one; spares are allocated by the host through Replenish, never by Process
- A pause or stop that finds no spare waits at the boundary until one arrives
*/
package processor

import (
	"math"
	"sync"
	"sync/atomic"

	"grec/internal/message"
	"grec/internal/queue"
)

// terminalReserve is the number of event slots progress updates leave free
// so MaxLengthReached and its snapshot always fit after a host drain.
const terminalReserve = 2

type Processor struct {
	// Immutable configuration.
	opts            Options
	publishInterval float64 // Frames between progress updates (SampleRate / 60)

	// Published so the host can observe it without touching the buffer.
	state  atomic.Uint32
	active atomic.Bool

	// Recording buffer and counters, owned by the processing goroutine.
	buffer             [][]float32
	recordedFrames     int
	framesSincePublish int
	sumOfSquares       float64
	lastQuantum        int // Size of the most recent recorded quantum

	// Host <-> processor channels.
	commands *queue.Ring[message.Command]
	events   *queue.Ring[message.Event]
	dropped  atomic.Uint64

	// Full-capacity buffers pushed by the host, popped at quantum boundaries.
	spares  *queue.Ring[[][]float32]
	spareMu sync.Mutex // Serializes host-side producers; never taken by Process

	// A pause or stop waiting for a spare buffer.
	deferred    message.Command
	hasDeferred bool
}

// New creates an idle processor. Missing options fall back to the package
// defaults; there is no error path.
func New(opts Options) *Processor {
	opts = opts.withDefaults()

	p := &Processor{
		opts:            opts,
		publishInterval: float64(opts.SampleRate) / PublishRate,
		buffer:          allocBuffer(opts.ChannelCount, opts.MaxFrames),
		commands:        queue.NewRing[message.Command](opts.CommandQueueSize),
		events:          queue.NewRing[message.Event](opts.EventQueueSize),
		spares:          queue.NewRing[[][]float32](opts.SpareBuffers),
	}
	p.Replenish()
	p.setState(Idle)
	p.active.Store(true)

	return p
}

// allocBuffer allocates one contiguous block and carves it into capped
// per-channel slices.
func allocBuffer(channels, frames int) [][]float32 {
	backing := make([]float32, channels*frames)
	buffer := make([][]float32, channels)
	for c := range buffer {
		lo, hi := c*frames, (c+1)*frames
		buffer[c] = backing[lo:hi:hi]
	}
	return buffer
}

// Replenish tops up the spare buffers the processor consumes on pause and
// stop. It allocates, so it must only be called off the processing
// goroutine; the host calls it after draining events. It returns the number
// of buffers added.
func (p *Processor) Replenish() int {
	p.spareMu.Lock()
	defer p.spareMu.Unlock()

	if !p.active.Load() {
		return 0 // Inert processors never take another snapshot.
	}
	added := 0
	for p.spares.Len() < p.opts.SpareBuffers {
		if !p.spares.TryPush(allocBuffer(p.opts.ChannelCount, p.opts.MaxFrames)) {
			break
		}
		added++
	}
	return added
}

// Spares returns the number of spare buffers ready for use.
func (p *Processor) Spares() int {
	return p.spares.Len()
}

// Send queues a command for the next quantum boundary. It returns false if
// the command queue is full or the processor has deactivated itself.
func (p *Processor) Send(cmd message.Command) bool {
	if !p.active.Load() {
		return false
	}
	return p.commands.TryPush(cmd)
}

// PollEvent returns the next pending event, if any.
func (p *Processor) PollEvent() (message.Event, bool) {
	return p.events.TryPop()
}

// Process is invoked once per quantum with one slice of Q samples per
// channel. It returns false once the processor has deactivated after
// reaching its maximum length; the host should stop delivering quanta.
//
// Performance Critical (Hot Path):
//   - No allocations, including when commands are applied
//   - No locks, no I/O, work proportional to channels * Q
//   - Queued commands are applied first, at the quantum boundary
func (p *Processor) Process(in [][]float32) bool {
	if !p.active.Load() {
		return false
	}

	p.ApplyPending()

	if p.State() != Recording || len(in) == 0 {
		return true
	}

	q := len(in[0])
	p.lastQuantum = q

	// Writes past capacity are clamped; the overflow branch below handles them.
	n := min(q, p.opts.MaxFrames-p.recordedFrames)
	for c := 0; c < p.opts.ChannelCount; c++ {
		dst := p.buffer[c][p.recordedFrames : p.recordedFrames+n]
		if c >= len(in) {
			clear(dst) // Missing channel is silence.
			continue
		}
		src := in[c]
		if len(src) > n {
			src = src[:n]
		}
		for s, v := range src {
			dst[s] = v
			f := float64(v)
			p.sumOfSquares += f * f
		}
		clear(dst[len(src):])
	}

	if p.recordedFrames+q < p.opts.MaxFrames {
		p.recordedFrames += q
		p.framesSincePublish += q

		if float64(p.framesSincePublish) >= p.publishInterval {
			p.publishProgress()
		}
		return true
	}

	// Maximum length reached: report, hand over the buffer and go inert.
	if p.opts.ExactSnapshots {
		p.recordedFrames += n
	}
	p.setState(Stopped)
	p.active.Store(false)
	p.emit(message.NewMaxLengthReached())
	p.emit(message.NewSnapshot(p.detachBuffer()))
	p.buffer = nil

	return false
}

// ApplyPending applies all queued commands. Process calls it at every
// quantum boundary; the host may call it directly only while no quantum is
// in flight (e.g. after the input stream has been stopped).
//
// A pause or stop that finds no spare buffer is held back together with
// every command queued after it, so commands still apply in order.
func (p *Processor) ApplyPending() {
	if p.hasDeferred {
		if !p.apply(p.deferred) {
			return
		}
		p.deferred, p.hasDeferred = message.Command{}, false
	}
	for {
		cmd, ok := p.commands.TryPop()
		if !ok {
			return
		}
		if !p.apply(cmd) {
			p.deferred, p.hasDeferred = cmd, true
			return
		}
	}
}

// apply performs a single control transition. It returns false, changing
// nothing, when the transition needs a spare buffer and none is ready.
func (p *Processor) apply(cmd message.Command) bool {
	if !p.active.Load() {
		return true
	}

	switch cmd.Type {
	case message.SetRecordingState:
	default:
		return true // Unknown commands are ignored.
	}

	switch cmd.EffectiveIntent() {
	case message.IntentRecord:
		// Resume appends after recordedFrames; nothing is reset.
		p.setState(Recording)

	case message.IntentPause:
		spare, ok := p.spares.TryPop()
		if !ok {
			return false
		}
		p.setState(Paused)
		p.emit(message.NewSnapshot(p.copySnapshot(spare)))

	case message.IntentStop:
		spare, ok := p.spares.TryPop()
		if !ok {
			return false
		}
		p.setState(Stopped)
		p.emit(message.NewSnapshot(p.detachBuffer()))
		p.reset(spare)
	}
	return true
}

// publishProgress emits a ProgressUpdate for the current window and starts
// a new one.
func (p *Processor) publishProgress() {
	// Averaged over every sample of every channel, so a constant amplitude
	// reads the same in mono and multi-channel recordings.
	samples := float64(p.framesSincePublish * p.opts.ChannelCount)
	rms := math.Sqrt(p.sumOfSquares / samples)
	elapsed := math.Round(float64(p.recordedFrames)/float64(p.opts.SampleRate)*100) / 100

	if p.events.Free() > terminalReserve {
		p.events.TryPush(message.NewProgress(p.recordedFrames, elapsed, rms))
	} else {
		p.dropped.Add(1)
	}

	p.framesSincePublish = 0
	p.sumOfSquares = 0
}

// emit queues an event, counting it as dropped if the host is not draining.
func (p *Processor) emit(ev message.Event) {
	if !p.events.TryPush(ev) {
		p.dropped.Add(1)
	}
}

// snapshotLength is the per-channel length of the next snapshot: the
// counted frames plus the trailing quantum, clamped to capacity.
func (p *Processor) snapshotLength() int {
	n := p.recordedFrames
	if !p.opts.ExactSnapshots {
		n += p.lastQuantum
	}
	return min(n, p.opts.MaxFrames)
}

// copySnapshot copies the recording into spare and returns it trimmed to
// the snapshot length. Used when the buffer stays live (pause).
func (p *Processor) copySnapshot(spare [][]float32) [][]float32 {
	n := p.snapshotLength()
	for c := range spare {
		copy(spare[c], p.buffer[c][:n])
		spare[c] = spare[c][:n:n]
	}
	return spare
}

// detachBuffer trims the live buffer to the snapshot length and returns it.
// The processor must not write it afterwards, so it is only used on stop
// (which swaps in a spare) and on overflow (which deactivates).
func (p *Processor) detachBuffer() [][]float32 {
	n := p.snapshotLength()
	for c := range p.buffer {
		p.buffer[c] = p.buffer[c][:n:n]
	}
	return p.buffer
}

// reset returns the processor to its initial ready state, recording into
// spare from now on.
func (p *Processor) reset(spare [][]float32) {
	p.buffer = spare
	p.recordedFrames = 0
	p.framesSincePublish = 0
	p.sumOfSquares = 0
	p.lastQuantum = 0
}

func (p *Processor) setState(s State) {
	p.state.Store(uint32(s))
}

// State returns the current recording state. Safe from any goroutine.
func (p *Processor) State() State {
	return State(p.state.Load())
}

// Active reports whether the processor still wants quanta. Safe from any goroutine.
func (p *Processor) Active() bool {
	return p.active.Load()
}

// Dropped returns the number of events discarded because the event queue
// was full. Safe from any goroutine.
func (p *Processor) Dropped() uint64 {
	return p.dropped.Load()
}

// RecordedFrames returns the number of counted frames per channel. Only
// valid on the processing goroutine or while no quantum is in flight.
func (p *Processor) RecordedFrames() int {
	return p.recordedFrames
}

// PublishInterval returns the number of frames between progress updates.
func (p *Processor) PublishInterval() float64 {
	return p.publishInterval
}

// Options returns the effective options after defaults were applied.
func (p *Processor) Options() Options {
	return p.opts
}

// SPDX-License-Identifier: MIT
package processor

import "time"

// Defaults applied to any Options field that is zero or negative.
const (
	DefaultSampleRate       = 16000            // Hz, speech-friendly capture rate
	DefaultChannelCount     = 1                // Mono
	DefaultTimeout          = 10 * time.Second // Maximum recording length
	DefaultCommandQueueSize = 16
	DefaultEventQueueSize   = 256
	DefaultSpareBuffers     = 2

	// PublishRate is the target number of progress updates per second.
	PublishRate = 60
)

// Options configures a Processor. It is copied by New and immutable afterwards.
type Options struct {
	SampleRate   int // Frames per second
	ChannelCount int // Fixed for the lifetime of the processor
	MaxFrames    int // Capacity per channel, usually SampleRate * timeout

	// ExactSnapshots trims snapshots to exactly the counted frames instead of
	// including one trailing quantum.
	ExactSnapshots bool

	CommandQueueSize int
	EventQueueSize   int

	// SpareBuffers is how many full-capacity buffers are kept ready for
	// pause copies and stop swaps, so neither allocates on the callback.
	SpareBuffers int
}

// MaxFramesFor converts a timeout into a frame capacity at sampleRate.
func MaxFramesFor(sampleRate int, timeout time.Duration) int {
	return int(float64(sampleRate) * timeout.Seconds())
}

// withDefaults fills every missing field instead of failing.
func (o Options) withDefaults() Options {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.ChannelCount <= 0 {
		o.ChannelCount = DefaultChannelCount
	}
	if o.MaxFrames <= 0 {
		o.MaxFrames = MaxFramesFor(o.SampleRate, DefaultTimeout)
	}
	if o.CommandQueueSize <= 0 {
		o.CommandQueueSize = DefaultCommandQueueSize
	}
	if o.EventQueueSize <= 0 {
		o.EventQueueSize = DefaultEventQueueSize
	}
	if o.SpareBuffers <= 0 {
		o.SpareBuffers = DefaultSpareBuffers
	}
	return o
}

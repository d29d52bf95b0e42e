// SPDX-License-Identifier: MIT
package config

import "time"

// Timeout returns the maximum recording length.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Audio.TimeoutSeconds * float64(time.Second))
}

// MaxFrames returns the per-channel buffer capacity: sample rate times
// timeout.
func (c *Config) MaxFrames() int {
	return int(c.Audio.SampleRate * c.Audio.TimeoutSeconds)
}

// EffectiveLogLevel returns the configured log level, forced to debug when
// debug mode is on.
func (c *Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Log.Level
}

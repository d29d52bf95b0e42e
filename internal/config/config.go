// SPDX-License-Identifier: MIT
package config

import "time"

// Core configuration constants that define the boundaries and defaults
// for the recorder.
const (
	// Audio defaults, tuned for speech capture.
	DefaultDeviceID        = MinDeviceID // System default input device
	DefaultSampleRate      = 16000       // Hz
	DefaultChannels        = 1           // Mono
	DefaultFramesPerBuffer = 128         // One render quantum
	DefaultTimeoutSeconds  = 10.0        // Maximum recording length
	DefaultLowLatency      = false
	DefaultFFTWindow       = "Hann"

	// Recording defaults.
	DefaultOutputDir      = "./recordings"
	DefaultBitDepth       = 16
	DefaultEventQueueSize = 256

	// Transport defaults.
	DefaultWebSocketEnabled = true
	DefaultUDPEnabled       = false
	DefaultWebSocketAddr    = ":8080"
	DefaultWebSocketPath    = "/ws"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultUDPSendInterval  = 33 * time.Millisecond // ~30Hz

	// Log defaults.
	DefaultLogLevel   = "info"
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3

	// Hardware and processing limits.
	MinDeviceID     = -1     // -1 represents system default device
	MinSampleRate   = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000 // Maximum supported sample rate (Hz)
	MaxChannels     = 32
	MaxBufferFrames = 8192 // Maximum frames per buffer (power of 2)
	MaxTimeout      = time.Hour
)

// Default returns a Config populated with built-in defaults. It is the base
// that files, environment variables and flags are layered onto.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultChannels,
			TimeoutSeconds:  DefaultTimeoutSeconds,
			FFTWindow:       DefaultFFTWindow,
		},
		Recording: RecordingConfig{
			OutputDir:      DefaultOutputDir,
			BitDepth:       DefaultBitDepth,
			EventQueueSize: DefaultEventQueueSize,
		},
		Transport: TransportConfig{
			WebSocketEnabled: DefaultWebSocketEnabled,
			WebSocketAddr:    DefaultWebSocketAddr,
			WebSocketPath:    DefaultWebSocketPath,
			UDPEnabled:       DefaultUDPEnabled,
			UDPTargetAddress: DefaultUDPTargetAddress,
			UDPSendInterval:  DefaultUDPSendInterval,
		},
		Log: LogConfig{
			Level:      DefaultLogLevel,
			MaxSizeMB:  DefaultMaxSizeMB,
			MaxBackups: DefaultMaxBackups,
		},
	}
}

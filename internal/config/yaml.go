// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	applog "grec/internal/log"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`             // Enable debug mode (forces debug logging).
	Command   string          `yaml:"command,omitempty"` // A one-off command to execute instead of running the engine (e.g., "list").
	Headless  bool            `yaml:"headless"`          // Record immediately without the terminal UI.
	Audio     AudioConfig     `yaml:"audio"`             // Capture settings.
	Recording RecordingConfig `yaml:"recording"`         // Recording and export settings.
	Transport TransportConfig `yaml:"transport"`         // Monitor transports (WebSocket, UDP).
	Log       LogConfig       `yaml:"log"`               // Logging settings.
}

// AudioConfig holds settings related to audio capture.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index for audio input (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz (e.g., 16000, 48000).
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per callback (the quantum).
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency settings from PortAudio device.
	InputChannels   int     `yaml:"input_channels"`    // Number of input channels to capture.
	TimeoutSeconds  float64 `yaml:"timeout_seconds"`   // Maximum recording length in seconds.
	FFTWindow       string  `yaml:"fft_window"`        // Window function for recording summaries (e.g., "Hann").
}

// RecordingConfig holds settings related to recording and WAV export.
type RecordingConfig struct {
	OutputDir      string `yaml:"output_dir"`       // Directory to save takes.
	BitDepth       int    `yaml:"bit_depth"`        // Bit depth of exported WAV files (16, 24, 32).
	ExactSnapshots bool   `yaml:"exact_snapshots"`  // Trim snapshots to exactly the recorded frames.
	EventQueueSize int    `yaml:"event_queue_size"` // Processor to host event queue capacity.
}

// TransportConfig holds settings related to the monitor transports.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"`  // Serve events and accept commands over WebSocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`     // Listen address (e.g., ":8080").
	WebSocketPath    string        `yaml:"websocket_path"`     // Upgrade path (e.g., "/ws").
	UDPEnabled       bool          `yaml:"udp_enabled"`        // Enable sending progress packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address and port for UDP packets (e.g., "127.0.0.1:9090").
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"`  // Interval between UDP packets.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`       // Logging level ("debug", "info", "warn", "error").
	File       string `yaml:"file"`        // Optional rotating log file.
	MaxSizeMB  int    `yaml:"max_size_mb"` // Rotate after this many megabytes.
	MaxBackups int    `yaml:"max_backups"` // Rotated files to keep.
}

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the
// process environment. Missing files are skipped and variables that are
// already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}
	return nil
}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("config.yaml"). If no file is found, it uses built-in
// defaults. After loading defaults or from file, it applies environment variable
// overrides (including any .env file) and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against the hardware and processing limits.
func (c *Config) Validate() error {
	a := c.Audio
	if a.InputDevice < MinDeviceID {
		return fmt.Errorf("audio.input_device must be >= %d, got %d", MinDeviceID, a.InputDevice)
	}
	if a.SampleRate < MinSampleRate || a.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate must be between %d and %d, got %.0f", MinSampleRate, MaxSampleRate, a.SampleRate)
	}
	if a.InputChannels < 1 || a.InputChannels > MaxChannels {
		return fmt.Errorf("audio.input_channels must be between 1 and %d, got %d", MaxChannels, a.InputChannels)
	}
	if a.FramesPerBuffer < 1 || a.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer must be between 1 and %d, got %d", MaxBufferFrames, a.FramesPerBuffer)
	}
	if a.TimeoutSeconds <= 0 || c.Timeout() > MaxTimeout {
		return fmt.Errorf("audio.timeout_seconds must be positive and at most %s, got %g", MaxTimeout, a.TimeoutSeconds)
	}
	if c.MaxFrames() < a.FramesPerBuffer {
		return fmt.Errorf("audio.timeout_seconds too short for one buffer of %d frames", a.FramesPerBuffer)
	}

	switch c.Recording.BitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("recording.bit_depth must be 16, 24 or 32, got %d", c.Recording.BitDepth)
	}
	if c.Recording.OutputDir == "" {
		return fmt.Errorf("recording.output_dir must be set")
	}
	if c.Recording.EventQueueSize < 4 {
		return fmt.Errorf("recording.event_queue_size must be at least 4, got %d", c.Recording.EventQueueSize)
	}

	t := c.Transport
	if t.WebSocketEnabled {
		if t.WebSocketAddr == "" {
			return fmt.Errorf("transport.websocket_addr must be set when WebSocket is enabled")
		}
		if !strings.HasPrefix(t.WebSocketPath, "/") {
			return fmt.Errorf("transport.websocket_path '%s' must start with '/'", t.WebSocketPath)
		}
	}
	if t.UDPEnabled {
		if t.UDPTargetAddress == "" {
			return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
		}
		if !strings.Contains(t.UDPTargetAddress, ":") {
			return fmt.Errorf("transport.udp_target_address '%s' appears invalid (missing port?)", t.UDPTargetAddress)
		}
		if t.UDPSendInterval <= 0 {
			return fmt.Errorf("transport.udp_send_interval must be positive when UDP is enabled")
		}
	}

	if _, ok := applog.ParseLevel(c.Log.Level); !ok && !c.Debug {
		return fmt.Errorf("log.level '%s' is not a known level", c.Log.Level)
	}

	return nil
}

// applyEnvOverrides layers ENV_* variables over the loaded values. Values
// that fail to parse are ignored.
func (cfg *Config) applyEnvOverrides() {
	// ENV_DEBUG
	if val, ok := os.LookupEnv("ENV_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
			applog.Debugf("configuration: Overriding debug from env: %v", bVal)
		}
	}
	// ENV_LOG_LEVEL
	if val, ok := os.LookupEnv("ENV_LOG_LEVEL"); ok {
		cfg.Log.Level = val
		applog.Debugf("configuration: Overriding log.level from env: %s", val)
	}
	// ENV_LOG_FILE
	if val, ok := os.LookupEnv("ENV_LOG_FILE"); ok {
		cfg.Log.File = val
		applog.Debugf("configuration: Overriding log.file from env: %s", val)
	}

	// ENV_AUDIO_{...}
	// These are specific to capture.

	// ENV_AUDIO_DEVICE
	if val, ok := os.LookupEnv("ENV_AUDIO_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = iVal
			applog.Debugf("configuration: Overriding audio.input_device from env: %d", iVal)
		}
	}
	// ENV_AUDIO_SAMPLE_RATE
	if val, ok := os.LookupEnv("ENV_AUDIO_SAMPLE_RATE"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Audio.SampleRate = fVal
			applog.Debugf("configuration: Overriding audio.sample_rate from env: %.0f", fVal)
		}
	}
	// ENV_AUDIO_CHANNELS
	if val, ok := os.LookupEnv("ENV_AUDIO_CHANNELS"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputChannels = iVal
			applog.Debugf("configuration: Overriding audio.input_channels from env: %d", iVal)
		}
	}
	// ENV_AUDIO_TIMEOUT_SECONDS
	if val, ok := os.LookupEnv("ENV_AUDIO_TIMEOUT_SECONDS"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Audio.TimeoutSeconds = fVal
			applog.Debugf("configuration: Overriding audio.timeout_seconds from env: %g", fVal)
		}
	}

	// ENV_RECORDING_OUTPUT_DIR
	if val, ok := os.LookupEnv("ENV_RECORDING_OUTPUT_DIR"); ok {
		cfg.Recording.OutputDir = val
		applog.Debugf("configuration: Overriding recording.output_dir from env: %s", val)
	}

	// ENV_WS_{...} and ENV_UDP_{...}
	// These are specific to the transport layer.

	// ENV_WS_ENABLED
	if val, ok := os.LookupEnv("ENV_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = bVal
			applog.Debugf("configuration: Overriding transport.websocket_enabled from env: %v", bVal)
		}
	}
	// ENV_WS_ADDR
	if val, ok := os.LookupEnv("ENV_WS_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
		applog.Debugf("configuration: Overriding transport.websocket_addr from env: %s", val)
	}
	// ENV_UDP_ENABLED
	if val, ok := os.LookupEnv("ENV_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
			applog.Debugf("configuration: Overriding transport.udp_enabled from env: %v", bVal)
		}
	}
	// ENV_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("ENV_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
		applog.Debugf("configuration: Overriding transport.udp_target_address from env: %s", val)
	}
	// ENV_UDP_SEND_INTERVAL
	if val, ok := os.LookupEnv("ENV_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = dur
			applog.Debugf("configuration: Overriding transport.udp_send_interval from env: %s", dur)
		}
	}
}

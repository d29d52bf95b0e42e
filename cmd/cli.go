// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"grec/internal/config"
	"grec/pkg/build"
)

// Commands set in Config.Command.
const (
	CommandList   = "list"
	CommandSelect = "select"
)

type flagValues struct {
	configPath      string
	deviceID        int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool
	timeout         float64
	outputDir       string
	bitDepth        int
	exactSnapshots  bool
	headless        bool
	verbose         bool
	logFile         string
	websocket       bool
	udp             bool
}

// ParseArgs parses the command line, loads the configuration file and
// environment, and applies every flag the user set on top of them.
func ParseArgs(args []string) (*config.Config, error) {
	buildInfo := build.GetBuildFlags()
	var (
		flags   flagValues
		options *config.Config
		command string
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(flags.configPath)
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid flags: %w", err)
			}
			options = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	var interactive bool
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available input devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			command = CommandList
			if interactive {
				command = CommandSelect
			}
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&interactive, "interactive", "i", false,
		"Pick a device and sample rate interactively")
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "",
		"Path to a YAML configuration file (default ./config.yaml if present)")

	// Audio Device Configuration
	pf.IntVarP(&flags.deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	pf.IntVarP(&flags.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to record (1=mono, 2=stereo)")
	pf.Float64VarP(&flags.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	pf.IntVarP(&flags.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	pf.BoolVarP(&flags.lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Recording Configuration
	pf.Float64VarP(&flags.timeout, "timeout", "t", config.DefaultTimeoutSeconds,
		"Maximum recording length in seconds")
	pf.StringVarP(&flags.outputDir, "output-dir", "o", config.DefaultOutputDir,
		"Directory for recorded takes")
	pf.IntVar(&flags.bitDepth, "bit-depth", config.DefaultBitDepth,
		"Bit depth of exported WAV files (16, 24 or 32)")
	pf.BoolVar(&flags.exactSnapshots, "exact", false,
		"Trim snapshots to exactly the recorded frames")
	pf.BoolVar(&flags.headless, "headless", false,
		"Record immediately without the terminal UI")

	// Monitors
	pf.BoolVar(&flags.websocket, "websocket", config.DefaultWebSocketEnabled,
		"Serve events and accept commands over WebSocket")
	pf.BoolVar(&flags.udp, "udp", config.DefaultUDPEnabled,
		"Stream progress packets over UDP")

	// Debug Configuration
	pf.BoolVarP(&flags.verbose, "verbose", "v", false,
		"Show verbose output")
	pf.StringVar(&flags.logFile, "log-file", "",
		"Write logs to a rotating file")

	// Execute the CLI
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options == nil {
		// --help or --version
		return nil, nil
	}

	options.Command = command
	return options, nil
}

// apply copies the flags the user set into cfg.
func (f *flagValues) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed

	if changed("device") {
		cfg.Audio.InputDevice = f.deviceID
	}
	if changed("channels") {
		cfg.Audio.InputChannels = f.channels
	}
	if changed("sample-rate") {
		cfg.Audio.SampleRate = f.sampleRate
	}
	if changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer = f.framesPerBuffer
	}
	if changed("low-latency") {
		cfg.Audio.LowLatency = f.lowLatency
	}
	if changed("timeout") {
		cfg.Audio.TimeoutSeconds = f.timeout
	}
	if changed("output-dir") {
		cfg.Recording.OutputDir = f.outputDir
	}
	if changed("bit-depth") {
		cfg.Recording.BitDepth = f.bitDepth
	}
	if changed("exact") {
		cfg.Recording.ExactSnapshots = f.exactSnapshots
	}
	if changed("headless") {
		cfg.Headless = f.headless
	}
	if changed("websocket") {
		cfg.Transport.WebSocketEnabled = f.websocket
	}
	if changed("udp") {
		cfg.Transport.UDPEnabled = f.udp
	}
	if changed("verbose") {
		cfg.Debug = f.verbose
	}
	if changed("log-file") {
		cfg.Log.File = f.logFile
	}
}

// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"grec/cmd"
	"grec/internal/audio"
	"grec/internal/config"
	applog "grec/internal/log"
	"grec/internal/message"
	"grec/internal/transport"
	"grec/internal/transport/udp"
	"grec/internal/tui"
	"grec/pkg/build"
)

// main is the entry point for the recorder.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and configuration
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Start the monitors and the engine event pump
//   - Begin input stream processing
//   - Run the terminal UI, or record headless until done
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Finalize an unfinished take
//   - Clean up resources
func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Warnf("Build info incomplete: %v", err)
	}

	cfg, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil // Help or version was printed
	}

	tuiMode := !cfg.Headless && cfg.Command == ""
	logFile := applog.Configure(applog.Options{
		Level:      cfg.EffectiveLogLevel(),
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		Quiet:      tuiMode,
	})
	defer logFile.Close()
	applog.Debugf("%s", build.GetBuildFlags())

	// One thread for the audio callback, one for the pump, UI and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		return err
	}
	defer audio.Terminate()

	if cfg.Command != "" {
		return executeCommand(cfg.Command)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Remote commands may arrive as soon as the WebSocket listener is up,
	// before the engine exists.
	var engine atomic.Pointer[audio.Engine]
	sink := tui.NewProgramSink()
	monitors, err := startMonitors(cfg, sink, func(c message.Command) {
		if e := engine.Load(); e != nil {
			e.HandleCommand(c)
		}
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := monitors.Close(); err != nil {
			applog.Warnf("Monitors: %v", err)
		}
	}()

	e, err := audio.NewEngine(cfg, monitors)
	if err != nil {
		return err
	}
	engine.Store(e)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.Run(gctx)
	})

	// CRITICAL: Start of real-time audio processing
	// The first call to StartInputStream triggers PortAudio to begin
	// calling the callback function, marking the start of the hot path
	if err := e.StartInputStream(); err != nil {
		stop()
		_ = g.Wait()
		return err
	}

	if tuiMode {
		g.Go(func() error {
			defer stop()
			model := tui.NewRecorderModel(e, audio.NewLevelGate(), cfg.Audio.SampleRate, cfg.MaxFrames())
			return tui.RunRecorder(gctx, model, sink)
		})
		<-gctx.Done()
	} else if err := e.Record(); err != nil {
		applog.Errorf("Engine: %v", err)
	} else {
		applog.Infof("Recording up to %s into %s, press Ctrl+C to stop", cfg.Timeout(), cfg.Recording.OutputDir)
		select {
		case <-gctx.Done():
		case <-e.Finished():
		}
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	stop()
	groupErr := g.Wait()

	// The pump is gone; stop the stream and finalize an unfinished take.
	if err := e.Close(); err != nil {
		applog.Errorf("Engine: %v", err)
	}
	applog.Infof("Saved %d take(s) in %s", e.SavedTakes(), cfg.Recording.OutputDir)
	return groupErr
}

// startMonitors builds the transports enabled in cfg. The terminal UI sink
// and the log are always present.
func startMonitors(cfg *config.Config, sink *tui.ProgramSink, onCommand transport.CommandHandler) (transport.Fanout, error) {
	monitors := transport.Fanout{transport.NewLoggingTransport(), sink}

	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr, cfg.Transport.WebSocketPath, onCommand)
		if err := ws.Start(); err != nil {
			_ = ws.Close()
			_ = monitors.Close()
			return nil, err
		}
		monitors = append(monitors, ws)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewUDPSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			_ = monitors.Close()
			return nil, err
		}
		publisher, err := udp.NewUDPPublisher(cfg.Transport.UDPSendInterval, sender)
		if err != nil {
			_ = sender.Close()
			_ = monitors.Close()
			return nil, err
		}
		publisher.Start()
		monitors = append(monitors, publisher)
	}

	return monitors, nil
}

// executeCommand handles one-off commands that don't require the audio engine
// to be running, such as listing available audio devices.
func executeCommand(command string) error {
	switch command {
	case cmd.CommandList:
		devices, err := audio.InputDevices()
		if err != nil {
			return err
		}
		if len(devices) == 0 {
			fmt.Println("No input devices found.")
			return nil
		}
		for _, d := range devices {
			marker := ""
			if d.IsDefaultInput {
				marker = " [default]"
			}
			fmt.Printf("[%d] %s%s\n    %d input channels, %.0f Hz default, %.1f-%.1f ms latency\n",
				d.ID, d.Name, marker, d.MaxInputChannels, d.DefaultSampleRate,
				d.LowInputLatency.Seconds()*1000, d.HighInputLatency.Seconds()*1000)
		}
		return nil

	case cmd.CommandSelect:
		sel, ok, err := tui.RunDeviceList(audio.InputDevices)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("%s %s\n", build.GetBuildFlags().Name, sel.Flags())
		}
		return nil

	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

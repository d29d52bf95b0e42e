// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	applog "grec/internal/log"
	"grec/internal/message"
)

// LoggingTransport implements the Transport interface by logging data.
// Progress updates are logged at debug level, everything else at info.
type LoggingTransport struct{}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	applog.Debugf("Transport: Using LoggingTransport")
	return &LoggingTransport{}
}

// Send logs the received data as JSON, or raw if it cannot be marshalled.
func (lt *LoggingTransport) Send(data any) error {
	if ev, ok := data.(message.Event); ok && ev.Type == message.ProgressUpdate {
		p := ev.Progress
		applog.Debugf("LOG_TRANSPORT: progress %d frames, %.2fs, rms %.4f", p.RecordedFrames, p.ElapsedSeconds, p.RMS)
		return nil
	}
	if ev, ok := data.(message.Event); ok && ev.Type == message.BufferSnapshot {
		// Never dump PCM into the log.
		applog.Infof("LOG_TRANSPORT: snapshot %d channels x %d frames", len(ev.Channels), ev.Frames())
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		applog.Infof("LOG_TRANSPORT: (%T): %+v (JSON marshal error: %v)", data, data, err)
		return nil
	}
	applog.Infof("LOG_TRANSPORT: %s", jsonData)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	applog.Debugf("LOG_TRANSPORT: Close called.")
	return nil
}

// Ensure LoggingTransport satisfies the interface at compile time.
var _ Transport = (*LoggingTransport)(nil)

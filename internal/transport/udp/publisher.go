// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "grec/internal/log"
	"grec/internal/message"
	"grec/internal/transport"
)

// PacketSize is the size in bytes of one progress packet.
const PacketSize = 4 + 8 + 1 + 4 + 4 + 4

// Packet flags.
const (
	FlagRecording uint8 = 1 << iota // Host reports the recording state
	FlagFinished                    // Maximum length reached, no more progress will follow
)

// Packet is the decoded form of a progress packet.
type Packet struct {
	Sequence       uint32
	Timestamp      int64 // Nanoseconds since epoch
	Flags          uint8
	RecordedFrames uint32
	ElapsedSeconds float32
	RMS            float32
}

// UDPPublisher keeps the latest progress update it was given and sends it
// over UDP at a fixed interval, decoupling the network rate from the ~60Hz
// event rate. It is a transport.Transport so the engine can fan events into
// it like any other monitor.
type UDPPublisher struct {
	sender   *UDPSender
	interval time.Duration

	ticker   *time.Ticker   // Ticker that triggers packet sending.
	doneChan chan struct{}  // Channel used to signal the publisher goroutine to stop.
	stopOnce sync.Once      // Ensures the stop logic runs only once per Start/Stop cycle.
	wg       sync.WaitGroup // Waits for the publisher goroutine to finish during Stop.
	mu       sync.Mutex     // Protects ticker and doneChan during Start/Stop.

	// Latest state, written by Send and read on each tick.
	stateMu  sync.Mutex
	progress message.Progress
	flags    uint8
	dirty    bool

	sequenceNum  uint32
	packetBuffer *bytes.Buffer // Reusable buffer for constructing the binary packet.
}

// NewUDPPublisher creates a publisher sending through sender. If the
// interval is invalid (<= 0), it defaults to 16ms (~60Hz).
func NewUDPPublisher(interval time.Duration, sender *UDPSender) (*UDPPublisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("UDPPublisher: UDP sender cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}

	applog.Infof("UDPPublisher: Initializing (Interval: %s, Target: %s)", interval, sender.Target())

	return &UDPPublisher{
		sender:       sender,
		interval:     interval,
		packetBuffer: bytes.NewBuffer(make([]byte, 0, PacketSize)),
	}, nil
}

// Send records the latest recorder state. Progress updates replace the
// pending sample, state notices toggle the recording flag, and
// MaxLengthReached marks the stream finished. Other messages are ignored.
func (p *UDPPublisher) Send(data any) error {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()

	switch v := data.(type) {
	case message.Event:
		switch v.Type {
		case message.ProgressUpdate:
			p.progress = v.Progress
			p.flags &^= FlagFinished
			p.dirty = true
		case message.MaxLengthReached:
			p.flags = (p.flags | FlagFinished) &^ FlagRecording
			p.dirty = true
		}
	case message.StateChanged:
		if v.State == "recording" {
			p.flags |= FlagRecording
		} else {
			p.flags &^= FlagRecording
		}
		p.dirty = true
	}
	return nil
}

// Start begins the periodic publishing process. Calling Start on a running
// publisher is a no-op.
func (p *UDPPublisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDPPublisher: Start called but already running.")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	// Local copies so the goroutine never touches p.ticker/p.doneChan.
	ticker := p.ticker
	doneChan := p.doneChan

	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDPPublisher: Publisher goroutine started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the publisher goroutine to terminate and waits for it.
// Calling Stop on a stopped publisher is a no-op.
func (p *UDPPublisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})

	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Publisher goroutine finished.")
	return nil
}

/*
UDP Packet Structure (BigEndian)

+-----------------------------------------------------------------------------+
| Field             | Data Type      | Size (Bytes) | Description             |
|-------------------|----------------|--------------|-------------------------|
| Sequence Number   | uint32         | 4            | Monotonically increasing|
| Timestamp         | int64          | 8            | Nanoseconds since epoch |
| Flags             | uint8          | 1            | Recording, finished     |
| Recorded Frames   | uint32         | 4            | Frames per channel      |
| Elapsed Seconds   | float32        | 4            | Rounded to 0.01 s       |
| RMS               | float32        | 4            | Last window loudness    |
+-----------------------------------------------------------------------------+
*/

// publish sends the pending state, if anything changed since the last tick.
func (p *UDPPublisher) publish() {
	p.stateMu.Lock()
	if !p.dirty {
		p.stateMu.Unlock()
		return
	}
	progress, flags := p.progress, p.flags
	p.dirty = false
	p.stateMu.Unlock()

	p.sequenceNum++
	packet := Packet{
		Sequence:       p.sequenceNum,
		Timestamp:      time.Now().UnixNano(),
		Flags:          flags,
		RecordedFrames: uint32(progress.RecordedFrames),
		ElapsedSeconds: float32(progress.ElapsedSeconds),
		RMS:            float32(progress.RMS),
	}

	p.packetBuffer.Reset()
	if err := binary.Write(p.packetBuffer, binary.BigEndian, packet); err != nil {
		applog.Errorf("UDPPublisher: Error packing data into binary buffer: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err == nil {
		applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
	}
}

// DecodePacket parses a progress packet.
func DecodePacket(data []byte) (Packet, error) {
	var packet Packet
	if len(data) != PacketSize {
		return packet, fmt.Errorf("invalid packet size %d, want %d", len(data), PacketSize)
	}
	err := binary.Read(bytes.NewReader(data), binary.BigEndian, &packet)
	return packet, err
}

// Close stops the publisher and closes its sender.
func (p *UDPPublisher) Close() error {
	if err := p.Stop(); err != nil {
		return err
	}
	return p.sender.Close()
}

var _ transport.Transport = (*UDPPublisher)(nil)

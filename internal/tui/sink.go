// SPDX-License-Identifier: MIT
package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"grec/internal/message"
	"grec/internal/transport"
)

// ProgramSink forwards engine events and notices to a running bubbletea
// program. Messages sent before Attach or after Close are dropped.
type ProgramSink struct {
	program atomic.Pointer[tea.Program]
}

// NewProgramSink returns a detached sink.
func NewProgramSink() *ProgramSink {
	return &ProgramSink{}
}

// Attach starts forwarding to p.
func (s *ProgramSink) Attach(p *tea.Program) {
	s.program.Store(p)
}

// Send hands data to the program. PCM snapshots are not forwarded; the
// monitor learns about them through RecordingSaved.
func (s *ProgramSink) Send(data any) error {
	p := s.program.Load()
	if p == nil {
		return nil
	}
	switch v := data.(type) {
	case message.Event:
		if v.Type == message.BufferSnapshot {
			return nil
		}
		p.Send(v)
	case message.StateChanged, message.RecordingSaved:
		p.Send(v)
	}
	return nil
}

// Close detaches the program.
func (s *ProgramSink) Close() error {
	s.program.Store(nil)
	return nil
}

var _ transport.Transport = (*ProgramSink)(nil)

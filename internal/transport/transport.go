// SPDX-License-Identifier: MIT
/*
Package transport carries recorder events to monitoring clients and control
commands back from them.

Every monitor (WebSocket clients, the UDP progress stream, the log) is a
Transport. The host engine hands each processor event and host notice to
all of them through a Fanout; none of this runs on the audio callback.
*/
package transport

import (
	"errors"

	"grec/internal/message"
)

// Transport defines a generic interface for sending events and notices.
// Implementations should be thread-safe and must not block for long.
type Transport interface {
	Send(data any) error
	Close() error
}

// CommandHandler receives control commands decoded from remote clients.
type CommandHandler func(cmd message.Command)

// Fanout forwards every message to each of its transports.
type Fanout []Transport

// Send delivers data to all transports and joins their errors.
func (f Fanout) Send(data any) error {
	var errs []error
	for _, t := range f {
		if err := t.Send(data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all transports and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, t := range f {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Transport = Fanout(nil)

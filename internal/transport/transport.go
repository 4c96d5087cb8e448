// Package transport moves raw bytes to and from a WITS0 device. Two variants
// exist: SerialTransport drains a serial line until it goes quiet, and
// SocketTransport reads a TCP connection until a per-read timeout expires.
package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every error returned by a Transport.
	ErrTransport = errors.New("transport failure")
	// ErrClosed is the cause reported for operations after Close.
	ErrClosed = errors.New("transport closed")
)

// Transport is a request/response byte channel.
type Transport interface {
	// Write sends p in full.
	Write(p []byte) error
	// Read blocks until data is available, then drains everything the
	// device sends until the channel goes quiet.
	Read() ([]byte, error)
	// Close releases the channel. Calling it more than once is safe.
	Close() error
}

// Error is the single failure kind surfaced by transports. Op names the
// failing operation ("open", "dial", "write", "read", "close").
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports true for ErrTransport so callers need not know the concrete type.
func (e *Error) Is(target error) bool { return target == ErrTransport }

// Wrap normalises err into an *Error. Errors that already are transport
// errors pass through unchanged; nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return err
	}
	return &Error{Op: op, Err: err}
}

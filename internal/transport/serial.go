package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/banshee-data/wits0/internal/monitoring"
)

// DefaultSerialReadTimeout is how long the line must stay silent before a
// drain finishes.
const DefaultSerialReadTimeout = 3 * time.Second

const readChunkSize = 2048

// SerialTransport is the continuous-drain variant. Read keeps reading until a
// read returns no bytes, which on a port with a read timeout means the device
// has gone quiet.
type SerialTransport struct {
	port SerialPorter

	mu     sync.Mutex
	closed bool
}

// NewSerialTransport wraps an already opened port. The port's own read
// timeout decides how long silence must last before Read returns.
func NewSerialTransport(port SerialPorter) *SerialTransport {
	return &SerialTransport{port: port}
}

// OpenSerial opens the serial device at path with go.bug.st/serial.
func OpenSerial(path string, opts PortOptions, readTimeout time.Duration) (*SerialTransport, error) {
	return OpenSerialWith(openRealPort, path, opts, readTimeout)
}

// OpenSerialWith opens a port through opener and applies readTimeout
// (DefaultSerialReadTimeout when zero or negative).
func OpenSerialWith(opener SerialPortOpener, path string, opts PortOptions, readTimeout time.Duration) (*SerialTransport, error) {
	opts, err := opts.Normalise()
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	if readTimeout <= 0 {
		readTimeout = DefaultSerialReadTimeout
	}

	port, err := opener(path, opts)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, &Error{Op: "open", Err: err}
	}

	monitoring.Logf("opened serial port %s (%s, read timeout %s)", path, opts, readTimeout)
	return NewSerialTransport(port), nil
}

func openRealPort(path string, opts PortOptions) (TimeoutSerialPorter, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}
	return port, nil
}

func (t *SerialTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Write sends p to the port.
func (t *SerialTransport) Write(p []byte) error {
	if t.isClosed() {
		return &Error{Op: "write", Err: ErrClosed}
	}
	n, err := t.port.Write(p)
	if err != nil {
		return &Error{Op: "write", Err: err}
	}
	if n != len(p) {
		return &Error{Op: "write", Err: io.ErrShortWrite}
	}
	monitoring.Tracef("serial wrote %d bytes: %q", n, p)
	return nil
}

// Read drains the port until a read yields nothing.
func (t *SerialTransport) Read() ([]byte, error) {
	if t.isClosed() {
		return nil, &Error{Op: "read", Err: ErrClosed}
	}

	var out bytes.Buffer
	buf := make([]byte, readChunkSize)
	for {
		n, err := t.port.Read(buf)
		out.Write(buf[:n])
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &Error{Op: "read", Err: err}
		}
		if n == 0 {
			break
		}
	}

	monitoring.Tracef("serial read %d bytes", out.Len())
	return out.Bytes(), nil
}

// Close closes the port once; later calls return nil.
func (t *SerialTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return &Error{Op: "close", Err: err}
	}
	return nil
}

package transport

import (
	"bytes"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/banshee-data/wits0/internal/monitoring"
)

const (
	// DefaultSocketReadTimeout bounds each read on a socket. A device whose
	// turnaround exceeds it will have its response truncated, so tune it to
	// the slowest expected reply.
	DefaultSocketReadTimeout = 250 * time.Millisecond
	// DefaultDialTimeout bounds connection establishment.
	DefaultDialTimeout = 5 * time.Second
)

// Conn is the subset of net.Conn used by SocketTransport.
type Conn interface {
	io.ReadWriteCloser
	SetReadDeadline(t time.Time) error
}

// SocketTransport is the timeout-bounded variant. Each read waits at most
// timeout; expiry means "no more data" and Read returns what it has.
type SocketTransport struct {
	conn    Conn
	timeout time.Duration

	mu     sync.Mutex
	closed bool
}

// NewSocketTransport wraps conn. A non-positive timeout selects
// DefaultSocketReadTimeout.
func NewSocketTransport(conn Conn, timeout time.Duration) *SocketTransport {
	if timeout <= 0 {
		timeout = DefaultSocketReadTimeout
	}
	return &SocketTransport{conn: conn, timeout: timeout}
}

// DialSocket connects to address over TCP.
func DialSocket(address string, dialTimeout, readTimeout time.Duration) (*SocketTransport, error) {
	if dialTimeout <= 0 {
		dialTimeout = DefaultDialTimeout
	}
	conn, err := net.DialTimeout("tcp", address, dialTimeout)
	if err != nil {
		return nil, &Error{Op: "dial", Err: err}
	}
	st := NewSocketTransport(conn, readTimeout)
	monitoring.Logf("connected to %s (read timeout %s)", address, st.timeout)
	return st, nil
}

// Timeout returns the per-read timeout.
func (t *SocketTransport) Timeout() time.Duration {
	return t.timeout
}

func (t *SocketTransport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// Write sends p on the connection.
func (t *SocketTransport) Write(p []byte) error {
	if t.isClosed() {
		return &Error{Op: "write", Err: ErrClosed}
	}
	n, err := t.conn.Write(p)
	if err != nil {
		return &Error{Op: "write", Err: err}
	}
	if n != len(p) {
		return &Error{Op: "write", Err: io.ErrShortWrite}
	}
	monitoring.Tracef("socket wrote %d bytes: %q", n, p)
	return nil
}

// Read accumulates data until a read times out. Bytes that arrive after the
// timeout are left on the connection for the next Read. A peer close after
// some data ends the read normally; any other failure is returned.
func (t *SocketTransport) Read() ([]byte, error) {
	if t.isClosed() {
		return nil, &Error{Op: "read", Err: ErrClosed}
	}

	var out bytes.Buffer
	buf := make([]byte, readChunkSize)
	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
			return nil, &Error{Op: "read", Err: err}
		}
		n, err := t.conn.Read(buf)
		out.Write(buf[:n])
		if err == nil {
			continue
		}
		if isTimeout(err) {
			break
		}
		if errors.Is(err, io.EOF) && out.Len() > 0 {
			break
		}
		return nil, &Error{Op: "read", Err: err}
	}

	monitoring.Tracef("socket read %d bytes", out.Len())
	return out.Bytes(), nil
}

// Close closes the connection once; later calls return nil.
func (t *SocketTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.conn.Close(); err != nil {
		return &Error{Op: "close", Err: err}
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

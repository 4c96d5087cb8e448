package transport

import (
	"bytes"
	"errors"
	"io"
	"sync"
	"time"
)

// TestableSerialPort implements TimeoutSerialPorter with configurable
// behaviour for testing. An empty read buffer reads as io.EOF, or as (0, nil)
// when QuietReads is set, matching a real port whose read timeout expired.
type TestableSerialPort struct {
	mu sync.Mutex

	// ReadBuffer holds data to be returned by Read calls
	ReadBuffer *bytes.Buffer

	// WriteBuffer captures data written to the port
	WriteBuffer *bytes.Buffer

	// ChunkSize caps the bytes returned per Read when positive
	ChunkSize int

	// QuietReads makes an empty buffer read as (0, nil) instead of io.EOF
	QuietReads bool

	// Reply, when set, is appended to ReadBuffer after every Write
	Reply []byte

	// ReadError is returned by the next Read call if set
	ReadError error

	// WriteError is returned by the next Write call if set
	WriteError error

	// CloseError is returned by Close if set
	CloseError error

	// Closed indicates whether Close was called
	Closed bool

	// CloseCalls records the number of Close calls
	CloseCalls int

	// ReadCalls records the number of Read calls
	ReadCalls int

	// WriteCalls records the number of Write calls
	WriteCalls int

	// ReadTimeout is the current read timeout
	ReadTimeout time.Duration
}

// NewTestableSerialPort creates a new TestableSerialPort for testing.
func NewTestableSerialPort() *TestableSerialPort {
	return &TestableSerialPort{
		ReadBuffer:  bytes.NewBuffer(nil),
		WriteBuffer: bytes.NewBuffer(nil),
	}
}

// Read reads from the read buffer, optionally simulating errors.
func (t *TestableSerialPort) Read(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.ReadError != nil {
		err := t.ReadError
		t.ReadError = nil
		return 0, err
	}

	if t.ReadBuffer.Len() == 0 {
		if t.QuietReads {
			return 0, nil
		}
		return 0, io.EOF
	}

	if t.ChunkSize > 0 && len(p) > t.ChunkSize {
		p = p[:t.ChunkSize]
	}
	return t.ReadBuffer.Read(p)
}

// Write writes to the write buffer, optionally simulating errors.
func (t *TestableSerialPort) Write(p []byte) (n int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.WriteCalls++

	if t.Closed {
		return 0, errors.New("serial port closed")
	}

	if t.WriteError != nil {
		err := t.WriteError
		t.WriteError = nil
		return 0, err
	}

	n, err = t.WriteBuffer.Write(p)
	if t.Reply != nil {
		t.ReadBuffer.Write(t.Reply)
	}
	return n, err
}

// Close marks the port as closed.
func (t *TestableSerialPort) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.Closed = true
	t.CloseCalls++
	return t.CloseError
}

// SetReadTimeout implements TimeoutSerialPorter.
func (t *TestableSerialPort) SetReadTimeout(timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadTimeout = timeout
	return nil
}

// AddReadData adds data to be returned by subsequent Read calls.
func (t *TestableSerialPort) AddReadData(data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.ReadBuffer.Write(data)
}

// GetWrittenData returns all data written to the port.
func (t *TestableSerialPort) GetWrittenData() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.WriteBuffer.Bytes()
}

// MockRead is one scripted result for MockConn.Read. After is how long past
// the start of the read the data arrives; if it exceeds the current read
// deadline the read times out and the entry stays pending.
type MockRead struct {
	Data  []byte
	After time.Duration
	Err   error
}

// MockConn implements Conn for testing SocketTransport without a network.
type MockConn struct {
	mu sync.Mutex

	// Reads are served in order; when exhausted every read times out.
	Reads []MockRead
	// ReadIndex tracks the current position in Reads.
	ReadIndex int
	// Written captures data passed to Write.
	Written bytes.Buffer
	// WriteError is returned on the next Write call if set.
	WriteError error
	// ReadDeadline holds the value set by SetReadDeadline.
	ReadDeadline time.Time
	// Closed indicates whether Close was called.
	Closed bool
	// CloseCalls records the number of Close calls.
	CloseCalls int
}

// Read serves the next scripted read, or a timeout error.
func (m *MockConn) Read(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Closed {
		return 0, errors.New("use of closed connection")
	}
	if m.ReadIndex >= len(m.Reads) {
		return 0, &timeoutError{}
	}
	r := m.Reads[m.ReadIndex]
	if !m.ReadDeadline.IsZero() && r.After > time.Until(m.ReadDeadline) {
		return 0, &timeoutError{}
	}
	m.ReadIndex++
	n := copy(p, r.Data)
	return n, r.Err
}

// Write records p.
func (m *MockConn) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteError != nil {
		err := m.WriteError
		m.WriteError = nil
		return 0, err
	}
	return m.Written.Write(p)
}

// SetReadDeadline records the deadline.
func (m *MockConn) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReadDeadline = t
	return nil
}

// Close marks the connection as closed.
func (m *MockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Closed = true
	m.CloseCalls++
	return nil
}

// timeoutError implements net.Error for timeout simulation.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "i/o timeout" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

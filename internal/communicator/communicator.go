// Package communicator pairs a byte transport with a frame parser to give a
// synchronous ask/response client for WITS0 devices.
//
// A Communicator performs no locking; callers sharing one across goroutines
// must serialise access. The transport is held from construction until Close,
// which must be called on every exit path.
package communicator

import (
	"github.com/banshee-data/wits0/internal/monitoring"
	"github.com/banshee-data/wits0/internal/transport"
	"github.com/banshee-data/wits0/internal/wits0"
)

// Parser decodes raw transport bytes into logical records.
type Parser interface {
	Parse(data []byte) ([]wits0.LogicalRecord, error)
}

// Communicator binds one Transport and one Parser for its whole lifetime.
type Communicator struct {
	transport transport.Transport
	parser    Parser
}

// New returns a Communicator over t decoding with p.
func New(t transport.Transport, p Parser) *Communicator {
	return &Communicator{transport: t, parser: p}
}

// Write sends data to the device. Failures are *transport.Error.
func (c *Communicator) Write(data []byte) error {
	return transport.Wrap("write", c.transport.Write(data))
}

// Read drains the transport and parses whatever arrived. An empty result
// with a nil error means no complete frame was received.
func (c *Communicator) Read() ([]wits0.LogicalRecord, error) {
	raw, err := c.transport.Read()
	if err != nil {
		return nil, transport.Wrap("read", err)
	}
	return c.parser.Parse(raw)
}

// Ask writes request and then reads the response. The end of the response is
// decided by the transport going quiet, not by the frame end marker.
func (c *Communicator) Ask(request []byte) ([]wits0.LogicalRecord, error) {
	monitoring.Tracef("ask %q", request)
	if err := c.Write(request); err != nil {
		return nil, err
	}
	return c.Read()
}

// Close releases the transport.
func (c *Communicator) Close() error {
	return transport.Wrap("close", c.transport.Close())
}

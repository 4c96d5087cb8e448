package communicator

import (
	"fmt"
	"time"

	"github.com/banshee-data/wits0/internal/config"
	"github.com/banshee-data/wits0/internal/monitoring"
	"github.com/banshee-data/wits0/internal/transport"
	"github.com/banshee-data/wits0/internal/wits0"
)

// EDR is a Communicator fixed to the WITS0 decoder for electronic drilling
// recorders that answer a data request with their full current data set.
type EDR struct {
	*Communicator
}

// NewEDR wraps t.
func NewEDR(t transport.Transport) *EDR {
	return &EDR{Communicator: New(t, wits0.Decoder{})}
}

// ReadEDRData sends wits0.EDRDataRequest and returns the parsed reply.
func (e *EDR) ReadEDRData() ([]wits0.LogicalRecord, error) {
	return e.Ask([]byte(wits0.EDRDataRequest))
}

// RequestAll sends the generic empty frame, wits0.DataRequest.
func (e *EDR) RequestAll() ([]wits0.LogicalRecord, error) {
	return e.Ask([]byte(wits0.DataRequest))
}

// OpenSerialEDR opens a serial line to an EDR.
func OpenSerialEDR(path string, opts transport.PortOptions, readTimeout time.Duration) (*EDR, error) {
	st, err := transport.OpenSerial(path, opts, readTimeout)
	if err != nil {
		return nil, err
	}
	return NewEDR(st), nil
}

// DialEDR connects to an EDR over TCP.
func DialEDR(address string, dialTimeout, readTimeout time.Duration) (*EDR, error) {
	st, err := transport.DialSocket(address, dialTimeout, readTimeout)
	if err != nil {
		return nil, err
	}
	return NewEDR(st), nil
}

// Open builds an EDR from a validated device configuration.
func Open(cfg *config.DeviceConfig) (*EDR, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid device config: %w", err)
	}

	monitoring.Logf("opening %s link to device %q", cfg.Link, cfg.Name)
	switch cfg.Link {
	case config.LinkSerial:
		return OpenSerialEDR(cfg.Port, cfg.Serial, cfg.GetReadTimeout())
	case config.LinkSocket:
		return DialEDR(cfg.Address, cfg.GetDialTimeout(), cfg.GetReadTimeout())
	default:
		return nil, fmt.Errorf("unsupported link %q", cfg.Link)
	}
}

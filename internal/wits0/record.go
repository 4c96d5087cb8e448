// Package wits0 decodes and encodes WITS level 0 ASCII frames as emitted by
// drilling-rig instrumentation.
package wits0

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidIdentifier is returned when either half of an identifier is not
// exactly two characters long.
var ErrInvalidIdentifier = errors.New("wits0: identifier halves must be 2 characters")

// Identifier addresses one data item: a two character record id followed by a
// two character item id.
type Identifier struct {
	Record string
	Item   string
}

// DeviceIdentifier is the reserved identifier a device uses to report its own
// name, e.g. "PASON/EDR".
var DeviceIdentifier = Identifier{Record: "19", Item: "84"}

// NewIdentifier validates and returns an Identifier.
func NewIdentifier(record, item string) (Identifier, error) {
	if len(record) != 2 || len(item) != 2 {
		return Identifier{}, fmt.Errorf("%w: got %q/%q", ErrInvalidIdentifier, record, item)
	}
	return Identifier{Record: record, Item: item}, nil
}

// ParseIdentifier splits a four character full id such as "0108".
func ParseIdentifier(full string) (Identifier, error) {
	if len(full) != 4 {
		return Identifier{}, fmt.Errorf("%w: got %q", ErrInvalidIdentifier, full)
	}
	return Identifier{Record: full[:2], Item: full[2:]}, nil
}

// Full returns the concatenated record and item ids.
func (id Identifier) Full() string {
	return id.Record + id.Item
}

func (id Identifier) String() string {
	return id.Full()
}

// DataRecord is a single (identifier, value) field. The value is the raw
// payload; its numeric meaning is device specific.
type DataRecord struct {
	Identifier Identifier
	Value      string
}

func (dr DataRecord) String() string {
	return fmt.Sprintf("DR: Id: %s V: %s", dr.Identifier, dr.Value)
}

// LogicalRecord is one complete frame. DataRecords keeps wire order.
type LogicalRecord struct {
	DataRecords []DataRecord
}

// Lookup returns the first data record whose full identifier matches.
func (lr LogicalRecord) Lookup(full string) (DataRecord, bool) {
	for _, dr := range lr.DataRecords {
		if dr.Identifier.Full() == full {
			return dr, true
		}
	}
	return DataRecord{}, false
}

// Device returns the device name carried under DeviceIdentifier, if present.
func (lr LogicalRecord) Device() (string, bool) {
	dr, ok := lr.Lookup(DeviceIdentifier.Full())
	if !ok {
		return "", false
	}
	return dr.Value, true
}

func (lr LogicalRecord) String() string {
	var b strings.Builder
	b.WriteString("Logical Record:")
	for _, dr := range lr.DataRecords {
		b.WriteByte('\n')
		b.WriteString(dr.String())
	}
	return b.String()
}

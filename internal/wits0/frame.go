package wits0

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// BeginMarker opens a frame on the wire. Encoded frames follow it with
	// LineTerminator.
	BeginMarker = "&&"
	// EndMarker closes a frame.
	EndMarker = "!!"
	// LineTerminator separates data records inside a frame.
	LineTerminator = "\r\n"

	// DataRequest is an empty frame. Some devices answer it with their full
	// current data set.
	DataRequest = BeginMarker + LineTerminator + EndMarker + LineTerminator

	// EDRDataRequest asks an electronic drilling recorder for a full dump.
	EDRDataRequest = BeginMarker + LineTerminator + "0111-9999" + LineTerminator + EndMarker + LineTerminator

	minFieldLen = 4
)

// ErrMalformedRecord is returned when a data record field is too short to
// carry both identifier halves.
var ErrMalformedRecord = errors.New("wits0: malformed data record")

// Parse decodes every complete frame in data, in order of appearance. Bytes
// outside frames and a trailing frame without an end marker are dropped. A
// buffer with no complete frame yields an empty slice and no error.
func Parse(data []byte) ([]LogicalRecord, error) {
	bodies := scanFrames(data)
	records := make([]LogicalRecord, 0, len(bodies))
	for i, body := range bodies {
		lr, err := parseBody(body)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		records = append(records, lr)
	}
	return records, nil
}

// scanFrames returns the bodies of all complete frames. It is a single pass
// over data with two states: outside a frame looking for BeginMarker, and
// inside a frame looking for EndMarker. A frame body never contains '&' or
// '!'; hitting one inside a frame abandons the candidate.
func scanFrames(data []byte) []string {
	var bodies []string
	inside := false
	start := 0
	for i := 0; i < len(data); i++ {
		c := data[i]
		if !inside {
			if c == '&' && i+1 < len(data) && data[i+1] == '&' {
				inside = true
				start = i + 2
				i++
			}
			continue
		}
		switch c {
		case '!':
			if i+1 < len(data) && data[i+1] == '!' {
				bodies = append(bodies, string(data[start:i]))
				inside = false
				i++
			} else {
				inside = false
			}
		case '&':
			// "&&&" restarts the frame one byte later.
			if i == start {
				start = i + 1
				continue
			}
			inside = false
			i--
		}
	}
	return bodies
}

func parseBody(body string) (LogicalRecord, error) {
	fields := strings.Split(body, LineTerminator)
	records := make([]DataRecord, 0, len(fields))
	for _, field := range fields {
		if field == "" {
			continue
		}
		dr, err := parseField(field)
		if err != nil {
			return LogicalRecord{}, err
		}
		records = append(records, dr)
	}
	return LogicalRecord{DataRecords: records}, nil
}

func parseField(field string) (DataRecord, error) {
	if len(field) < minFieldLen {
		return DataRecord{}, fmt.Errorf("%w: field %q shorter than %d characters", ErrMalformedRecord, field, minFieldLen)
	}
	return DataRecord{
		Identifier: Identifier{Record: field[0:2], Item: field[2:4]},
		Value:      field[4:],
	}, nil
}

// Encode builds the wire form of lr: BeginMarker, each data record followed by
// LineTerminator, then EndMarker and a final LineTerminator.
func Encode(lr LogicalRecord) []byte {
	var b strings.Builder
	b.WriteString(BeginMarker)
	b.WriteString(LineTerminator)
	for _, dr := range lr.DataRecords {
		b.WriteString(dr.Identifier.Full())
		b.WriteString(dr.Value)
		b.WriteString(LineTerminator)
	}
	b.WriteString(EndMarker)
	b.WriteString(LineTerminator)
	return []byte(b.String())
}

// Decoder is the WITS0 parser variant used by communicators.
type Decoder struct{}

// Parse implements the communicator parser capability.
func (Decoder) Parse(data []byte) ([]LogicalRecord, error) {
	return Parse(data)
}

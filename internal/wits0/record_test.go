package wits0

import (
	"errors"
	"testing"
)

func TestNewIdentifier(t *testing.T) {
	id, err := NewIdentifier("01", "08")
	if err != nil {
		t.Fatalf("NewIdentifier() error = %v", err)
	}
	if id.Full() != "0108" {
		t.Errorf("Full() = %q, want %q", id.Full(), "0108")
	}

	for _, bad := range [][2]string{{"1", "08"}, {"01", "008"}, {"", ""}} {
		if _, err := NewIdentifier(bad[0], bad[1]); !errors.Is(err, ErrInvalidIdentifier) {
			t.Errorf("NewIdentifier(%q, %q) error = %v, want ErrInvalidIdentifier", bad[0], bad[1], err)
		}
	}
}

func TestParseIdentifier(t *testing.T) {
	id, err := ParseIdentifier("1984")
	if err != nil {
		t.Fatalf("ParseIdentifier() error = %v", err)
	}
	if id != DeviceIdentifier {
		t.Errorf("ParseIdentifier(1984) = %+v, want %+v", id, DeviceIdentifier)
	}
	if _, err := ParseIdentifier("198"); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("ParseIdentifier(198) error = %v, want ErrInvalidIdentifier", err)
	}
}

func TestLogicalRecord_LookupAndString(t *testing.T) {
	lr := LogicalRecord{DataRecords: []DataRecord{
		{Identifier: Identifier{"01", "08"}, Value: "519.48"},
		{Identifier: Identifier{"01", "10"}, Value: "3705.81"},
	}}

	got, ok := lr.Lookup("0110")
	if !ok || got.Value != "3705.81" {
		t.Errorf("Lookup(0110) = %v, %v", got, ok)
	}
	if _, ok := lr.Lookup("9999"); ok {
		t.Error("Lookup(9999) should miss")
	}
	if _, ok := lr.Device(); ok {
		t.Error("Device() should miss without a 1984 record")
	}

	want := "Logical Record:\nDR: Id: 0108 V: 519.48\nDR: Id: 0110 V: 3705.81"
	if lr.String() != want {
		t.Errorf("String() = %q, want %q", lr.String(), want)
	}
}

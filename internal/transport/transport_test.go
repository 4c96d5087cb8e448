package transport

import (
	"errors"
	"io"
	"testing"
)

func TestWrap(t *testing.T) {
	if Wrap("read", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}

	cause := errors.New("boom")
	err := Wrap("write", cause)
	if !errors.Is(err, ErrTransport) {
		t.Errorf("errors.Is(%v, ErrTransport) = false", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("wrapped error should unwrap to its cause")
	}
	if err.Error() != "transport write: boom" {
		t.Errorf("Error() = %q", err.Error())
	}

	// already normalised errors are not double wrapped
	again := Wrap("read", err)
	if again != err {
		t.Errorf("Wrap re-wrapped a transport error: %v", again)
	}
}

func TestError_NotTransportForPlainErrors(t *testing.T) {
	if errors.Is(io.EOF, ErrTransport) {
		t.Error("plain errors must not match ErrTransport")
	}
}

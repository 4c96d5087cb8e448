package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var verbose atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose enables or disables Tracef output.
func SetVerbose(on bool) {
	verbose.Store(on)
}

// Tracef logs wire-level detail (byte counts, request payloads) through Logf
// when verbose output is enabled.
func Tracef(format string, v ...interface{}) {
	if !verbose.Load() {
		return
	}
	Logf("[trace] "+format, v...)
}

// Package monitoring holds the diagnostic logger shared by the simulator packages.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and
// can be swapped with SetLogger, e.g. to silence the pacing loop in tests.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces Logf. A nil logger mutes all output.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that tags every line with prefix and forwards to
// whatever Logf is at call time.
func Prefixed(prefix string) func(format string, v ...any) {
	return func(format string, v ...any) {
		Logf(prefix+" "+format, v...)
	}
}

// Package monitoring routes the service's diagnostic logging through a
// single swappable function.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, defaulting to log.Printf.
// Replace it with SetLogger to redirect output.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. A nil f installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// Mute silences the logger and returns a function restoring the previous
// one. Intended for tests: defer monitoring.Mute()().
func Mute() func() {
	prev := Logf
	Logf = func(string, ...any) {}
	return func() { Logf = prev }
}

// Package logging wires the structured logger used across segio's core
// packages. It mirrors the teacher's repo/logging + blob/logging wrapper
// style (leveled, structured, tolerant of an absent logger) but is built on
// go.uber.org/zap instead of the teacher's log.Printf shim.
package logging

import "go.uber.org/zap"

var defaultLogger = zap.NewNop()

// Set installs l as the package-wide default logger. Passing nil restores
// the no-op logger. Intended to be called once during process startup;
// segio itself never calls this.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	defaultLogger = l
}

// L returns the current default logger. Safe to call from any goroutine;
// callers should not retain the result across a Set call if they want to
// observe later reconfiguration.
func L() *zap.Logger {
	return defaultLogger
}

// Package logging wires the core's silent-quirk and diagnostic messages
// to a shared structured logger. Per spec, open-bus reads of write-only
// PPU ports and of CPU addresses below $4020 with no readable register
// are not errors; they are logged at debug level so a host application
// can trace them without the core treating them as faults.
package logging

import "github.com/sirupsen/logrus"

// Logger is an alias of logrus.Logger. The CPU, PPU and Bus constructors
// take one explicitly (the APU and joypads take none); none of the core
// touches a package-level global.
type Logger = logrus.Logger

// New returns a logger with the core's default formatting: text output,
// info level. Components typically receive this (or nil) at
// construction and degrade to a no-op logger if nil.
func New() *Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// OrNop returns l if non-nil, otherwise a logger discarding everything.
// Lets every component accept a possibly-nil *Logger without guarding
// every call site.
func OrNop(l *Logger) *Logger {
	if l != nil {
		return l
	}
	nop := logrus.New()
	nop.SetOutput(discard{})
	return nop
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

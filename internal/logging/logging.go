// Package logging builds the zerolog logger shared by every component.
package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const DefaultLevel = "warn"

// ValidLevel reports whether level names a zerolog level.
func ValidLevel(level string) bool {
	if level == "" {
		return false
	}
	_, err := zerolog.ParseLevel(strings.ToLower(level))
	return err == nil
}

// New returns a leveled logger. Pretty output is human readable.
func New(out io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}

	if pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

// Nop discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

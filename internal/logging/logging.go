// Package logging builds the diagnostic logger. Diagnostics go to stderr so
// that stdout carries only the export progress lines.
package logging

import (
	"io"
	"os"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// DefaultLevel keeps the console quiet unless something goes wrong.
const DefaultLevel = zerolog.WarnLevel

// New returns a console logger writing to w at level. Secrets inside
// provisioning URIs are masked before they reach w.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        NewRedactWriter(w),
		TimeFormat: time.TimeOnly,
		NoColor:    !IsTerminal(w),
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// ParseLevel accepts zerolog level names; empty means DefaultLevel.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return DefaultLevel, nil
	}
	return zerolog.ParseLevel(s)
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

var secretParam = regexp.MustCompile(`(secret=)[^&\s"]*`)

// RedactWriter masks secrets in everything written through it.
type RedactWriter struct {
	w io.Writer
}

// NewRedactWriter wraps w.
func NewRedactWriter(w io.Writer) *RedactWriter {
	return &RedactWriter{w: w}
}

// Write masks p and forwards it. It reports len(p) on success so callers
// don't treat the length change as a short write.
func (r *RedactWriter) Write(p []byte) (int, error) {
	if _, err := r.w.Write(secretParam.ReplaceAll(p, []byte("${1}***"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Package shared holds the configuration, errors, persistence setup and small helpers used by
// every ytplay command.
package shared

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger returns a [log.Logger] on w (stderr when nil) that reports timestamps and callers.
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		ReportCaller:    true,
		Level:           log.InfoLevel,
	})
}

// NewFileLogger appends to the file at path, creating parent directories as needed. The TUI logs
// here so log lines do not corrupt the terminal.
func NewFileLogger(path string) (*log.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return NewLogger(f), nil
}

// ComponentLogger derives a logger for one subsystem: its name becomes the prefix and kv are
// attached to every entry.
func ComponentLogger(l *log.Logger, name string, kv ...any) *log.Logger {
	child := l.WithPrefix(name)
	if len(kv) > 0 {
		child = child.With(kv...)
	}
	return child
}

// SetVerbose switches l between debug and info output.
func SetVerbose(l *log.Logger, verbose bool) {
	if verbose {
		l.SetLevel(log.DebugLevel)
		return
	}
	l.SetLevel(log.InfoLevel)
}

// GenerateID returns a random (v4) UUID string, used for player and event IDs.
func GenerateID() string {
	return uuid.NewString()
}

// FormatDuration renders seconds as m:ss, or h:mm:ss past the hour.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the log file created inside a run's backup directory.
const FileName = "actionpin.log"

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger appends timestamped lines to a log file so a run can be inspected
// after the console summary has scrolled away. A nil *Logger discards
// everything, which keeps it optional for callers and tests.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// New creates (or appends to) the log file at path.
func New(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	return &Logger{file: f}, nil
}

// Path returns the file backing this logger.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return l.file.Name()
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Printf writes a single INFO line.
func (l *Logger) Printf(format string, args ...any) {
	l.Logf(LevelInfo, format, args...)
}

// Warnf writes a single WARN line.
func (l *Logger) Warnf(format string, args ...any) {
	l.Logf(LevelWarn, format, args...)
}

// Errorf writes a single ERROR line.
func (l *Logger) Errorf(format string, args ...any) {
	l.Logf(LevelError, format, args...)
}

// Logf writes a single timestamped line at level.
func (l *Logger) Logf(level Level, format string, args ...any) {
	if l == nil || l.file == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	line = strings.TrimRight(line, "\n")
	timestamp := time.Now().UTC().Format(time.RFC3339)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.file, "[%s] %-5s %s\n", timestamp, string(level), line)
}

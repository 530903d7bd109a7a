// Package logging provides the file-backed leveled logger used across tiergate.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the level name used in log lines.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger writes timestamped, leveled lines to a file and an optional mirror.
// A nil *Logger and the zero value are valid no-op loggers.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	mirror io.Writer
	// mirrorLevel is the minimum level copied to mirror.
	mirrorLevel Level
}

// New creates a logger appending to logPath. An empty path disables the file.
// Parent directories are created if they don't exist.
func New(logPath string) (*Logger, error) {
	if logPath == "" {
		return &Logger{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Logger{file: f}
	l.Debug("=== tiergate log started at %s ===", time.Now().Format(time.RFC3339))
	return l, nil
}

// LogPath returns the project log file location.
func LogPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".tiergate", "logs", "tiergate.log")
}

// ForProject creates a logger in the project's .tiergate/logs directory.
// Returns a no-op logger if the file cannot be opened.
func ForProject(projectRoot string) *Logger {
	l, err := New(LogPath(projectRoot))
	if err != nil {
		return &Logger{}
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{}
}

// WithMirror copies lines at or above level to w (typically stderr).
func (l *Logger) WithMirror(w io.Writer, level Level) *Logger {
	if l == nil {
		l = &Logger{}
	}
	l.mu.Lock()
	l.mirror = w
	l.mirrorLevel = level
	l.mu.Unlock()
	return l
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, format, args...) }

// Info logs at info level.
func (l *Logger) Info(format string, args ...any) { l.log(LevelInfo, format, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...any) { l.log(LevelWarn, format, args...) }

// Error logs at error level.
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, format, args...) }

func (l *Logger) log(level Level, format string, args ...any) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil && l.mirror == nil {
		return
	}

	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %-5s %s\n", time.Now().Format("15:04:05.000"), level, msg)

	if l.file != nil {
		l.file.WriteString(line)
		l.file.Sync()
	}
	if l.mirror != nil && level >= l.mirrorLevel {
		io.WriteString(l.mirror, line)
	}
}

// Close closes the log file.
// Safe to call on a nil logger or a logger without a file.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Package logger provides the leveled console logger used across videoscan.
//
// Messages are written as "[HH:MM:SS] [LEVEL] [component] message". Output is
// serialized with a mutex so the walker's probe workers can share one logger.
// Color is enabled only when writing to a terminal (os.Stdout/os.Stderr).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level is a log severity. Higher values are more severe.
type Level int

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "TRACE"
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func (l Level) color() *color.Color {
	switch l {
	case LevelTrace:
		return color.New(color.FgHiBlack)
	case LevelDebug:
		return color.New(color.FgCyan)
	case LevelWarn:
		return color.New(color.FgYellow)
	case LevelError:
		return color.New(color.FgHiRed, color.Bold)
	default:
		return color.New(color.FgBlue)
	}
}

// ParseLevel converts a level name to a Level. Unknown or empty names map to
// LevelInfo.
func ParseLevel(name string) Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// sink is shared between a Logger and every logger derived from it with Named,
// so that all of them serialize on the same mutex.
type sink struct {
	mu       sync.Mutex
	writer   io.Writer
	level    Level
	useColor bool
	now      func() time.Time
}

// Logger writes leveled messages to a writer. A nil writer discards everything.
type Logger struct {
	sink *sink
	name string
}

// New creates a Logger writing to w at the given minimum level.
func New(w io.Writer, level Level) *Logger {
	return &Logger{
		sink: &sink{
			writer:   w,
			level:    level,
			useColor: isTerminal(w),
			now:      time.Now,
		},
	}
}

// Discard returns a Logger that drops all messages.
func Discard() *Logger {
	return New(nil, LevelError)
}

// isTerminal reports whether w is os.Stdout or os.Stderr and color output is
// not disabled (color.NoColor covers NO_COLOR and non-TTY descriptors).
func isTerminal(w io.Writer) bool {
	if w == nil {
		return false
	}
	if w == os.Stdout || w == os.Stderr {
		return !color.NoColor
	}
	return false
}

// Named returns a logger that prefixes its messages with the component name.
func (l *Logger) Named(name string) *Logger {
	if l == nil {
		return Discard().Named(name)
	}
	if l.name != "" {
		name = l.name + "." + name
	}
	return &Logger{sink: l.sink, name: name}
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	return l != nil && l.sink.writer != nil && level >= l.sink.level
}

func (l *Logger) Tracef(format string, args ...any) { l.logf(LevelTrace, format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(level Level, format string, args ...any) {
	if !l.Enabled(level) {
		return
	}

	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	label := level.String()
	if s.useColor {
		label = level.color().Sprint(label)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] ", s.now().Format("15:04:05"), label)
	if l.name != "" {
		fmt.Fprintf(&b, "[%s] ", l.name)
	}
	fmt.Fprintf(&b, format, args...)
	b.WriteByte('\n')

	_, _ = io.WriteString(s.writer, b.String())
}

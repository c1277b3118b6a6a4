package types

import (
	"io"
	"os"

	"github.com/lepinkainen/videoscan/logger"
)

// DefaultVersion is the fallback version when AppContext is nil
const DefaultVersion = "dev"

// AppContext holds application-wide context information passed to commands
type AppContext struct {
	Version string
	// Stdout receives the JSON document, Stderr progress and logs
	Stdout io.Writer
	Stderr io.Writer
	Log    *logger.Logger
}

// NewAppContext creates an AppContext writing to the process streams
func NewAppContext(version string, level logger.Level) *AppContext {
	return &AppContext{
		Version: version,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Log:     logger.New(os.Stderr, level),
	}
}

// GetVersion returns the version, or DefaultVersion for a nil context
func (a *AppContext) GetVersion() string {
	if a == nil || a.Version == "" {
		return DefaultVersion
	}
	return a.Version
}

func (a *AppContext) Out() io.Writer {
	if a == nil || a.Stdout == nil {
		return os.Stdout
	}
	return a.Stdout
}

func (a *AppContext) Err() io.Writer {
	if a == nil || a.Stderr == nil {
		return os.Stderr
	}
	return a.Stderr
}

// Logger returns the application logger, or a discarding one
func (a *AppContext) Logger() *logger.Logger {
	if a == nil || a.Log == nil {
		return logger.Discard()
	}
	return a.Log
}

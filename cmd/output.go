package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lepinkainen/videoscan/video"
)

// ExitError carries the exit status for a failure that has already been
// reported on stdout or stderr.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ErrorPayload is the document written instead of the record array when a
// scan cannot run
type ErrorPayload struct {
	Error string `json:"error"`
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// writeRecords writes records as a JSON array, "[]" when there are none
func writeRecords(w io.Writer, records []video.VideoRecord) error {
	if records == nil {
		records = []video.VideoRecord{}
	}
	return writeJSON(w, records)
}

// reportError writes the error payload and returns an ExitError with status 1
func reportError(w io.Writer, err error) error {
	if werr := writeJSON(w, ErrorPayload{Error: err.Error()}); werr != nil {
		return werr
	}
	return &ExitError{Code: 1, Err: err}
}

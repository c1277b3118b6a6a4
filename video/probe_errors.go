package video

import (
	"fmt"
	"strings"
)

// ProbeErrorKind classifies why ffprobe could not read a file
type ProbeErrorKind int

const (
	ProbeFailed ProbeErrorKind = iota
	ProbeCorrupted
	ProbeInvalid
	ProbeNoVideo
	ProbeTimeout
	ProbeToolMissing
)

func (k ProbeErrorKind) String() string {
	switch k {
	case ProbeCorrupted:
		return "corrupted"
	case ProbeInvalid:
		return "invalid"
	case ProbeNoVideo:
		return "no video stream"
	case ProbeTimeout:
		return "timeout"
	case ProbeToolMissing:
		return "ffprobe unavailable"
	default:
		return "probe failed"
	}
}

// ProbeError is returned by the probe adapters
type ProbeError struct {
	Kind ProbeErrorKind
	// Detail is the first meaningful line of ffprobe's output, if any
	Detail string
	Err    error
}

func (e *ProbeError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *ProbeError) Unwrap() error { return e.Err }

// classifyProbeFailure inspects ffprobe output for common corruption markers
func classifyProbeFailure(output string, err error) *ProbeError {
	switch {
	case strings.Contains(output, "moov atom not found"):
		return &ProbeError{Kind: ProbeCorrupted, Detail: "missing metadata (moov atom not found)", Err: err}
	case strings.Contains(output, "Invalid data found"),
		strings.Contains(output, "corrupt"),
		strings.Contains(output, "truncated"),
		strings.Contains(output, "Invalid argument"):
		return &ProbeError{Kind: ProbeInvalid, Detail: extractFirstLine(output), Err: err}
	case strings.Contains(output, "executable file not found"),
		strings.Contains(output, "no such file or directory") && strings.Contains(output, "ffprobe"):
		return &ProbeError{Kind: ProbeToolMissing, Err: err}
	}
	return &ProbeError{Kind: ProbeFailed, Err: err}
}

// extractFirstLine extracts just the first non-empty line from a multi-line string
func extractFirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return "no additional information available"
}

package video

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ScanMode controls how scan patterns affect a scan
type ScanMode int

const (
	// ScanModeAll ignores patterns for filtering and ordering
	ScanModeAll ScanMode = iota
	// ScanModePatternOnly skips files that match no pattern before probing them
	ScanModePatternOnly
	// ScanModePatternPriority probes everything and orders results by pattern priority
	ScanModePatternPriority
)

// ParseScanMode converts a command line value to a ScanMode. Unknown values
// normalize to ScanModeAll.
func ParseScanMode(s string) ScanMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pattern-only", "pattern_only":
		return ScanModePatternOnly
	case "pattern-priority", "pattern_priority":
		return ScanModePatternPriority
	default:
		return ScanModeAll
	}
}

func (m ScanMode) String() string {
	switch m {
	case ScanModePatternOnly:
		return "pattern-only"
	case ScanModePatternPriority:
		return "pattern-priority"
	default:
		return "all"
	}
}

const (
	// DefaultMaxDepth is the traversal depth used when none is configured
	DefaultMaxDepth = 5
	// DefaultProbeTimeout bounds each external ffprobe invocation
	DefaultProbeTimeout = 10 * time.Second
	// SidecarFilename is the per-directory metadata file used for title overrides
	SidecarFilename = "movie.nfo"
)

// ScanConfig describes a single scan. It is built once before the scan starts
// and never modified while the scan runs.
type ScanConfig struct {
	Root          string        `validate:"required"`
	MaxDepth      int           `validate:"gte=0"`
	IncludeHidden bool
	Extensions    []string
	Patterns      []string
	Mode          ScanMode      `validate:"gte=0,lte=2"`
	Workers       int           `validate:"gte=0"`
	ProbeTimeout  time.Duration `validate:"gt=0"`
}

// DefaultScanConfig returns a config for root with the default depth,
// extensions and probe timeout.
func DefaultScanConfig(root string) ScanConfig {
	return ScanConfig{
		Root:         root,
		MaxDepth:     DefaultMaxDepth,
		Extensions:   DefaultExtensions(),
		Mode:         ScanModeAll,
		Workers:      1,
		ProbeTimeout: DefaultProbeTimeout,
	}
}

var validate = validator.New()

// Validate checks the config's invariants and normalizes the extension list
// and scan mode in place.
func (c *ScanConfig) Validate() error {
	if c.Mode < ScanModeAll || c.Mode > ScanModePatternPriority {
		c.Mode = ScanModeAll
	}
	c.Extensions = NormalizeExtensions(c.Extensions)
	if len(c.Extensions) == 0 {
		c.Extensions = DefaultExtensions()
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid scan config: %s must satisfy %s", verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid scan config: %w", err)
	}
	return nil
}

// HasPatterns reports whether at least one scan pattern is configured
func (c ScanConfig) HasPatterns() bool {
	return len(c.Patterns) > 0
}

// Resolution is a frame size in pixels. It encodes to JSON as "WIDTHxHEIGHT".
type Resolution struct {
	Width  int
	Height int
}

func (r Resolution) String() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}

func (r Resolution) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Resolution) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if _, err := fmt.Sscanf(s, "%dx%d", &r.Width, &r.Height); err != nil {
		return fmt.Errorf("invalid resolution %q: %w", s, err)
	}
	return nil
}

// VideoRecord is the metadata emitted for one successfully probed file.
// Records are not modified after they are added to a scan result.
type VideoRecord struct {
	Name            string     `json:"name"`
	Path            string     `json:"path"`
	Resolution      Resolution `json:"resolution"`
	FrameRate       float64    `json:"frameRate"`
	Duration        float64    `json:"duration"`
	FileSizeMB      float64    `json:"fileSize"`
	Bitrate         *int64     `json:"bitrate"`
	Codec           string     `json:"codec"`
	Depth           int        `json:"depth"`
	PatternPriority *Priority  `json:"patternPriority,omitempty"`
	MatchesPattern  *bool      `json:"matchesPattern,omitempty"`
}

// Matched reports whether the record matched a configured pattern. Records
// scanned without patterns never report a match.
func (r VideoRecord) Matched() bool {
	return r.MatchesPattern != nil && *r.MatchesPattern
}

// FileError records a file that could not be turned into a VideoRecord
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// DepthStats counts what the walker saw at a single depth
type DepthStats struct {
	Directories int `json:"directories"`
	Files       int `json:"files"`
}

// Scan is the outcome of a walk: the ordered records plus the bookkeeping
// needed to report on it.
type Scan struct {
	Records []VideoRecord
	Errors  []FileError
	// Total is the pre-pass count of video files under the depth, hidden and
	// extension filters. Pattern filtering is not reflected in it.
	Total int
	// Processed counts files that produced a record
	Processed int
	// Skipped counts files dropped by the pattern filter in pattern-only mode
	Skipped int
	// Failed counts files whose primary probe failed
	Failed int
	Depths map[int]*DepthStats
}

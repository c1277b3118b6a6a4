package video

import (
	"path/filepath"
	"strings"
)

// defaultExtensions is the video suffix set used when none is configured
var defaultExtensions = []string{".mp4", ".avi", ".mkv", ".mov", ".wmv", ".flv", ".webm", ".m4v"}

// DefaultExtensions returns a copy of the default video extension set
func DefaultExtensions() []string {
	exts := make([]string, len(defaultExtensions))
	copy(exts, defaultExtensions)
	return exts
}

// NormalizeExtensions lower-cases each extension, adds a missing leading dot
// and drops blanks and duplicates. Order is preserved.
func NormalizeExtensions(exts []string) []string {
	seen := make(map[string]bool, len(exts))
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" || ext == "." {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if seen[ext] {
			continue
		}
		seen[ext] = true
		out = append(out, ext)
	}
	return out
}

// IsVideoFile reports whether the file name ends with one of the given
// extensions, ignoring case. A nil extension list uses the default set.
func IsVideoFile(name string, extensions []string) bool {
	if extensions == nil {
		extensions = defaultExtensions
	}

	lower := strings.ToLower(filepath.Base(name))
	for _, ext := range extensions {
		ext = strings.ToLower(ext)
		if ext == "" {
			continue
		}
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

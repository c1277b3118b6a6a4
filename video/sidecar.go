package video

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// titleRegex finds the first <title>...</title> value in a sidecar file
var titleRegex = regexp.MustCompile(`(?is)<title>(.*?)</title>`)

// ResolveTitle looks for the sidecar file in dir and returns its title.
// A missing, unreadable or title-less sidecar yields ok == false; read
// errors are not reported.
func ResolveTitle(dir string) (title string, ok bool) {
	data, err := os.ReadFile(filepath.Join(dir, SidecarFilename))
	if err != nil {
		return "", false
	}
	return extractTitle(string(data))
}

func extractTitle(content string) (string, bool) {
	m := titleRegex.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	title := strings.TrimSpace(m[1])
	if title == "" {
		return "", false
	}
	return title, true
}

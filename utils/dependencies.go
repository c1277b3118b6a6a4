package utils

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// DefaultFFprobe is the ffprobe binary looked up in PATH when none is configured
const DefaultFFprobe = "ffprobe"

// LocateFFprobe resolves the ffprobe binary. An empty name uses DefaultFFprobe.
func LocateFFprobe(name string) (string, error) {
	if name == "" {
		name = DefaultFFprobe
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s not found in PATH. %s", name, getInstallationInstructions())
	}
	return path, nil
}

// FFprobeVersion returns the first line of `ffprobe -version`
func FFprobeVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, "-version").Output()
	if err != nil {
		return "", fmt.Errorf("failed to run %s -version: %w", path, err)
	}

	first, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(first), nil
}

// getInstallationInstructions returns platform-specific installation instructions
func getInstallationInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install with: brew install ffmpeg"
	case "linux":
		return "Install with: apt-get install ffmpeg (Ubuntu/Debian) or dnf install ffmpeg (Fedora/RHEL)"
	case "windows":
		return "Download from https://ffmpeg.org/download.html and add ffprobe.exe to PATH"
	default:
		return "Download from https://ffmpeg.org/download.html"
	}
}

package utils

import (
	"path/filepath"
	"runtime"
	"strings"
)

// Mount prefixes that usually hold network shares
var networkPrefixes = []string{
	"/mnt/",     // Linux NFS/SMB mounts
	"/media/",   // Linux removable/network media
	"/Volumes/", // macOS network volumes
}

// Path components that name a network filesystem
var networkIndicators = map[string]bool{
	"nfs": true, "cifs": true, "smb": true, "webdav": true, "ftp": true, "sftp": true,
}

// IsNetworkDrive detects if a path is on a network-mounted drive
func IsNetworkDrive(path string) bool {
	// UNC paths are checked before filepath.Abs rewrites them
	if strings.HasPrefix(path, "//") || strings.HasPrefix(path, `\\`) {
		return true
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	slashed := filepath.ToSlash(absPath)
	for _, prefix := range networkPrefixes {
		if strings.HasPrefix(slashed, prefix) {
			return true
		}
	}

	for _, part := range strings.Split(strings.ToLower(slashed), "/") {
		if networkIndicators[part] {
			return true
		}
	}
	return false
}

// DefaultWorkers picks a probe worker count for a scan of root. Network
// shares get a single worker, local disks one per CPU.
func DefaultWorkers(root string) int {
	if IsNetworkDrive(root) {
		return 1
	}
	return runtime.NumCPU()
}

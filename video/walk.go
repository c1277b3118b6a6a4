package video

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/lepinkainen/videoscan/logger"
)

var (
	// ErrRootNotFound is returned when the scan root does not exist
	ErrRootNotFound = errors.New("scan root not found")
	// ErrRootNotDir is returned when the scan root is not a directory
	ErrRootNotDir = errors.New("scan root is not a directory")
)

// hiddenPrefix marks hidden files and directories
const hiddenPrefix = "."

func isHidden(name string) bool {
	return strings.HasPrefix(name, hiddenPrefix)
}

// traversal walks a directory tree top-down applying the depth, hidden and
// extension filters. Within a directory entries are visited by name, files
// before subdirectories.
type traversal struct {
	ctx    context.Context
	cfg    ScanConfig
	log    *logger.Logger
	onDir  func(dir string, depth int)
	onFile func(path, name, dir string, depth int)
}

func (t *traversal) run() error {
	return t.walkDir(t.cfg.Root, 0)
}

func (t *traversal) walkDir(dir string, depth int) error {
	if err := t.ctx.Err(); err != nil {
		return err
	}

	// A directory at the depth limit is neither listed nor descended into
	if depth >= t.cfg.MaxDepth {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if depth == 0 {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}
		t.log.Warnf("path=%s skipping unreadable directory: %v", dir, err)
		return nil
	}

	if t.onDir != nil {
		t.onDir(dir, depth)
	}

	var subdirs []string
	for _, entry := range entries {
		name := entry.Name()
		if !t.cfg.IncludeHidden && isHidden(name) {
			continue
		}

		path := filepath.Join(dir, name)
		isDir, isFile := classifyEntry(path, entry)
		switch {
		case isDir:
			subdirs = append(subdirs, path)
		case isFile && IsVideoFile(name, t.cfg.Extensions):
			if t.onFile != nil {
				t.onFile(path, name, dir, depth)
			}
		}
	}

	for _, sub := range subdirs {
		if err := t.walkDir(sub, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// classifyEntry resolves symlinks: linked files are eligible, linked
// directories are not descended into.
func classifyEntry(path string, entry fs.DirEntry) (isDir, isFile bool) {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir(), entry.Type().IsRegular()
	}
	fi, err := os.Stat(path)
	if err != nil {
		return false, false
	}
	return false, fi.Mode().IsRegular()
}

// checkRoot separates a missing root from one that is not a directory
func checkRoot(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return fmt.Errorf("failed to open %s: %w", root, err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrRootNotDir, root)
	}
	return nil
}

// CountVideoFiles counts the video files a scan with cfg would consider,
// applying the depth, hidden and extension filters but not the patterns.
func CountVideoFiles(ctx context.Context, cfg ScanConfig) (int, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if err := checkRoot(cfg.Root); err != nil {
		return 0, err
	}

	total := 0
	t := &traversal{
		ctx: ctx,
		cfg: cfg,
		log: logger.Discard(),
		onFile: func(string, string, string, int) {
			total++
		},
	}
	if err := t.run(); err != nil {
		return 0, err
	}
	return total, nil
}

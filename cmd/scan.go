package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/lepinkainen/videoscan/types"
	"github.com/lepinkainen/videoscan/ui"
	"github.com/lepinkainen/videoscan/utils"
	"github.com/lepinkainen/videoscan/video"
)

// ErrNoRoot is reported when scan is invoked without a directory
var ErrNoRoot = errors.New("no directory provided")

// ScanCmd walks a directory tree and prints a JSON array with the metadata of
// every video file found. Progress and logs go to stderr.
type ScanCmd struct {
	Root          string        `arg:"" optional:"" name:"root" help:"Directory to scan"`
	MaxDepth      int           `help:"Maximum directory depth to descend into" default:"5" env:"VIDEOSCAN_MAX_DEPTH"`
	IncludeHidden bool          `help:"Include hidden files and directories" env:"VIDEOSCAN_INCLUDE_HIDDEN"`
	Extensions    []string      `help:"Comma-separated video extensions (default: mp4,avi,mkv,mov,wmv,flv,webm,m4v)" sep:"," env:"VIDEOSCAN_EXTENSIONS"`
	ScanPatterns  []string      `help:"Pipe-separated glob patterns, highest priority first" sep:"|" env:"VIDEOSCAN_SCAN_PATTERNS"`
	ScanMode      string        `help:"How patterns apply: all, pattern-only or pattern-priority" default:"all" env:"VIDEOSCAN_SCAN_MODE"`
	Workers       int           `help:"Number of parallel probe workers (0 = auto)" default:"0" env:"VIDEOSCAN_WORKERS"`
	ProbeTimeout  time.Duration `help:"Timeout for each ffprobe call" default:"10s" env:"VIDEOSCAN_PROBE_TIMEOUT"`
	FFprobe       string        `name:"ffprobe" help:"ffprobe binary" default:"ffprobe" env:"VIDEOSCAN_FFPROBE"`
	Progress      string        `help:"Progress output on stderr" enum:"lines,bar,none" default:"lines" env:"VIDEOSCAN_PROGRESS"`
	Quiet         bool          `short:"q" help:"Suppress progress output" env:"VIDEOSCAN_QUIET"`
}

// newProbers builds the probe adapters for a command. Tests replace it.
var newProbers = func(ffprobe string, timeout time.Duration) (video.Prober, video.StreamProber) {
	return video.NewTranscoderProber(ffprobe, timeout), video.NewFFprobeStreamProber(ffprobe, timeout)
}

// Run executes the scan. A missing or unreadable root is reported as an
// {"error": ...} document, and an interrupted scan prints the records
// gathered so far.
func (cmd *ScanCmd) Run(ctx context.Context, appCtx *types.AppContext) error {
	out := appCtx.Out()
	log := appCtx.Logger()

	if strings.TrimSpace(cmd.Root) == "" {
		return reportError(out, ErrNoRoot)
	}

	root, err := filepath.Abs(cmd.Root)
	if err != nil {
		return reportError(out, fmt.Errorf("failed to resolve %s: %w", cmd.Root, err))
	}

	cfg := cmd.config(root)
	if cmd.Workers <= 0 && cfg.Workers == 1 && utils.IsNetworkDrive(root) {
		log.Infof("network drive detected, using 1 worker")
	}

	if _, err := utils.LocateFFprobe(cmd.FFprobe); err != nil {
		log.Warnf("%v", err)
	}

	prober, streams := newProbers(cmd.FFprobe, cmd.ProbeTimeout)
	walker := video.NewWalker(prober, streams, log)
	walker.Reporter = cmd.reporter(appCtx.Err())

	scan, err := walker.Walk(ctx, cfg)
	if err != nil {
		if scan != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			log.Warnf("scan interrupted after %d/%d files: %v", scan.Processed, scan.Total, err)
			if werr := writeRecords(out, scan.Records); werr != nil {
				return werr
			}
			return &ExitError{Code: 130, Err: err}
		}
		return reportError(out, err)
	}

	return writeRecords(out, scan.Records)
}

// config converts the flags into a ScanConfig rooted at root
func (cmd *ScanCmd) config(root string) video.ScanConfig {
	cfg := video.DefaultScanConfig(root)
	cfg.MaxDepth = cmd.MaxDepth
	cfg.IncludeHidden = cmd.IncludeHidden
	if len(cmd.Extensions) > 0 {
		cfg.Extensions = cmd.Extensions
	}
	cfg.Patterns = splitPatterns(cmd.ScanPatterns)
	cfg.Mode = video.ParseScanMode(cmd.ScanMode)
	if cmd.ProbeTimeout > 0 {
		cfg.ProbeTimeout = cmd.ProbeTimeout
	}

	cfg.Workers = cmd.Workers
	if cfg.Workers <= 0 {
		cfg.Workers = utils.DefaultWorkers(root)
	}
	return cfg
}

// splitPatterns trims patterns and drops empty ones, so "a*||b*" is two patterns
func splitPatterns(raw []string) []string {
	var patterns []string
	for _, p := range raw {
		for _, part := range strings.Split(p, "|") {
			if part = strings.TrimSpace(part); part != "" {
				patterns = append(patterns, part)
			}
		}
	}
	return patterns
}

func (cmd *ScanCmd) reporter(w io.Writer) video.ProgressReporter {
	if cmd.Quiet {
		return video.NopReporter{}
	}
	switch cmd.Progress {
	case "none":
		return video.NopReporter{}
	case "bar":
		if ui.IsTerminal(w) {
			return video.NewBarReporter(w)
		}
	}
	return video.NewLineReporter(w, true)
}

package video

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lepinkainen/videoscan/logger"
	"golang.org/x/sync/errgroup"
)

// Walker scans a directory tree and probes every eligible video file
type Walker struct {
	Prober   Prober
	Streams  StreamProber
	Reporter ProgressReporter
	Log      *logger.Logger
}

// NewWalker creates a Walker. Progress is discarded until a Reporter is set.
func NewWalker(prober Prober, streams StreamProber, log *logger.Logger) *Walker {
	return &Walker{
		Prober:   prober,
		Streams:  streams,
		Reporter: NopReporter{},
		Log:      log.Named("walker"),
	}
}

// candidate is a video file found by the processing pass
type candidate struct {
	path  string
	name  string
	depth int
	title string
}

// outcome is the per-file result of probing a candidate
type outcome struct {
	record VideoRecord
	err    error
	done   bool
}

// Walk scans cfg.Root and returns the records in discovery order, or in
// pattern priority order in pattern-priority mode. The walk only fails when
// the config is invalid or the root cannot be read; files that cannot be
// probed are reported in Scan.Errors. When ctx is cancelled no new files are
// started and the partial scan is returned together with ctx's error.
func (w *Walker) Walk(ctx context.Context, cfg ScanConfig) (*Scan, error) {
	if w.Prober == nil {
		return nil, errors.New("walker has no prober")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := checkRoot(cfg.Root); err != nil {
		return nil, err
	}

	reporter := w.Reporter
	if reporter == nil {
		reporter = NopReporter{}
	}

	total, err := CountVideoFiles(ctx, cfg)
	if err != nil {
		if isContextErr(err) {
			return &Scan{Depths: make(map[int]*DepthStats)}, err
		}
		return nil, err
	}

	scan := &Scan{Total: total, Depths: make(map[int]*DepthStats)}
	candidates, err := w.collect(ctx, cfg, scan)
	if err != nil && !isContextErr(err) {
		return nil, err
	}
	if err != nil {
		return scan, err
	}

	reporter.Start(total)
	w.Log.Debugf("root=%s total=%d candidates=%d mode=%s", cfg.Root, total, len(candidates), cfg.Mode)

	outcomes := w.probeAll(ctx, cfg, candidates, scan, reporter)

	for i, o := range outcomes {
		switch {
		case !o.done:
			continue
		case o.err != nil:
			scan.Errors = append(scan.Errors, FileError{Path: candidates[i].path, Err: o.err})
		default:
			scan.Records = append(scan.Records, o.record)
		}
	}

	SortByPriority(scan.Records, cfg.Mode, cfg.Patterns)

	reporter.Finish(scan)
	w.logDepthStats(scan)

	if err := ctx.Err(); err != nil {
		return scan, err
	}
	return scan, nil
}

// collect runs the processing pass. It applies the pattern filter in
// pattern-only mode and resolves sidecar titles once per directory.
func (w *Walker) collect(ctx context.Context, cfg ScanConfig, scan *Scan) ([]candidate, error) {
	var candidates []candidate
	titles := make(map[string]string)

	t := &traversal{
		ctx: ctx,
		cfg: cfg,
		log: w.Log,
		onDir: func(_ string, depth int) {
			scan.depth(depth).Directories++
		},
		onFile: func(path, name, dir string, depth int) {
			scan.depth(depth).Files++

			if cfg.Mode == ScanModePatternOnly && !MatchesAny(name, cfg.Patterns) {
				scan.Skipped++
				w.Log.Debugf("path=%s skipped: no pattern match", path)
				return
			}

			title, seen := titles[dir]
			if !seen {
				title, _ = ResolveTitle(dir)
				titles[dir] = title
			}

			candidates = append(candidates, candidate{path: path, name: name, depth: depth, title: title})
		},
	}

	err := t.run()
	return candidates, err
}

// probeAll probes candidates on a bounded pool. Outcomes keep candidate order
// so the merged result does not depend on completion order.
func (w *Walker) probeAll(ctx context.Context, cfg ScanConfig, candidates []candidate, scan *Scan, reporter ProgressReporter) []outcome {
	outcomes := make([]outcome, len(candidates))

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(workers)

	for i, c := range candidates {
		i, c := i, c
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			rec, err := w.processFile(ctx, cfg, c)
			outcomes[i] = outcome{record: rec, err: err, done: true}

			if err != nil {
				w.Log.Errorf("path=%s err=%v", c.path, err)
				mu.Lock()
				scan.Failed++
				mu.Unlock()
				return nil
			}

			mu.Lock()
			scan.Processed++
			reporter.Advance(scan.Processed, scan.Total, rec)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// ProbeFile probes a single file outside of a walk. The record has depth 0,
// no pattern fields and the sidecar title of the file's directory, if any.
func (w *Walker) ProbeFile(ctx context.Context, path string) (VideoRecord, error) {
	if w.Prober == nil {
		return VideoRecord{}, errors.New("walker has no prober")
	}
	dir := filepath.Dir(path)
	title, _ := ResolveTitle(dir)
	c := candidate{path: path, name: filepath.Base(path), title: title}
	return w.processFile(ctx, DefaultScanConfig(dir), c)
}

// processFile probes a single file and builds its record
func (w *Walker) processFile(ctx context.Context, cfg ScanConfig, c candidate) (VideoRecord, error) {
	props, err := w.Prober.Probe(ctx, c.path)
	if err != nil {
		return VideoRecord{}, err
	}

	details := ResolveStreamDetails(ctx, w.Streams, c.path, props)
	for _, fallback := range details.Fallbacks {
		w.Log.Infof("path=%s using fallback: %v", c.path, fallback)
	}

	rec := VideoRecord{
		Name:       c.name,
		Path:       c.path,
		Resolution: Resolution{Width: props.Width, Height: props.Height},
		FrameRate:  round2(props.FrameRate),
		Duration:   round2(props.Duration()),
		FileSizeMB: round2(float64(props.SizeBytes) / (1024 * 1024)),
		Bitrate:    details.Bitrate,
		Codec:      details.Codec,
		Depth:      c.depth,
	}

	if cfg.HasPatterns() {
		priority := PriorityOf(c.name, cfg.Patterns)
		matched := MatchesAny(c.name, cfg.Patterns)
		rec.PatternPriority = &priority
		rec.MatchesPattern = &matched
	}

	if c.title != "" {
		rec.Name = c.title
	}

	return rec, nil
}

func (w *Walker) logDepthStats(scan *Scan) {
	if !w.Log.Enabled(logger.LevelDebug) {
		return
	}
	depths := make([]int, 0, len(scan.Depths))
	for d := range scan.Depths {
		depths = append(depths, d)
	}
	sort.Ints(depths)
	for _, d := range depths {
		s := scan.Depths[d]
		w.Log.Debugf("depth=%d directories=%d files=%d", d, s.Directories, s.Files)
	}
}

func (s *Scan) depth(d int) *DepthStats {
	stats, ok := s.Depths[d]
	if !ok {
		stats = &DepthStats{}
		s.Depths[d] = stats
	}
	return stats
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

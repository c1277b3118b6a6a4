package video

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lepinkainen/videoscan/logger"
)

var testProps = Properties{
	Width:      1920,
	Height:     1080,
	FrameRate:  25,
	FrameCount: 250,
	SizeBytes:  10 * 1024 * 1024,
}

type fakeProber struct {
	mu    sync.Mutex
	fail  map[string]error
	delay map[string]time.Duration
	calls []string
}

func (f *fakeProber) Probe(ctx context.Context, path string) (Properties, error) {
	name := filepath.Base(path)

	f.mu.Lock()
	f.calls = append(f.calls, name)
	err := f.fail[name]
	delay := f.delay[name]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return Properties{}, err
	}
	return testProps, nil
}

func (f *fakeProber) probed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeStreams struct {
	bitrate    int64
	codec      string
	bitrateErr error
	codecErr   error
}

func (f *fakeStreams) Bitrate(context.Context, string) (int64, error) {
	return f.bitrate, f.bitrateErr
}

func (f *fakeStreams) Codec(context.Context, string) (string, error) {
	return f.codec, f.codecErr
}

type recordingReporter struct {
	started   int
	processed []int
	totals    []int
	finished  bool
}

func (r *recordingReporter) Start(total int) { r.started = total }

func (r *recordingReporter) Advance(processed, total int, _ VideoRecord) {
	r.processed = append(r.processed, processed)
	r.totals = append(r.totals, total)
}

func (r *recordingReporter) Finish(*Scan) { r.finished = true }

// writeTree creates the given slash-separated files below root
func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("fake video content"), 0o644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
}

func newTestWalker(p Prober) *Walker {
	return NewWalker(p, &fakeStreams{bitrate: 5_000_000, codec: "h264"}, logger.Discard())
}

func testConfig(root string) ScanConfig {
	cfg := DefaultScanConfig(root)
	cfg.ProbeTimeout = time.Second
	return cfg
}

func recordNames(records []VideoRecord) []string {
	names := make([]string, len(records))
	for i, r := range records {
		names[i] = r.Name
	}
	return names
}

// mustWalk runs a walk that is expected to succeed
func mustWalk(t *testing.T, w *Walker, cfg ScanConfig) *Scan {
	t.Helper()
	scan, err := w.Walk(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	return scan
}

func expectNames(t *testing.T, records []VideoRecord, expected []string) {
	t.Helper()
	if got := recordNames(records); !reflect.DeepEqual(got, expected) {
		t.Errorf("records = %v, expected %v", got, expected)
	}
}

func TestWalk_PatternPriorityScenario(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "b.mkv")

	cfg := testConfig(root)
	cfg.Patterns = []string{"a*"}
	cfg.Mode = ScanModePatternPriority

	scan := mustWalk(t, newTestWalker(&fakeProber{}), cfg)
	if len(scan.Records) != 2 {
		t.Fatalf("got %d records, expected 2", len(scan.Records))
	}

	a, b := scan.Records[0], scan.Records[1]
	if a.Name != "a.mp4" || a.PatternPriority == nil || *a.PatternPriority != PriorityAt(0) || !a.Matched() {
		t.Errorf("first record = %+v, expected a.mp4 with priority 0 and a match", a)
	}
	if b.Name != "b.mkv" || b.PatternPriority == nil || *b.PatternPriority != Unmatched || b.Matched() {
		t.Errorf("second record = %+v, expected unmatched b.mkv", b)
	}
}

func TestWalk_PatternPriorityReordersDiscovery(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "m.mp4", "x.mp4")

	cfg := testConfig(root)
	cfg.Patterns = []string{"m*", "x*"}
	cfg.Mode = ScanModePatternPriority

	scan := mustWalk(t, newTestWalker(&fakeProber{}), cfg)
	expectNames(t, scan.Records, []string{"m.mp4", "x.mp4", "a.mp4"})
}

func TestWalk_AllModeKeepsDiscoveryOrderWithPatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "m.mp4", "sub/c.mp4", "x.mp4")

	cfg := testConfig(root)
	cfg.Patterns = []string{"x*"}

	scan := mustWalk(t, newTestWalker(&fakeProber{}), cfg)

	// Files of a directory come before its subdirectories
	expectNames(t, scan.Records, []string{"a.mp4", "m.mp4", "x.mp4", "c.mp4"})
	for _, r := range scan.Records {
		if r.PatternPriority == nil || r.MatchesPattern == nil {
			t.Errorf("%s: pattern fields should be set when patterns are configured", r.Name)
		}
	}
	if len(scan.Records) == 4 && !scan.Records[2].Matched() {
		t.Error("x.mp4 should match x*")
	}
}

func TestWalk_NoPatternsOmitsPatternFields(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4")

	scan := mustWalk(t, newTestWalker(&fakeProber{}), testConfig(root))
	if len(scan.Records) != 1 {
		t.Fatalf("got %d records, expected 1", len(scan.Records))
	}
	rec := scan.Records[0]
	if rec.PatternPriority != nil || rec.MatchesPattern != nil {
		t.Errorf("pattern fields = %v, %v, expected nil", rec.PatternPriority, rec.MatchesPattern)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "patternPriority") || strings.Contains(string(data), "matchesPattern") {
		t.Errorf("Marshal() = %s, pattern fields should be omitted", data)
	}
}

func TestWalk_DepthBoundary(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"root.mp4",
		"l1/l2/l3/l4/depth4.mp4",
		"l1/l2/l3/l4/l5/depth5.mp4",
		"l1/l2/l3/l4/l5/l6/depth6.mp4",
	)

	p := &fakeProber{}
	scan := mustWalk(t, newTestWalker(p), testConfig(root))

	expectNames(t, scan.Records, []string{"root.mp4", "depth4.mp4"})
	if len(scan.Records) == 2 && (scan.Records[0].Depth != 0 || scan.Records[1].Depth != 4) {
		t.Errorf("depths = %d, %d, expected 0, 4", scan.Records[0].Depth, scan.Records[1].Depth)
	}
	if scan.Total != 2 {
		t.Errorf("Total = %d, expected 2", scan.Total)
	}
	probed := p.probed()
	if slices.Contains(probed, "depth5.mp4") || slices.Contains(probed, "depth6.mp4") {
		t.Errorf("probed %v, files at or beyond the depth limit must not be probed", probed)
	}
	if _, deeper := scan.Depths[5]; deeper {
		t.Error("no directory at the depth limit should be listed")
	}
}

func TestWalk_MaxDepthZero(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "sub/b.mp4")

	cfg := testConfig(root)
	cfg.MaxDepth = 0

	scan := mustWalk(t, newTestWalker(&fakeProber{}), cfg)
	if len(scan.Records) != 0 || scan.Total != 0 {
		t.Errorf("got %d records (total %d), expected none", len(scan.Records), scan.Total)
	}
}

func TestWalk_HiddenFiltering(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "visible.mp4", ".hidden.mp4", ".cache/inner.mp4", "sub/.dot/deep.mp4", "sub/ok.mkv")

	scan := mustWalk(t, newTestWalker(&fakeProber{}), testConfig(root))
	expectNames(t, scan.Records, []string{"visible.mp4", "ok.mkv"})
	for _, r := range scan.Records {
		rel, err := filepath.Rel(root, r.Path)
		if err != nil {
			t.Fatalf("Rel() error = %v", err)
		}
		for _, part := range strings.Split(rel, string(filepath.Separator)) {
			if strings.HasPrefix(part, ".") {
				t.Errorf("%s has a hidden path component", r.Path)
			}
		}
	}

	cfg := testConfig(root)
	cfg.IncludeHidden = true
	scan = mustWalk(t, newTestWalker(&fakeProber{}), cfg)

	got := recordNames(scan.Records)
	slices.Sort(got)
	expected := []string{".hidden.mp4", "deep.mp4", "inner.mp4", "ok.mkv", "visible.mp4"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("records = %v, expected %v", got, expected)
	}
}

func TestWalk_ExtensionFiltering(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "LOUD.MP4", "notes.txt", "clip.ts", "noext")

	scan := mustWalk(t, newTestWalker(&fakeProber{}), testConfig(root))
	expectNames(t, scan.Records, []string{"LOUD.MP4"})

	cfg := testConfig(root)
	cfg.Extensions = []string{"TS"}
	scan = mustWalk(t, newTestWalker(&fakeProber{}), cfg)
	expectNames(t, scan.Records, []string{"clip.ts"})
}

func TestWalk_SidecarTitle(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "show/original.mp4", "plain.mp4")
	sidecar := filepath.Join(root, "show", SidecarFilename)
	if err := os.WriteFile(sidecar, []byte("<movie><title>Custom</title></movie>"), 0o644); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}

	scan := mustWalk(t, newTestWalker(&fakeProber{}), testConfig(root))
	expectNames(t, scan.Records, []string{"plain.mp4", "Custom"})
	if len(scan.Records) == 2 && scan.Records[1].Path != filepath.Join(root, "show", "original.mp4") {
		t.Errorf("Path = %q, the title must not change the path", scan.Records[1].Path)
	}
}

func TestWalk_ProbeFailureIsolated(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "one.mp4", "two.mp4", "three.mp4")

	p := &fakeProber{fail: map[string]error{"two.mp4": errors.New("cannot open container")}}
	scan := mustWalk(t, newTestWalker(p), testConfig(root))

	if len(scan.Records) != 2 {
		t.Errorf("got %d records, expected 2", len(scan.Records))
	}
	if len(scan.Errors) != 1 {
		t.Fatalf("got %d errors, expected 1", len(scan.Errors))
	}
	if scan.Errors[0].Path != filepath.Join(root, "two.mp4") {
		t.Errorf("error path = %q", scan.Errors[0].Path)
	}
	if !strings.Contains(scan.Errors[0].Error(), "cannot open container") {
		t.Errorf("error = %v", scan.Errors[0])
	}
	if scan.Total != 3 || scan.Processed != 2 || scan.Failed != 1 {
		t.Errorf("Total/Processed/Failed = %d/%d/%d, expected 3/2/1", scan.Total, scan.Processed, scan.Failed)
	}
}

func TestWalk_ProbeFailureLogged(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "bad.mp4")

	var buf strings.Builder
	w := NewWalker(&fakeProber{fail: map[string]error{"bad.mp4": errors.New("boom")}},
		&fakeStreams{}, logger.New(&buf, logger.LevelInfo))

	mustWalk(t, w, testConfig(root))
	out := buf.String()
	if !strings.Contains(out, "path="+filepath.Join(root, "bad.mp4")) || !strings.Contains(out, "boom") {
		t.Errorf("log = %q, expected the failed path and error", out)
	}
}

func TestWalk_PatternOnlySkipsWithoutProbing(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "keep_1.mp4", "drop.mp4", "sub/keep_2.mkv")

	cfg := testConfig(root)
	cfg.Patterns = []string{"KEEP_*"}
	cfg.Mode = ScanModePatternOnly

	p := &fakeProber{}
	rep := &recordingReporter{}
	w := newTestWalker(p)
	w.Reporter = rep

	scan := mustWalk(t, w, cfg)

	expectNames(t, scan.Records, []string{"keep_1.mp4", "keep_2.mkv"})
	if slices.Contains(p.probed(), "drop.mp4") {
		t.Error("drop.mp4 should not be probed")
	}
	if scan.Skipped != 1 {
		t.Errorf("Skipped = %d, expected 1", scan.Skipped)
	}

	// The denominator is the unfiltered pre-pass count
	if rep.started != 3 {
		t.Errorf("Start() total = %d, expected 3", rep.started)
	}
	if !reflect.DeepEqual(rep.processed, []int{1, 2}) || !reflect.DeepEqual(rep.totals, []int{3, 3}) {
		t.Errorf("Advance() calls = %v/%v, expected [1 2]/[3 3]", rep.processed, rep.totals)
	}
	if !rep.finished {
		t.Error("Finish() was not called")
	}
}

func TestWalk_PatternOnlyWithoutPatternsKeepsAll(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "b.mp4")

	cfg := testConfig(root)
	cfg.Mode = ScanModePatternOnly

	scan := mustWalk(t, newTestWalker(&fakeProber{}), cfg)
	if len(scan.Records) != 2 {
		t.Errorf("got %d records, expected 2", len(scan.Records))
	}
}

func TestWalk_RecordFields(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "sub/clip.mp4")

	scan := mustWalk(t, newTestWalker(&fakeProber{}), testConfig(root))
	if len(scan.Records) != 1 {
		t.Fatalf("got %d records, expected 1", len(scan.Records))
	}

	r := scan.Records[0]
	if r.Resolution != (Resolution{Width: 1920, Height: 1080}) {
		t.Errorf("Resolution = %v", r.Resolution)
	}
	if r.FrameRate != 25 || r.Duration != 10 || r.FileSizeMB != 10 {
		t.Errorf("FrameRate/Duration/FileSizeMB = %v/%v/%v, expected 25/10/10", r.FrameRate, r.Duration, r.FileSizeMB)
	}
	if r.Bitrate == nil || *r.Bitrate != 5_000_000 {
		t.Errorf("Bitrate = %v, expected 5000000", r.Bitrate)
	}
	if r.Codec != "H.264" {
		t.Errorf("Codec = %q, expected H.264", r.Codec)
	}
	if r.Depth != 1 {
		t.Errorf("Depth = %d, expected 1", r.Depth)
	}
}

func TestWalk_StreamProbeFallback(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "movie.webm")

	w := NewWalker(&fakeProber{}, &fakeStreams{
		bitrateErr: errors.New("timeout"),
		codecErr:   errors.New("timeout"),
	}, logger.Discard())

	scan := mustWalk(t, w, testConfig(root))
	if len(scan.Records) != 1 || len(scan.Errors) != 0 {
		t.Fatalf("got %d records and %d errors, expected 1 and 0", len(scan.Records), len(scan.Errors))
	}

	r := scan.Records[0]
	if r.Codec != "VP8/VP9" {
		t.Errorf("Codec = %q, expected VP8/VP9", r.Codec)
	}
	if r.Bitrate == nil || *r.Bitrate != 8_388_608 {
		t.Errorf("Bitrate = %v, expected 8388608", r.Bitrate)
	}
}

func TestWalk_ParallelKeepsDiscoveryOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "b.mp4", "c.mp4", "d/e.mp4", "d/f.mp4")

	p := &fakeProber{delay: map[string]time.Duration{
		"a.mp4": 40 * time.Millisecond,
		"b.mp4": 20 * time.Millisecond,
	}}
	rep := &recordingReporter{}
	w := newTestWalker(p)
	w.Reporter = rep

	cfg := testConfig(root)
	cfg.Workers = 4

	scan := mustWalk(t, w, cfg)
	expectNames(t, scan.Records, []string{"a.mp4", "b.mp4", "c.mp4", "e.mp4", "f.mp4"})
	if !reflect.DeepEqual(rep.processed, []int{1, 2, 3, 4, 5}) {
		t.Errorf("processed counts = %v, expected 1..5", rep.processed)
	}
}

func TestWalk_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "x/b.mkv", "x/y/c.avi")

	cfg := testConfig(root)
	cfg.Workers = 3
	first := mustWalk(t, newTestWalker(&fakeProber{}), cfg)
	second := mustWalk(t, newTestWalker(&fakeProber{}), cfg)

	if !reflect.DeepEqual(first.Records, second.Records) {
		t.Errorf("second walk = %+v, expected %+v", second.Records, first.Records)
	}
}

func TestWalk_RootErrors(t *testing.T) {
	w := newTestWalker(&fakeProber{})

	_, err := w.Walk(context.Background(), testConfig(filepath.Join(t.TempDir(), "missing")))
	if !errors.Is(err, ErrRootNotFound) {
		t.Errorf("Walk() error = %v, expected ErrRootNotFound", err)
	}

	file := filepath.Join(t.TempDir(), "file.mp4")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
	_, err = w.Walk(context.Background(), testConfig(file))
	if !errors.Is(err, ErrRootNotDir) {
		t.Errorf("Walk() error = %v, expected ErrRootNotDir", err)
	}
}

func TestWalk_InvalidConfig(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.MaxDepth = -1

	_, err := newTestWalker(&fakeProber{}).Walk(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "MaxDepth") {
		t.Errorf("Walk() error = %v, expected a MaxDepth validation error", err)
	}
}

func TestWalk_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProber{}
	scan, err := newTestWalker(p).Walk(ctx, testConfig(root))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() error = %v, expected context.Canceled", err)
	}
	if scan == nil {
		t.Fatal("Walk() returned no scan, expected an empty partial result")
	}
	if len(scan.Records) != 0 || len(p.probed()) != 0 {
		t.Errorf("got %d records after %d probes, expected none", len(scan.Records), len(p.probed()))
	}
}

func TestWalk_EmptyTree(t *testing.T) {
	scan := mustWalk(t, newTestWalker(&fakeProber{}), testConfig(t.TempDir()))
	if len(scan.Records) != 0 || len(scan.Errors) != 0 || scan.Total != 0 {
		t.Errorf("scan = %+v, expected an empty result", scan)
	}
}

func TestWalk_DepthStats(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "b.txt", "one/c.mp4", "one/d.mp4", "two/three/e.mkv")

	scan := mustWalk(t, newTestWalker(&fakeProber{}), testConfig(root))

	expected := map[int]DepthStats{
		0: {Directories: 1, Files: 1},
		1: {Directories: 2, Files: 2},
		2: {Directories: 1, Files: 1},
	}
	for depth, want := range expected {
		got := scan.Depths[depth]
		if got == nil || *got != want {
			t.Errorf("Depths[%d] = %v, expected %+v", depth, got, want)
		}
	}
}

func TestCountVideoFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.mp4", "b.txt", ".c.mp4", "d/e.mov", "d/f/g/h/i/j.mp4")

	total, err := CountVideoFiles(context.Background(), testConfig(root))
	if err != nil {
		t.Fatalf("CountVideoFiles() error = %v", err)
	}
	if total != 2 {
		t.Errorf("CountVideoFiles() = %d, expected 2", total)
	}
}

func TestWalk_SymlinkedFile(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, outside, "real.mp4", "dir/inner.mp4")

	if err := os.Symlink(filepath.Join(outside, "real.mp4"), filepath.Join(root, "link.mp4")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "linkdir")); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	scan := mustWalk(t, newTestWalker(&fakeProber{}), testConfig(root))
	expectNames(t, scan.Records, []string{"link.mp4"})
}

func TestWalker_ProbeFile(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "film.mkv", "bad.mkv")
	if err := os.WriteFile(filepath.Join(root, SidecarFilename), []byte("<title> Director's Cut </title>"), 0o644); err != nil {
		t.Fatalf("Failed to write sidecar: %v", err)
	}

	prober := &fakeProber{fail: map[string]error{"bad.mkv": errors.New("invalid data")}}
	w := newTestWalker(prober)

	rec, err := w.ProbeFile(context.Background(), filepath.Join(root, "film.mkv"))
	if err != nil {
		t.Fatalf("ProbeFile() error = %v", err)
	}
	if rec.Name != "Director's Cut" {
		t.Errorf("Name = %q, expected the sidecar title", rec.Name)
	}
	if rec.Path != filepath.Join(root, "film.mkv") || rec.Depth != 0 {
		t.Errorf("Path/Depth = %q/%d", rec.Path, rec.Depth)
	}
	if rec.PatternPriority != nil {
		t.Error("PatternPriority should be nil outside a pattern scan")
	}
	if rec.Codec != "H.264" {
		t.Errorf("Codec = %q, expected H.264", rec.Codec)
	}

	if _, err := w.ProbeFile(context.Background(), filepath.Join(root, "bad.mkv")); err == nil {
		t.Error("ProbeFile() expected error for a file the prober rejects")
	}
	if _, err := (&Walker{}).ProbeFile(context.Background(), filepath.Join(root, "film.mkv")); err == nil {
		t.Error("ProbeFile() expected error without a prober")
	}
}

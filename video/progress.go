package video

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/lepinkainen/videoscan/ui"
	"github.com/schollz/progressbar/v3"
)

// ProgressReporter receives scan progress. The walker calls Advance with a
// monotonically increasing processed count and never concurrently.
type ProgressReporter interface {
	Start(total int)
	Advance(processed, total int, rec VideoRecord)
	Finish(scan *Scan)
}

// NopReporter discards progress
type NopReporter struct{}

func (NopReporter) Start(int)                     {}
func (NopReporter) Advance(int, int, VideoRecord) {}
func (NopReporter) Finish(*Scan)                  {}

// LineReporter prints a "Progress: n/total" line and a detail block per file.
// When the writer is a terminal a progress bar follows the counter.
type LineReporter struct {
	mu      sync.Mutex
	w       io.Writer
	details bool
	bar     *progress.Model
}

// NewLineReporter creates a LineReporter. With details false only the
// counter lines are written.
func NewLineReporter(w io.Writer, details bool) *LineReporter {
	r := &LineReporter{w: w, details: details}
	if ui.IsTerminal(w) {
		bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30))
		r.bar = &bar
	}
	return r
}

func (r *LineReporter) Start(total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.w, ui.ProcessingStyle.Render(fmt.Sprintf("Scanning %d video files", total)))
}

func (r *LineReporter) Advance(processed, total int, rec VideoRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := ui.RenderProgress(processed, total)
	if r.bar != nil && total > 0 {
		pct := float64(processed) / float64(total)
		if pct > 1 {
			pct = 1
		}
		line += " " + r.bar.ViewAs(pct)
	}
	fmt.Fprintln(r.w, line)

	if r.details {
		fmt.Fprint(r.w, ui.RenderFileDetail(ui.FileDetail{
			Name:       rec.Name,
			Depth:      rec.Depth,
			Resolution: rec.Resolution.String(),
			FrameRate:  rec.FrameRate,
			Codec:      rec.Codec,
		}))
	}
}

func (r *LineReporter) Finish(scan *Scan) {
	r.mu.Lock()
	defer r.mu.Unlock()

	summary := fmt.Sprintf("✅ Scan complete: %d/%d processed", scan.Processed, scan.Total)
	if scan.Skipped > 0 {
		summary += fmt.Sprintf(", %d skipped by pattern", scan.Skipped)
	}
	if len(scan.Errors) > 0 {
		summary += fmt.Sprintf(", %d failed", len(scan.Errors))
		fmt.Fprintln(r.w, ui.ErrorStyle.Render(summary))
		return
	}
	fmt.Fprintln(r.w, ui.SuccessStyle.Render(summary))
}

// BarReporter renders a single updating progress bar
type BarReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

// NewBarReporter creates a BarReporter writing to w
func NewBarReporter(w io.Writer) *BarReporter {
	return &BarReporter{w: w}
}

func (r *BarReporter) Start(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.w),
		progressbar.OptionSetDescription("Scanning"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
	)
}

func (r *BarReporter) Advance(_, _ int, rec VideoRecord) {
	if r.bar == nil {
		return
	}
	r.bar.Describe(rec.Name)
	_ = r.bar.Add(1)
}

func (r *BarReporter) Finish(scan *Scan) {
	if r.bar != nil {
		_ = r.bar.Clear()
	}
	fmt.Fprintf(r.w, "Scanned %d/%d files (%d failed)\n", scan.Processed, scan.Total, len(scan.Errors))
}

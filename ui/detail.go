package ui

import (
	"fmt"
	"strings"
)

// Separator closes each per-file detail block
var Separator = strings.Repeat("-", 40)

// FileDetail is the subset of a scanned file shown in the progress output
type FileDetail struct {
	Name       string
	Depth      int
	Resolution string
	FrameRate  float64
	Codec      string
}

// RenderFileDetail formats the block printed after each processed file
func RenderFileDetail(d FileDetail) string {
	var b strings.Builder
	b.WriteString(ProcessingStyle.Render(fmt.Sprintf("Processing file: %s (depth: %d)", d.Name, d.Depth)))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "  %s %s\n", LabelStyle.Render("Resolution:"), d.Resolution)
	fmt.Fprintf(&b, "  %s %.2f\n", LabelStyle.Render("Frame rate:"), d.FrameRate)
	if d.Codec != "" {
		fmt.Fprintf(&b, "  %s %s\n", LabelStyle.Render("Codec:"), d.Codec)
	}
	b.WriteString(Separator)
	b.WriteByte('\n')
	return b.String()
}

// RenderProgress formats the processed/total counter line
func RenderProgress(processed, total int) string {
	return InfoStyle.Render(fmt.Sprintf("Progress: %d/%d", processed, total))
}

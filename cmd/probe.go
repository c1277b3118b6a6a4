package cmd

import (
	"context"
	"time"

	"github.com/lepinkainen/videoscan/types"
	"github.com/lepinkainen/videoscan/video"
)

// ProbeCmd prints the metadata of individual video files without walking a tree.
type ProbeCmd struct {
	Files        []string      `arg:"" name:"files" help:"Video files to probe" type:"existingfile"`
	ProbeTimeout time.Duration `help:"Timeout for each ffprobe call" default:"10s" env:"VIDEOSCAN_PROBE_TIMEOUT"`
	FFprobe      string        `name:"ffprobe" help:"ffprobe binary" default:"ffprobe" env:"VIDEOSCAN_FFPROBE"`
}

// Run probes each file and prints the records of the ones that could be read.
// Files that fail are logged and left out.
func (cmd *ProbeCmd) Run(ctx context.Context, appCtx *types.AppContext) error {
	log := appCtx.Logger()

	prober, streams := newProbers(cmd.FFprobe, cmd.ProbeTimeout)
	walker := video.NewWalker(prober, streams, log)

	records := make([]video.VideoRecord, 0, len(cmd.Files))
	for _, file := range cmd.Files {
		if err := ctx.Err(); err != nil {
			break
		}
		if !video.IsVideoFile(file, nil) {
			log.Warnf("path=%s is not a video file, probing anyway", file)
		}

		rec, err := walker.ProbeFile(ctx, file)
		if err != nil {
			log.Errorf("path=%s err=%v", file, err)
			continue
		}
		records = append(records, rec)
	}

	if err := writeRecords(appCtx.Out(), records); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &ExitError{Code: 130, Err: err}
	}
	return nil
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/lepinkainen/videoscan/types"
	"github.com/lepinkainen/videoscan/ui"
	"github.com/lepinkainen/videoscan/utils"
)

// DoctorCmd checks the environment a scan depends on: ffprobe availability
// and the worker count a scan of Dir would use.
type DoctorCmd struct {
	Dir     string `arg:"" optional:"" name:"dir" help:"Directory to check the worker default for" default:"."`
	FFprobe string `name:"ffprobe" help:"ffprobe binary" default:"ffprobe" env:"VIDEOSCAN_FFPROBE"`
}

var errDoctorFailed = errors.New("environment check failed")

// Run prints the environment report and fails when ffprobe cannot be run.
func (cmd *DoctorCmd) Run(ctx context.Context, appCtx *types.AppContext) error {
	out := appCtx.Out()

	fmt.Fprintln(out, ui.HeaderStyle.Render(fmt.Sprintf("videoscan %s", appCtx.GetVersion())))
	fmt.Fprintf(out, "%s %s/%s, %d CPUs\n", ui.LabelStyle.Render("Platform:"), runtime.GOOS, runtime.GOARCH, runtime.NumCPU())

	dir, err := filepath.Abs(cmd.Dir)
	if err == nil {
		fmt.Fprintf(out, "%s %d for %s", ui.LabelStyle.Render("Default workers:"), utils.DefaultWorkers(dir), dir)
		if utils.IsNetworkDrive(dir) {
			fmt.Fprint(out, " (network drive)")
		}
		fmt.Fprintln(out)
	}

	path, err := utils.LocateFFprobe(cmd.FFprobe)
	if err != nil {
		fmt.Fprintln(out, ui.ErrorStyle.Render(fmt.Sprintf("❌ %v", err)))
		return &ExitError{Code: 1, Err: errDoctorFailed}
	}

	version, err := utils.FFprobeVersion(ctx, path)
	if err != nil {
		fmt.Fprintln(out, ui.ErrorStyle.Render(fmt.Sprintf("❌ %s is not usable: %v", path, err)))
		return &ExitError{Code: 1, Err: errDoctorFailed}
	}

	fmt.Fprintln(out, ui.SuccessStyle.Render(fmt.Sprintf("✅ ffprobe: %s", path)))
	fmt.Fprintf(out, "   %s\n", version)
	return nil
}

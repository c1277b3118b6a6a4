package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/videoscan/cmd"
	"github.com/lepinkainen/videoscan/logger"
	"github.com/lepinkainen/videoscan/types"
)

var Version = "dev"

// Configuration files read in order, later files override earlier ones
var defaultConfigPaths = []string{
	"~/.config/videoscan/config.json",
	"./videoscan.json",
}

type CLI struct {
	LogLevel    string           `help:"Log level (trace, debug, info, warn, error)" default:"info" env:"VIDEOSCAN_LOG_LEVEL"`
	VersionFlag kong.VersionFlag `name:"version" help:"Print version and exit"`

	Scan   cmd.ScanCmd   `cmd:"" default:"withargs" help:"Scan a directory tree and print video metadata as JSON"`
	Probe  cmd.ProbeCmd  `cmd:"" help:"Probe individual video files"`
	Doctor cmd.DoctorCmd `cmd:"" help:"Check that ffprobe is installed and usable"`
}

func newParser(cli *CLI, configPaths ...string) (*kong.Kong, error) {
	return kong.New(cli,
		kong.Name("videoscan"),
		kong.Description("Inventory video files under a directory tree."),
		kong.UsageOnError(),
		kong.Configuration(kong.JSON, configPaths...),
		kong.Vars{"version": Version},
	)
}

// exitCode maps a command error to a process exit status. Errors that were
// not already reported return false.
func exitCode(err error) (int, bool) {
	if err == nil {
		return 0, true
	}
	var exitErr *cmd.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 1, false
}

func main() {
	var cli CLI
	parser, err := newParser(&cli, defaultConfigPaths...)
	if err != nil {
		panic(err)
	}
	kctx, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	appCtx := types.NewAppContext(Version, logger.ParseLevel(cli.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	kctx.BindTo(ctx, (*context.Context)(nil))
	err = kctx.Run(appCtx)
	stop()

	code, reported := exitCode(err)
	if !reported {
		kctx.FatalIfErrorf(err)
	}
	os.Exit(code)
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/lqx/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{ConfigPath: "config.toml", Logger: logger})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newApp(runner).Run(ctx, os.Args)
	switch {
	case err == nil:
	case errors.Is(err, shared.ErrNotConfirmed):
		logger.Warn("nothing applied")
	default:
		logger.Error("application error", "error", err)
	}
	if code := exitCode(err); code != 0 {
		stop()
		os.Exit(code)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "lqx",
		Usage:   "Reorder and upload lessons in LingQ collections",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logging",
			},
		},
		Before:   r.before,
		After:    r.after,
		Commands: r.register(),
	}
}

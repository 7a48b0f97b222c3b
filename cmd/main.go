package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"recon/pkg/define"
)

func main() {
	app := cli.Command{
		Name:        "recon",
		Usage:       "manage a Windows host over SSH",
		UsageText:   "recon [command] [flags]",
		Description: "connect to a Windows host, discover consoles, networks and reachable nodes, and tunnel to them",
		Before:      earlyStage,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  define.FlagVerbose,
				Usage: "enable debug logging",
			},
			&cli.StringFlag{
				Name:  define.FlagDataDir,
				Usage: "directory holding persisted host data (default: ~/.recon)",
			},
		},
	}

	app.Commands = []*cli.Command{
		&connectCmd,
		&sweepCmd,
		&tunnelCmd,
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func earlyStage(ctx context.Context, command *cli.Command) (context.Context, error) {
	setLogrus(command.Bool(define.FlagVerbose))
	ctx, _ = signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT, os.Interrupt)

	return ctx, nil
}

func setLogrus(verbose bool) {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		ForceColors:   true,
	})
	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(logrus.InfoLevel)
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
}

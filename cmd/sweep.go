package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"recon/pkg/define"
	"recon/pkg/engine"
)

var sweepCmd = cli.Command{
	Name:        "sweep",
	Usage:       "probe every address of the host's first local network",
	UsageText:   "recon sweep --host <addr> --user <name> --password <pw>",
	Description: "connect, then run a fresh sequential reachability sweep and stream each discovered node",
	Flags:       connectionFlags(),
	Action:      runSweep,
}

func runSweep(ctx context.Context, command *cli.Command) error {
	eng, err := buildEngine(command)
	if err != nil {
		return err
	}
	defer eng.Stop()

	eng.Setup(ctx,
		command.String(define.FlagHost),
		command.String(define.FlagUser),
		command.String(define.FlagPassword))
	if eng.CurrentHost() == nil {
		return engine.ErrNoSession
	}

	eng.ClearNodes()
	return eng.EnumerateNodes(ctx)
}

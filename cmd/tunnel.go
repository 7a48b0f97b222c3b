package main

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"recon/pkg/define"
	"recon/pkg/engine"
)

var tunnelCmd = cli.Command{
	Name:        "tunnel",
	Usage:       "forward every known node's HTTPS port to a local port",
	UsageText:   "recon tunnel --host <addr> --user <name> --password <pw>",
	Description: "connect, load the node cache (sweeping if empty), open the tunnel and hold it until interrupted",
	Flags:       connectionFlags(),
	Action:      runTunnel,
}

func runTunnel(ctx context.Context, command *cli.Command) error {
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

	if err := eng.EnumerateNodes(ctx); err != nil {
		return err
	}
	if err := eng.ToggleTunnel(); err != nil {
		return err
	}

	logrus.Info("tunnel up, press Ctrl-C to close")
	<-ctx.Done()

	return eng.ToggleTunnel()
}

package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"recon/pkg/define"
)

var connectCmd = cli.Command{
	Name:        "connect",
	Usage:       "connect to a host and list its cached resources",
	UsageText:   "recon connect --host <addr> --user <name> --password <pw>",
	Description: "establish a session, deploy a session key and enumerate consoles and local networks",
	Flags:       connectionFlags(),
	Action:      runConnect,
}

func runConnect(ctx context.Context, command *cli.Command) error {
	eng, err := buildEngine(command)
	if err != nil {
		return err
	}
	defer eng.Stop()

	eng.Setup(ctx,
		command.String(define.FlagHost),
		command.String(define.FlagUser),
		command.String(define.FlagPassword))
	return nil
}

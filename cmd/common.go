package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"recon/pkg/define"
	"recon/pkg/engine"
	"recon/pkg/event"
	"recon/pkg/registry"
)

func connectionFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     define.FlagHost,
			Usage:    "host address to connect to",
			Required: true,
		},
		&cli.StringFlag{
			Name:     define.FlagUser,
			Usage:    "username on the remote host",
			Required: true,
		},
		&cli.StringFlag{
			Name:     define.FlagPassword,
			Usage:    "password for the initial connection",
			Required: true,
		},
	}
}

func buildEngine(command *cli.Command) (*engine.Engine, error) {
	dir := command.String(define.FlagDataDir)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve home dir")
		}
		dir = filepath.Join(home, ".recon")
	}

	reg, err := registry.Open(dir)
	if err != nil {
		return nil, err
	}

	eng := engine.New(reg, logCallbacks())
	eng.Start()
	return eng, nil
}

// logCallbacks renders every engine event as a log line. This is the
// whole presentation layer of the CLI.
func logCallbacks() event.Callbacks {
	return event.Callbacks{
		Activity: func(msg string) {
			logrus.Info(msg)
		},
		Initialized: func() {
			logrus.Debug("host data loaded")
		},
		HostEstablishment: func(ok bool, kind string, err error) {
			if ok {
				logrus.Info("Connection established!")
				return
			}
			logrus.Errorf("Can't connect! (%s: %v)", kind, err)
		},
		ConsolesLoaded: func(consoles []string) {
			for _, c := range consoles {
				logrus.Infof("console: %s", c)
			}
		},
		LocalNetworksLoaded: func(networks []string) {
			for _, n := range networks {
				logrus.Infof("network: %s", n)
			}
		},
		NodeFound: func(addr string) {
			logrus.Infof("node found: %s", addr)
		},
		NodesLoaded: func() {
			logrus.Info("Nodes loaded.")
		},
		TunnelEstablished: func(mapping map[string]int) {
			for node, port := range mapping {
				logrus.Infof("tunnel: https://127.0.0.1:%d -> %s:%d", port, node, define.HTTPSPort)
			}
		},
		TunnelClosed: func() {
			logrus.Info("Tunnel closed!")
		},
		FatalError: func(msg string, err error) {
			logrus.Errorf("%s: %v", msg, err)
		},
	}
}

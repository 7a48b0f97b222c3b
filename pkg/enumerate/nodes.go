package enumerate

import (
	"context"
	"fmt"
	"net"

	"github.com/apparentlymart/go-cidr/cidr"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"recon/pkg/define"
	"recon/pkg/registry"
	"recon/pkg/sshx"
)

// Nodes performs the reachability sweep over the first cached network,
// probing every usable host address in ascending order with a single
// bounded-timeout ping. Each reachable address is appended to the cache
// immediately and announced through a synchronous NodeFound event, so a
// consumer can render results while the sweep is still running. The sweep
// is strictly sequential.
//
// With a populated cache the sweep is skipped and NodeFound is replayed
// for every cached entry in original order. With no known networks the
// loaded event fires immediately with an empty result.
func (e *Enumerator) Nodes(ctx context.Context, profile *registry.HostProfile) error {
	if len(profile.Nodes) == 0 {
		if len(profile.Networks) == 0 {
			e.Emit.NodesLoaded()
			return nil
		}

		if err := e.sweep(ctx, profile); err != nil {
			return err
		}
		if err := e.Persist(); err != nil {
			return err
		}
	} else {
		for _, addr := range profile.Nodes {
			e.Emit.NodeFound(addr)
		}
	}

	e.Emit.NodesLoaded()
	return nil
}

func (e *Enumerator) sweep(ctx context.Context, profile *registry.HostProfile) error {
	// Additional cached networks are deliberately ignored: downstream
	// consumers (the tunnel mapping) assume one flat node list.
	_, network, err := net.ParseCIDR(profile.Networks[0])
	if err != nil {
		return errors.Wrapf(err, "invalid cached network %q", profile.Networks[0])
	}

	count := cidr.AddressCount(network)
	for i := uint64(1); i+1 < count; i++ {
		host, err := cidr.Host(network, int(i))
		if err != nil {
			return errors.Wrapf(err, "host %d of %s", i, network)
		}
		addr := host.String()

		e.Emit.Activity("Querying... " + addr)
		_, _, err = e.Run.Output(ctx, fmt.Sprintf(define.PingCommandFormat, addr))
		if err != nil {
			if sshx.AsCommandError(err) != nil {
				// Non-zero ping exit is the normal unreachable outcome.
				continue
			}
			logrus.Warnf("probe of %s failed: %v", addr, err)
			e.Emit.Activity(fmt.Sprintf("Probe of %s failed: %v", addr, err))
			continue
		}

		profile.Nodes = append(profile.Nodes, addr)
		e.Emit.NodeFound(addr)
	}

	return nil
}

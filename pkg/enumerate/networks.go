package enumerate

import (
	"context"
	"net"
	"regexp"

	"recon/pkg/define"
	"recon/pkg/registry"
)

// ipv4Pattern matches the "IPv4 Address ... : a.b.c.d" / "Subnet Mask ...
// : e.f.g.h" pairs in raw ipconfig output (CRLF line endings).
var ipv4Pattern = regexp.MustCompile(
	`IPv4 Address\D+(\d+\.\d+\.\d+\.\d+)\r\s+Subnet Mask\D+(\d+\.\d+\.\d+\.\d+)`)

// LocalNetworks enumerates the private, non-loopback networks the current
// host is attached to, caching them in CIDR notation.
func (e *Enumerator) LocalNetworks(ctx context.Context, profile *registry.HostProfile) error {
	if len(profile.Networks) == 0 {
		e.Emit.Activity("Enumerating local networks...")

		out, _, err := e.Run.Output(ctx, define.NetworkEnumCommand)
		if err != nil {
			return err
		}

		profile.Networks = append(profile.Networks, parseNetworks(out)...)
		if err := e.Persist(); err != nil {
			return err
		}
	}

	e.Emit.LocalNetworksLoaded(profile.Networks)
	return nil
}

// parseNetworks derives the network prefix for every interface address
// and keeps only private-range, non-loopback entries.
func parseNetworks(out string) []string {
	var networks []string
	for _, m := range ipv4Pattern.FindAllStringSubmatch(out, -1) {
		ip := net.ParseIP(m[1]).To4()
		maskIP := net.ParseIP(m[2]).To4()
		if ip == nil || maskIP == nil {
			continue
		}
		if !ip.IsPrivate() || ip.IsLoopback() {
			continue
		}

		mask := net.IPv4Mask(maskIP[0], maskIP[1], maskIP[2], maskIP[3])
		network := &net.IPNet{IP: ip.Mask(mask), Mask: mask}
		networks = append(networks, network.String())
	}
	return networks
}

package enumerate

import (
	"context"
	"strings"

	"recon/pkg/define"
	"recon/pkg/registry"
)

// Consoles enumerates the serial ports of the current host. The remote
// listing is fetched only when the profile cache is empty; the full list
// is emitted either way.
func (e *Enumerator) Consoles(ctx context.Context, profile *registry.HostProfile) error {
	if len(profile.Consoles) == 0 {
		e.Emit.Activity("Enumerating consoles...")

		out, _, err := e.Run.Output(ctx, define.ConsoleEnumCommand)
		if err != nil {
			return err
		}

		profile.Consoles = append(profile.Consoles, parseConsoleList(out)...)
		if err := e.Persist(); err != nil {
			return err
		}
	}

	e.Emit.ConsolesLoaded(profile.Consoles)
	return nil
}

// parseConsoleList extracts device captions from the enumeration output:
// one header line, then zero or more device lines padded with whitespace.
func parseConsoleList(out string) []string {
	lines := strings.Split(out, "\n")
	if len(lines) > 0 {
		lines = lines[1:]
	}

	var consoles []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			consoles = append(consoles, line)
		}
	}
	return consoles
}

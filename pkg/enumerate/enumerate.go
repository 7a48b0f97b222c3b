// Package enumerate implements the three cache-aware resource enumerators
// that discover serial consoles, local networks and reachable nodes on the
// current host. Each follows the same pattern: serve the cache when
// populated, otherwise fetch over the command channel, extend the cache
// and persist, and always finish by emitting the full list.
package enumerate

import (
	"context"

	"recon/pkg/event"
)

// Runner executes one remote command on the live session and returns its
// fully collected output streams. A non-zero remote exit is reported as
// *sshx.CommandError.
type Runner interface {
	Output(ctx context.Context, command string) (stdout, stderr string, err error)
}

// Enumerator bundles the collaborators shared by all three enumerations.
type Enumerator struct {
	Run  Runner
	Emit *event.Emitter

	// Persist rewrites the host registry after a successful fetch.
	Persist func() error
}

// Package engine composes the session, registry, enumerators, tunnel and
// spawn layers behind a single event-emitting facade. Every session
// operation is serialized through one mutex: the engine owns the only
// live transport and never runs two commands against it concurrently.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"recon/pkg/enumerate"
	"recon/pkg/event"
	"recon/pkg/registry"
	"recon/pkg/spawn"
	"recon/pkg/sshx"
	"recon/pkg/tunnel"
)

// ErrNoSession is returned by operations that require a live session when
// none exists.
var ErrNoSession = errors.New("no active session")

// remoteSession is the slice of sshx.Session the engine depends on.
type remoteSession interface {
	Output(ctx context.Context, command string) (stdout, stderr string, err error)
	DeployKey(ctx context.Context) error
	Close() error
	KeyFile() string
	Host() string
	User() string
}

// Engine is the orchestration facade consumed by the presentation layer.
type Engine struct {
	mu sync.Mutex

	reg    *registry.Registry
	emit   *event.Emitter
	tunnel *tunnel.Manager

	session remoteSession
	current *registry.HostProfile

	// Seams for tests; production values are set by New.
	dial         func(ctx context.Context, cfg *sshx.ClientConfig) (remoteSession, error)
	spawnConsole func(user, addr, keyFile, descriptor string) error
	spawnShell   func(user, addr, keyFile string) error
	killSpawned  func() error
}

// New creates an Engine over an already-loaded registry.
func New(reg *registry.Registry, cb event.Callbacks) *Engine {
	return &Engine{
		reg:    reg,
		emit:   event.NewEmitter(cb),
		tunnel: tunnel.NewManager(),
		dial: func(ctx context.Context, cfg *sshx.ClientConfig) (remoteSession, error) {
			return sshx.Connect(ctx, cfg)
		},
		spawnConsole: spawn.Console,
		spawnShell:   spawn.Shell,
		killSpawned:  spawn.KillByTitlePrefix,
	}
}

// Start announces that persisted host data is loaded and the engine is
// ready for a connect.
func (e *Engine) Start() {
	e.emit.Initialized()
}

// CurrentHost returns the profile of the connected host, or nil.
func (e *Engine) CurrentHost() *registry.HostProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// KnownHosts returns every previously seen host address, for login
// prefill.
func (e *Engine) KnownHosts() []string {
	return e.reg.Addresses()
}

// Setup runs the full connect sequence: connect and classify, ensure and
// persist the host profile, deploy the session key, then enumerate
// consoles and networks. Cached nodes are replayed; a fresh sweep is a
// separate user action. Every failure path ends in a notification.
func (e *Engine) Setup(ctx context.Context, host, user, password string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.emit.Activity(fmt.Sprintf("Connecting to %s...", host))
	sess, err := e.dial(ctx, sshx.NewClientConfig(host, user, password))
	if err != nil {
		kind := sshx.FailureKind(err)
		logrus.Debugf("connect to %s failed (%s): %v", host, kind, err)
		e.emit.HostEstablishment(false, kind, err)
		return
	}

	e.session = sess
	e.current = e.reg.Ensure(host, user)
	if err := e.reg.Save(); err != nil {
		logrus.Warnf("failed to persist host data: %v", err)
	}

	e.emit.Activity("Deploying key...")
	if err := sess.DeployKey(ctx); err != nil {
		// Degraded capability: the connection stands, but key-based
		// follow-ups (tunnel, spawns) will fail.
		e.emit.FatalError("key deployment failed, passwordless operations unavailable", err)
	}
	e.emit.HostEstablishment(true, "", nil)

	enum := e.enumerator()
	if err := enum.Consoles(ctx, e.current); err != nil {
		e.emit.Activity(fmt.Sprintf("Console enumeration failed: %v", err))
	}
	if err := enum.LocalNetworks(ctx, e.current); err != nil {
		e.emit.Activity(fmt.Sprintf("Network enumeration failed: %v", err))
	}
	if len(e.current.Nodes) > 0 {
		if err := enum.Nodes(ctx, e.current); err != nil {
			e.emit.Activity(fmt.Sprintf("Node enumeration failed: %v", err))
		}
	}
}

func (e *Engine) enumerator() *enumerate.Enumerator {
	return &enumerate.Enumerator{
		Run:     e.session,
		Emit:    e.emit,
		Persist: e.reg.Save,
	}
}

// EnumerateConsoles serves the console cache, fetching it first if empty.
func (e *Engine) EnumerateConsoles(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoSession
	}
	return e.enumerator().Consoles(ctx, e.current)
}

// EnumerateLocalNetworks serves the network cache, fetching it first if
// empty.
func (e *Engine) EnumerateLocalNetworks(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoSession
	}
	return e.enumerator().LocalNetworks(ctx, e.current)
}

// EnumerateNodes runs the reachability sweep, or replays the cached node
// list. Blocking: the sweep traverses the whole first network
// sequentially before returning.
func (e *Engine) EnumerateNodes(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoSession
	}
	return e.enumerator().Nodes(ctx, e.current)
}

// ClearConsoles empties the console cache. Safe with no current host.
func (e *Engine) ClearConsoles() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.Consoles = nil
	}
}

// ClearLocalNetworks empties the network cache. Safe with no current
// host.
func (e *Engine) ClearLocalNetworks() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.Networks = nil
	}
}

// ClearNodes empties the node cache. Safe with no current host.
func (e *Engine) ClearNodes() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current != nil {
		e.current.Nodes = nil
	}
}

// ToggleTunnel is a strict two-state flip. With no tunnel open it maps
// every cached node's HTTPS port to a fresh local port and launches the
// forwarding process; with one open it tears everything down. A second
// toggle never re-opens with new mappings.
func (e *Engine) ToggleTunnel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.tunnel.Active() {
		e.emit.Activity("Closing tunnel...")
		if err := e.tunnel.Close(); err != nil {
			e.emit.Activity(fmt.Sprintf("Tunnel close failed: %v", err))
			return err
		}
		e.emit.TunnelClosed()
		return nil
	}

	if e.session == nil {
		return ErrNoSession
	}

	e.emit.Activity("Establishing tunnel...")
	mapping, err := e.tunnel.Open(e.session.User(), e.session.Host(), e.session.KeyFile(), e.current.Nodes)
	if err != nil {
		e.emit.Activity(fmt.Sprintf("Tunnel failed: %v", err))
		return err
	}

	e.emit.TunnelEstablished(mapping)
	return nil
}

// SpawnConsole launches a detached serial-bridge terminal for the given
// console descriptor. A descriptor without a COM token is a non-fatal
// no-op reported as activity.
func (e *Engine) SpawnConsole(descriptor string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoSession
	}

	err := e.spawnConsole(e.session.User(), e.session.Host(), e.session.KeyFile(), descriptor)
	if errors.Is(err, spawn.ErrNoSerialPort) {
		e.emit.Activity(fmt.Sprintf("No serial port found in %q", descriptor))
		return nil
	}
	return err
}

// SpawnShell launches a detached interactive remote shell terminal.
func (e *Engine) SpawnShell() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoSession
	}
	return e.spawnShell(e.session.User(), e.session.Host(), e.session.KeyFile())
}

// Stop tears the engine down: close the transport and remove the
// provisioned key, terminate the tunnel, and bulk-kill spawned terminals
// by window title. All steps run independently; one failing never
// prevents the others.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess := e.session
	var g errgroup.Group
	g.Go(func() error {
		if sess == nil {
			return nil
		}
		return sess.Close()
	})
	g.Go(e.tunnel.Close)
	g.Go(e.killSpawned)

	if err := g.Wait(); err != nil {
		logrus.Warnf("stop: %v", err)
	}
	e.session = nil
}

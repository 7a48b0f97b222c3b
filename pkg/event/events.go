// Package event defines the notification surface the engine exposes to a
// presentation layer. Instead of a dynamically keyed handler table there is
// one optional callback slot per event kind; assigning a slot replaces any
// previous handler for that event.
package event

// Callbacks holds one optional handler per event. A nil slot drops the
// event silently.
type Callbacks struct {
	// Activity reports human-readable progress messages.
	Activity func(msg string)

	// Initialized fires once the engine has loaded persisted host data.
	Initialized func()

	// HostEstablishment reports the outcome of a connect+setup sequence.
	// On failure kind carries the failure classification.
	HostEstablishment func(ok bool, kind string, err error)

	// ConsolesLoaded delivers the full (possibly cached) console list.
	ConsolesLoaded func(consoles []string)

	// LocalNetworksLoaded delivers the full network list in CIDR notation.
	LocalNetworksLoaded func(networks []string)

	// NodeFound fires synchronously for every reachable address, in
	// discovery order, while a sweep is running or a cache is replayed.
	NodeFound func(addr string)

	// NodesLoaded fires after the sweep or cache replay completes.
	NodesLoaded func()

	// TunnelEstablished delivers the node address to local port mapping.
	TunnelEstablished func(mapping map[string]int)

	// TunnelClosed fires after the forwarding process has been torn down.
	TunnelClosed func()

	// FatalError reports a degraded-capability condition that did not
	// abort the running operation, such as a failed key deployment.
	FatalError func(msg string, err error)
}

// Emitter wraps Callbacks with nil-safe dispatch helpers.
type Emitter struct {
	cb Callbacks
}

// NewEmitter returns an Emitter dispatching to cb.
func NewEmitter(cb Callbacks) *Emitter {
	return &Emitter{cb: cb}
}

func (e *Emitter) Activity(msg string) {
	if e.cb.Activity != nil {
		e.cb.Activity(msg)
	}
}

func (e *Emitter) Initialized() {
	if e.cb.Initialized != nil {
		e.cb.Initialized()
	}
}

func (e *Emitter) HostEstablishment(ok bool, kind string, err error) {
	if e.cb.HostEstablishment != nil {
		e.cb.HostEstablishment(ok, kind, err)
	}
}

func (e *Emitter) ConsolesLoaded(consoles []string) {
	if e.cb.ConsolesLoaded != nil {
		e.cb.ConsolesLoaded(consoles)
	}
}

func (e *Emitter) LocalNetworksLoaded(networks []string) {
	if e.cb.LocalNetworksLoaded != nil {
		e.cb.LocalNetworksLoaded(networks)
	}
}

func (e *Emitter) NodeFound(addr string) {
	if e.cb.NodeFound != nil {
		e.cb.NodeFound(addr)
	}
}

func (e *Emitter) NodesLoaded() {
	if e.cb.NodesLoaded != nil {
		e.cb.NodesLoaded()
	}
}

func (e *Emitter) TunnelEstablished(mapping map[string]int) {
	if e.cb.TunnelEstablished != nil {
		e.cb.TunnelEstablished(mapping)
	}
}

func (e *Emitter) TunnelClosed() {
	if e.cb.TunnelClosed != nil {
		e.cb.TunnelClosed()
	}
}

func (e *Emitter) FatalError(msg string, err error) {
	if e.cb.FatalError != nil {
		e.cb.FatalError(msg, err)
	}
}

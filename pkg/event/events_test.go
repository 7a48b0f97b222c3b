package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitterNilSlotsAreSafe(t *testing.T) {
	e := NewEmitter(Callbacks{})

	e.Activity("msg")
	e.Initialized()
	e.HostEstablishment(false, "network", nil)
	e.ConsolesLoaded(nil)
	e.LocalNetworksLoaded(nil)
	e.NodeFound("10.0.0.1")
	e.NodesLoaded()
	e.TunnelEstablished(nil)
	e.TunnelClosed()
	e.FatalError("msg", nil)
}

func TestEmitterDispatches(t *testing.T) {
	var got []string
	e := NewEmitter(Callbacks{
		Activity:  func(msg string) { got = append(got, "activity:"+msg) },
		NodeFound: func(addr string) { got = append(got, "node:"+addr) },
	})

	e.Activity("hello")
	e.NodeFound("10.0.0.1")
	e.NodeFound("10.0.0.2")
	e.NodesLoaded() // nil slot, dropped

	assert.Equal(t, []string{"activity:hello", "node:10.0.0.1", "node:10.0.0.2"}, got)
}

func TestAssignmentReplacesHandler(t *testing.T) {
	cb := Callbacks{Activity: func(string) { t.Fatal("replaced handler must not fire") }}
	fired := false
	cb.Activity = func(string) { fired = true }

	NewEmitter(cb).Activity("msg")
	assert.True(t, fired)
}

package enumerate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recon/pkg/event"
	"recon/pkg/registry"
	"recon/pkg/sshx"
)

// fakeRunner answers remote commands from a canned table. Ping commands
// fall through to reachable: anything not listed exits non-zero.
type fakeRunner struct {
	outputs   map[string]string
	reachable map[string]bool
	commands  []string
	failWith  error
}

func (f *fakeRunner) Output(_ context.Context, command string) (string, string, error) {
	f.commands = append(f.commands, command)

	if f.failWith != nil {
		return "", "", f.failWith
	}

	if out, ok := f.outputs[command]; ok {
		return out, "", nil
	}

	if strings.HasPrefix(command, "ping ") {
		fields := strings.Fields(command)
		target := fields[len(fields)-1]
		if f.reachable[target] {
			return "Reply from " + target, "", nil
		}
		return "", "", &sshx.CommandError{Command: command, ExitCode: 1}
	}

	return "", "", fmt.Errorf("unexpected command %q", command)
}

type recorder struct {
	activities []string
	consoles   []string
	networks   []string
	found      []string
	loaded     int
}

func (r *recorder) callbacks() event.Callbacks {
	return event.Callbacks{
		Activity:            func(msg string) { r.activities = append(r.activities, msg) },
		ConsolesLoaded:      func(c []string) { r.consoles = c },
		LocalNetworksLoaded: func(n []string) { r.networks = n },
		NodeFound:           func(addr string) { r.found = append(r.found, addr) },
		NodesLoaded:         func() { r.loaded++ },
	}
}

func newEnumerator(run Runner, rec *recorder) *Enumerator {
	return &Enumerator{
		Run:     run,
		Emit:    event.NewEmitter(rec.callbacks()),
		Persist: func() error { return nil },
	}
}

const wmicOutput = "Caption  \r\nUSB Serial Device (COM3)  \r\n\r\nIntel(R) AMT SOL (COM4)  \r\n"

func TestConsolesFetchesOnce(t *testing.T) {
	rec := &recorder{}
	run := &fakeRunner{outputs: map[string]string{
		"wmic path Win32_SerialPort get Caption": wmicOutput,
	}}
	e := newEnumerator(run, rec)
	profile := &registry.HostProfile{Address: "10.0.0.5"}

	require.NoError(t, e.Consoles(context.Background(), profile))
	want := []string{"USB Serial Device (COM3)", "Intel(R) AMT SOL (COM4)"}
	assert.Equal(t, want, profile.Consoles)
	assert.Equal(t, want, rec.consoles)

	// Second call serves the cache: no new remote command, same list
	// emitted again.
	before := len(run.commands)
	require.NoError(t, e.Consoles(context.Background(), profile))
	assert.Equal(t, before, len(run.commands))
	assert.Equal(t, want, profile.Consoles)
	assert.Equal(t, want, rec.consoles)
}

func TestConsolesClearRefetches(t *testing.T) {
	rec := &recorder{}
	run := &fakeRunner{outputs: map[string]string{
		"wmic path Win32_SerialPort get Caption": wmicOutput,
	}}
	e := newEnumerator(run, rec)
	profile := &registry.HostProfile{Address: "10.0.0.5"}

	require.NoError(t, e.Consoles(context.Background(), profile))
	profile.Consoles = nil
	require.NoError(t, e.Consoles(context.Background(), profile))
	assert.Equal(t, 2, len(run.commands))
}

func TestParseConsoleListSkipsHeaderAndBlanks(t *testing.T) {
	assert.Equal(t, []string{"USB Serial Device (COM3)", "Intel(R) AMT SOL (COM4)"},
		parseConsoleList(wmicOutput))
	assert.Empty(t, parseConsoleList("Caption  \r\n\r\n"))
	assert.Empty(t, parseConsoleList(""))
}

const ipconfigOutput = "Windows IP Configuration\r\n" +
	"\r\n" +
	"Ethernet adapter Ethernet0:\r\n" +
	"\r\n" +
	"   IPv4 Address. . . . . . . . . . . : 10.0.0.5\r\n" +
	"   Subnet Mask . . . . . . . . . . . : 255.255.255.0\r\n" +
	"   Default Gateway . . . . . . . . . : 10.0.0.1\r\n" +
	"\r\n" +
	"Ethernet adapter Ethernet1:\r\n" +
	"\r\n" +
	"   IPv4 Address. . . . . . . . . . . : 203.0.113.7\r\n" +
	"   Subnet Mask . . . . . . . . . . . : 255.255.255.0\r\n" +
	"\r\n" +
	"Loopback adapter:\r\n" +
	"\r\n" +
	"   IPv4 Address. . . . . . . . . . . : 127.0.0.1\r\n" +
	"   Subnet Mask . . . . . . . . . . . : 255.0.0.0\r\n"

func TestParseNetworksFiltersPublicAndLoopback(t *testing.T) {
	assert.Equal(t, []string{"10.0.0.0/24"}, parseNetworks(ipconfigOutput))
}

func TestParseNetworksMultiplePrivate(t *testing.T) {
	out := "   IPv4 Address. . . . . . . . . . . : 192.168.1.17\r\n" +
		"   Subnet Mask . . . . . . . . . . . : 255.255.255.240\r\n" +
		"   IPv4 Address. . . . . . . . . . . : 172.16.4.2\r\n" +
		"   Subnet Mask . . . . . . . . . . . : 255.255.0.0\r\n"
	assert.Equal(t, []string{"192.168.1.16/28", "172.16.0.0/16"}, parseNetworks(out))
}

func TestLocalNetworksCaches(t *testing.T) {
	rec := &recorder{}
	run := &fakeRunner{outputs: map[string]string{"ipconfig": ipconfigOutput}}
	e := newEnumerator(run, rec)
	profile := &registry.HostProfile{Address: "10.0.0.5"}

	require.NoError(t, e.LocalNetworks(context.Background(), profile))
	assert.Equal(t, []string{"10.0.0.0/24"}, profile.Networks)
	assert.Equal(t, []string{"10.0.0.0/24"}, rec.networks)

	before := len(run.commands)
	require.NoError(t, e.LocalNetworks(context.Background(), profile))
	assert.Equal(t, before, len(run.commands))
}

func TestNodesSweepSmallNetwork(t *testing.T) {
	rec := &recorder{}
	run := &fakeRunner{reachable: map[string]bool{"10.0.0.1": true}}
	e := newEnumerator(run, rec)
	profile := &registry.HostProfile{
		Address:  "10.0.0.5",
		Networks: []string{"10.0.0.0/30"},
	}

	require.NoError(t, e.Nodes(context.Background(), profile))

	// Usable hosts of 10.0.0.0/30 are .1 and .2; only .1 answered.
	assert.Equal(t, []string{"10.0.0.1"}, profile.Nodes)
	assert.Equal(t, []string{"10.0.0.1"}, rec.found)
	assert.Equal(t, 1, rec.loaded)
	assert.Equal(t, []string{
		"ping -n 1 -w 25 10.0.0.1",
		"ping -n 1 -w 25 10.0.0.2",
	}, run.commands)
}

func TestNodesSweepAscendingOrder(t *testing.T) {
	rec := &recorder{}
	run := &fakeRunner{reachable: map[string]bool{
		"192.168.0.2": true,
		"192.168.0.5": true,
	}}
	e := newEnumerator(run, rec)
	profile := &registry.HostProfile{
		Address:  "192.168.0.9",
		Networks: []string{"192.168.0.0/29"},
	}

	require.NoError(t, e.Nodes(context.Background(), profile))
	assert.Equal(t, []string{"192.168.0.2", "192.168.0.5"}, rec.found)
	assert.Equal(t, 6, len(run.commands))
}

func TestNodesReplaysCache(t *testing.T) {
	rec := &recorder{}
	run := &fakeRunner{}
	e := newEnumerator(run, rec)
	profile := &registry.HostProfile{
		Address:  "10.0.0.5",
		Networks: []string{"10.0.0.0/24"},
		Nodes:    []string{"10.0.0.2", "10.0.0.1", "10.0.0.9"},
	}

	require.NoError(t, e.Nodes(context.Background(), profile))

	// Cached entries replay in original order, no probing.
	assert.Equal(t, []string{"10.0.0.2", "10.0.0.1", "10.0.0.9"}, rec.found)
	assert.Equal(t, 1, rec.loaded)
	assert.Empty(t, run.commands)
}

func TestNodesNoNetworksGuard(t *testing.T) {
	rec := &recorder{}
	run := &fakeRunner{}
	e := newEnumerator(run, rec)
	profile := &registry.HostProfile{Address: "10.0.0.5"}

	require.NoError(t, e.Nodes(context.Background(), profile))
	assert.Empty(t, profile.Nodes)
	assert.Empty(t, rec.found)
	assert.Equal(t, 1, rec.loaded)
	assert.Empty(t, run.commands)
}

func TestNodesTransportErrorContinues(t *testing.T) {
	rec := &recorder{}
	run := &fakeRunner{failWith: errors.New("connection lost")}
	e := newEnumerator(run, rec)
	profile := &registry.HostProfile{
		Address:  "10.0.0.5",
		Networks: []string{"10.0.0.0/30"},
	}

	// Transport failures are reported as activity and the sweep moves on.
	require.NoError(t, e.Nodes(context.Background(), profile))
	assert.Empty(t, profile.Nodes)
	assert.Equal(t, 2, len(run.commands))
	assert.Equal(t, 1, rec.loaded)
}

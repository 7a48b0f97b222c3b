// Package tunnel manages the single background SSH forwarding process
// that maps each discovered node's HTTPS port to a local ephemeral port.
// All forwards live and die together: opening launches one process with
// the full -L list, closing terminates it and drops every forward at
// once.
package tunnel

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"recon/pkg/define"
)

// ErrNoNodes is returned when a tunnel is requested with an empty node
// list.
var ErrNoNodes = errors.New("no nodes to tunnel to")

// Manager holds the forwarding process handle. State is simply "process
// present or absent".
type Manager struct {
	mu     sync.Mutex
	proc   *exec.Cmd
	binary string
}

// NewManager returns a Manager launching the system ssh binary.
func NewManager() *Manager {
	return &Manager{binary: "ssh"}
}

// Active reports whether a forwarding process is currently running.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.proc != nil
}

// Open allocates one ephemeral local port per node, launches a single
// background ssh process with -N and one -L triple per node, and returns
// the node address to local port mapping. Ports are chosen per call;
// reopening after a close may yield a different mapping.
func (m *Manager) Open(user, addr, keyFile string, nodes []string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proc != nil {
		return nil, errors.New("tunnel already open")
	}
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}

	args := []string{"-N", "-i", keyFile, fmt.Sprintf("%s@%s", user, addr)}
	mapping := make(map[string]int, len(nodes))
	for _, node := range nodes {
		port, err := allocatePort()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to allocate local port for %s", node)
		}
		mapping[node] = port
		args = append(args, "-L", fmt.Sprintf("%d:%s:%d", port, node, define.HTTPSPort))
	}

	cmd := exec.Command(m.binary, args...)
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start forwarding process")
	}
	m.proc = cmd

	// Reap the process when it exits on its own.
	go func() {
		if err := cmd.Wait(); err != nil {
			logrus.Debugf("forwarding process exited: %v", err)
		}
	}()

	logrus.Debugf("tunnel opened with %d forward(s), pid %d", len(mapping), cmd.Process.Pid)
	return mapping, nil
}

// Close terminates the forwarding process and drops the handle. Closing
// tears down every active forward simultaneously; there is no partial
// close.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proc == nil {
		return nil
	}

	err := m.proc.Process.Kill()
	m.proc = nil
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.Wrap(err, "failed to terminate forwarding process")
	}

	logrus.Debug("tunnel closed")
	return nil
}

// allocatePort binds an OS-assigned port on loopback, reads it back and
// releases the socket. The port is reserved only by convention until the
// forwarding process binds it again.
func allocatePort() (int, error) {
	tcpAddr, err := net.ResolveTCPAddr("tcp4", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp4", tcpAddr)
	if err != nil {
		return 0, err
	}
	defer l.Close()

	return l.Addr().(*net.TCPAddr).Port, nil
}

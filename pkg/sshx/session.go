// Package sshx owns the single live SSH session to the current host:
// connection establishment with typed failure classification, remote
// command execution with fully captured output streams, and per-session
// key provisioning for passwordless follow-up operations.
package sshx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
)

// Session represents the live authenticated connection to one host. At
// most one Session exists at a time; no command execution is valid
// without one.
type Session struct {
	cfg    *ClientConfig
	client *ssh.Client

	// prompt is the banner text read right after connecting. Empty when
	// the host printed nothing within the prompt timeout.
	prompt string

	// keyFile is the path of the provisioned private key, set by
	// DeployKey and removed by Close.
	keyFile string

	closeOnce sync.Once
	closed    chan struct{}
	mu        sync.RWMutex
}

// Connect opens a transport to cfg.Host with password authentication and
// returns a live Session. Every failure is classified: *ConnectError with
// KindNetwork for socket-level errors, KindAuthentication for rejected
// credentials, KindSSH for protocol failures after the transport is up,
// KindUnknown otherwise.
func Connect(ctx context.Context, cfg *ClientConfig) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ConnectError{Kind: KindUnknown, Err: err}
	}

	addr := net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port))
	logrus.Debugf("connecting to %s@%s", cfg.User, addr)

	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectError{Kind: KindNetwork, Err: err}
	}

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         cfg.DialTimeout,
	}

	clientConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshCfg)
	if err != nil {
		conn.Close()
		return nil, &ConnectError{Kind: classifyHandshake(err), Err: err}
	}

	s := &Session{
		cfg:    cfg,
		client: ssh.NewClient(clientConn, chans, reqs),
		closed: make(chan struct{}),
	}

	s.prompt = s.readPrompt()
	logrus.Debugf("connected to %s@%s", cfg.User, addr)
	return s, nil
}

// classifyHandshake sorts a handshake failure into a failure kind. The
// ssh package does not expose typed auth errors on the client side, so
// the rejection is recognized by message.
func classifyHandshake(err error) string {
	var netErr net.Error
	switch {
	case strings.Contains(err.Error(), "unable to authenticate"),
		strings.Contains(err.Error(), "no supported methods remain"):
		return KindAuthentication
	case errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindSSH
	}
}

// readPrompt opens a raw session channel and reads whatever the host
// pushes within the prompt timeout. A timeout yields an empty prompt, not
// a failure.
func (s *Session) readPrompt() string {
	ch, reqs, err := s.client.OpenChannel("session", nil)
	if err != nil {
		logrus.Debugf("prompt channel open failed: %v", err)
		return ""
	}
	go ssh.DiscardRequests(reqs)
	defer ch.Close()

	buf := make([]byte, 1024)
	read := make(chan int, 1)
	go func() {
		n, _ := ch.Read(buf)
		read <- n
	}()

	select {
	case n := <-read:
		return string(buf[:n])
	case <-time.After(s.cfg.PromptTimeout):
		return ""
	}
}

// Prompt returns the cached connection banner text.
func (s *Session) Prompt() string {
	return s.prompt
}

// Host returns the remote address of this session.
func (s *Session) Host() string {
	return s.cfg.Host
}

// User returns the authenticated username.
func (s *Session) User() string {
	return s.cfg.User
}

// KeyFile returns the provisioned private key path, or empty when no key
// has been deployed.
func (s *Session) KeyFile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyFile
}

// Output runs command on the remote host and returns its fully collected
// stdout and stderr. A non-zero exit status is returned as *CommandError
// carrying the command text, exit code and both streams. Any other error
// is a transport- or protocol-level failure.
func (s *Session) Output(ctx context.Context, command string) (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.isClosed() {
		return "", "", ErrSessionClosed
	}

	sess, err := s.client.NewSession()
	if err != nil {
		return "", "", fmt.Errorf("failed to open exec channel: %w", err)
	}
	defer sess.Close()

	var stdout, stderr strings.Builder
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	logrus.Debugf("running remote command: %s", command)
	err = sess.Run(command)
	if err != nil {
		if exitErr, ok := err.(*ssh.ExitError); ok {
			return stdout.String(), stderr.String(), &CommandError{
				Command:  command,
				ExitCode: exitErr.ExitStatus(),
				Stdout:   stdout.String(),
				Stderr:   stderr.String(),
			}
		}
		return stdout.String(), stderr.String(), fmt.Errorf("remote command %q failed: %w", command, err)
	}

	return stdout.String(), stderr.String(), nil
}

// Close closes the transport and removes the provisioned key file. Both
// steps are attempted independently; it is safe to call Close multiple
// times.
func (s *Session) Close() error {
	var finalErr error

	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		close(s.closed)

		if s.client != nil {
			if err := s.client.Close(); err != nil && !isAlreadyClosed(err) {
				finalErr = err
				logrus.Errorf("failed to close SSH transport: %v", err)
			}
			s.client = nil
		}

		if s.keyFile != "" {
			if err := os.Remove(s.keyFile); err != nil && !os.IsNotExist(err) {
				logrus.Warnf("failed to remove key file %q: %v", s.keyFile, err)
			}
			s.keyFile = ""
		}

		logrus.Debug("SSH session closed")
	})

	return finalErr
}

func isAlreadyClosed(err error) bool {
	return strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection already closed")
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

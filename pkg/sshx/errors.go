package sshx

import (
	"errors"
	"fmt"
)

// Failure kinds for connection establishment. Downstream consumers branch
// on these values, so they are part of the wire contract of the package.
const (
	// KindAuthentication means the transport came up but the credentials
	// were rejected.
	KindAuthentication = "authentication"
	// KindNetwork covers socket-level failures: timeout, unreachable host,
	// closed port, DNS.
	KindNetwork = "network"
	// KindSSH covers protocol-level failures after the transport is up.
	KindSSH = "ssh"
	// KindUnknown is the catch-all.
	KindUnknown = "unknown"
)

// ConnectError is a classified connection-establishment failure.
type ConnectError struct {
	Kind string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed (%s): %v", e.Kind, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// CommandError reports a remote command that ran to completion with a
// non-zero exit status. Callers decide whether that is expected (e.g. a
// reachability probe) or fatal.
type CommandError struct {
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("remote command %q exited with code %d", e.Command, e.ExitCode)
}

// AsCommandError unwraps err to a CommandError, or returns nil.
func AsCommandError(err error) *CommandError {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr
	}
	return nil
}

// FailureKind returns the classification of err, or KindUnknown when err
// is not a ConnectError.
func FailureKind(err error) string {
	var connErr *ConnectError
	if errors.As(err, &connErr) {
		return connErr.Kind
	}
	return KindUnknown
}

var (
	// ErrSessionClosed is returned when operations are attempted on a
	// closed session.
	ErrSessionClosed = errors.New("SSH session is closed")
)

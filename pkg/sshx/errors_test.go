package sshx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandErrorCarriesStreams(t *testing.T) {
	var err error = &CommandError{
		Command:  "some-tool --flag",
		ExitCode: 137,
		Stdout:   "partial output",
		Stderr:   "killed",
	}

	cmdErr := AsCommandError(fmt.Errorf("wrapped: %w", err))
	require.NotNil(t, cmdErr)
	assert.Equal(t, 137, cmdErr.ExitCode)
	assert.Equal(t, "partial output", cmdErr.Stdout)
	assert.Equal(t, "killed", cmdErr.Stderr)
	assert.Equal(t, "some-tool --flag", cmdErr.Command)
}

func TestAsCommandErrorNonCommand(t *testing.T) {
	assert.Nil(t, AsCommandError(errors.New("plain failure")))
	assert.Nil(t, AsCommandError(nil))
}

func TestFailureKind(t *testing.T) {
	err := &ConnectError{Kind: KindAuthentication, Err: errors.New("denied")}
	assert.Equal(t, KindAuthentication, FailureKind(fmt.Errorf("setup: %w", err)))
	assert.Equal(t, KindUnknown, FailureKind(errors.New("anything")))
}

func TestClassifyHandshake(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "rejected credentials",
			err:  errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"),
			want: KindAuthentication,
		},
		{
			name: "no methods left",
			err:  errors.New("ssh: handshake failed: no supported methods remain"),
			want: KindAuthentication,
		},
		{
			name: "timeout mid-handshake",
			err:  fmt.Errorf("ssh: handshake failed: %w", &net.OpError{Op: "read", Err: timeoutError{}}),
			want: KindNetwork,
		},
		{
			name: "protocol failure",
			err:  errors.New("ssh: no common algorithm for key exchange"),
			want: KindSSH,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifyHandshake(tc.err))
		})
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestConnectUnreachableClassifiesNetwork(t *testing.T) {
	// A listener that is immediately closed gives a port nothing accepts
	// on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	require.NoError(t, l.Close())

	cfg := NewClientConfig("127.0.0.1", "user", "pw").
		WithPort(uint16(addr.Port)).
		WithDialTimeout(500 * time.Millisecond)

	_, err = Connect(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, KindNetwork, FailureKind(err))
}

func TestConnectValidatesConfig(t *testing.T) {
	_, err := Connect(context.Background(), NewClientConfig("", "user", "pw"))
	require.Error(t, err)
	assert.Equal(t, KindUnknown, FailureKind(err))
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMissingFile(t *testing.T) {
	r, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len())
}

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()

	r, err := Open(dir)
	require.NoError(t, err)

	a := r.Ensure("10.0.0.5", "admin")
	a.Consoles = []string{"COM3 device", "COM7 device"}
	a.Networks = []string{"10.0.0.0/24"}
	a.Nodes = []string{"10.0.0.1", "10.0.0.2"}

	b := r.Ensure("192.168.1.9", "operator")
	b.Networks = []string{"192.168.1.0/28"}

	require.NoError(t, r.Save())

	reloaded, err := Open(dir)
	require.NoError(t, err)
	require.Equal(t, 2, reloaded.Len())

	got := reloaded.Lookup("10.0.0.5")
	require.NotNil(t, got)
	assert.Equal(t, a.Username, got.Username)
	assert.Equal(t, a.Consoles, got.Consoles)
	assert.Equal(t, a.Networks, got.Networks)
	assert.Equal(t, a.Nodes, got.Nodes)

	got = reloaded.Lookup("192.168.1.9")
	require.NotNil(t, got)
	assert.Equal(t, b.Networks, got.Networks)
}

func TestEnsureFirstWriteWins(t *testing.T) {
	r, err := Open(t.TempDir())
	require.NoError(t, err)

	p := r.Ensure("10.0.0.5", "admin")
	p.Consoles = []string{"COM3 device"}

	again := r.Ensure("10.0.0.5", "someone-else")
	assert.Same(t, p, again)
	assert.Equal(t, "admin", again.Username)
	assert.Equal(t, []string{"COM3 device"}, again.Consoles)
}

func TestLookupUnknown(t *testing.T) {
	r, err := Open(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, r.Lookup("10.9.9.9"))
}

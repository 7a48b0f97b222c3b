// Package registry persists per-host discovery caches. The whole map is
// loaded once at startup and rewritten in full after every mutation, so a
// crash can lose at most the last write, never corrupt an entry.
package registry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"recon/pkg/define"
)

// HostProfile caches everything discovered about one remote host. Identity
// is the address; profiles are created on first successful connection and
// never deleted by the engine.
type HostProfile struct {
	Address  string   `json:"address"`
	Username string   `json:"username"`
	Consoles []string `json:"consoles"`
	Networks []string `json:"networks"`
	Nodes    []string `json:"nodes"`
}

// Registry is the write-through store of host profiles.
type Registry struct {
	path  string
	lock  *flock.Flock
	hosts map[string]*HostProfile
}

// Open loads the registry from dir. A missing data file yields an empty
// registry, not an error.
func Open(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "failed to create data dir %q", dir)
	}

	r := &Registry{
		path:  filepath.Join(dir, define.HostDataFile),
		lock:  flock.New(filepath.Join(dir, define.LockFile)),
		hosts: make(map[string]*HostProfile),
	}

	if err := r.load(); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *Registry) load() error {
	if err := r.lock.Lock(); err != nil {
		return errors.Wrap(err, "failed to lock host data")
	}
	defer r.lock.Unlock()

	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		logrus.Debugf("no host data at %q, starting empty", r.path)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed to read host data %q", r.path)
	}

	if err := json.Unmarshal(data, &r.hosts); err != nil {
		return errors.Wrapf(err, "failed to decode host data %q", r.path)
	}

	logrus.Debugf("loaded %d host profile(s) from %q", len(r.hosts), r.path)
	return nil
}

// Save rewrites the whole registry. The write goes through a temp file and
// rename so readers never observe a partial map.
func (r *Registry) Save() error {
	if err := r.lock.Lock(); err != nil {
		return errors.Wrap(err, "failed to lock host data")
	}
	defer r.lock.Unlock()

	data, err := json.MarshalIndent(r.hosts, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode host data")
	}

	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrapf(err, "failed to write host data %q", tmp)
	}

	if err := os.Rename(tmp, r.path); err != nil {
		return errors.Wrapf(err, "failed to replace host data %q", r.path)
	}

	return nil
}

// Lookup returns the profile for addr, or nil if addr was never seen.
func (r *Registry) Lookup(addr string) *HostProfile {
	return r.hosts[addr]
}

// Ensure returns the profile for addr, creating an empty one on first
// sight. An existing profile keeps its cached lists; first write wins.
func (r *Registry) Ensure(addr, username string) *HostProfile {
	if p, ok := r.hosts[addr]; ok {
		return p
	}

	p := &HostProfile{Address: addr, Username: username}
	r.hosts[addr] = p
	logrus.Debugf("created host profile for %s", addr)
	return p
}

// Addresses returns every known host address. Order is unspecified.
func (r *Registry) Addresses() []string {
	addrs := make([]string, 0, len(r.hosts))
	for addr := range r.hosts {
		addrs = append(addrs, addr)
	}
	return addrs
}

// Len returns the number of stored profiles.
func (r *Registry) Len() int {
	return len(r.hosts)
}

package sshx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/keygen"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"recon/pkg/define"
)

const keyBits = 2048

// DeployKey generates a fresh RSA key pair, writes the private half to a
// uniquely named temp file and installs the public half into the remote
// user's authorized_keys. The private key path becomes this session's
// credential for all later passwordless operations.
//
// A failure here degrades capability (key-based follow-ups will fail) but
// must not abort a connection flow already marked successful; callers
// report it as a warning and continue.
func (s *Session) DeployKey(ctx context.Context) error {
	kp, err := keygen.New("",
		keygen.WithKeyType(keygen.RSA),
		keygen.WithBitSize(keyBits),
	)
	if err != nil {
		return fmt.Errorf("failed to generate key pair: %w", err)
	}

	keyFile := filepath.Join(os.TempDir(), define.KeyFilePrefix+uuid.NewString())
	if err := os.WriteFile(keyFile, kp.RawPrivateKey(), 0o600); err != nil {
		return fmt.Errorf("failed to write private key %q: %w", keyFile, err)
	}

	s.mu.Lock()
	s.keyFile = keyFile
	s.mu.Unlock()

	sshDir := fmt.Sprintf(`C:\Users\%s\.ssh`, s.cfg.User)
	authorizedKey := strings.TrimSpace(string(kp.RawAuthorizedKey()))

	mkdir := fmt.Sprintf(`if not exist %s mkdir %s`, sshDir, sshDir)
	if _, _, err := s.Output(ctx, mkdir); err != nil {
		return fmt.Errorf("failed to ensure %s: %w", sshDir, err)
	}

	install := fmt.Sprintf(`echo %s > %s\authorized_keys`, authorizedKey, sshDir)
	if _, _, err := s.Output(ctx, install); err != nil {
		return fmt.Errorf("failed to install authorized key: %w", err)
	}

	logrus.Debugf("deployed session key for %s@%s (private key at %q)",
		s.cfg.User, s.cfg.Host, keyFile)
	return nil
}

// Package spawn launches detached interactive terminal windows against
// the current host: a serial-bridge console or a remote shell. The
// processes are deliberately untracked; the only cleanup is the
// best-effort window-title bulk termination run at engine stop.
package spawn

import (
	"fmt"
	"os/exec"
	"regexp"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"recon/pkg/define"
)

// ErrNoSerialPort is returned when a console descriptor carries no COM
// port token.
var ErrNoSerialPort = errors.New("no serial port found in console descriptor")

var comPattern = regexp.MustCompile(`COM\d+`)

// serial bridge line parameters: 115200 baud, 8 data bits, no parity,
// 1 stop bit, no flow control.
const serialConfig = "115200 8,n,1,X"

// Console opens a detached terminal bridging the serial port named in
// descriptor. The remote pre-command tags the window title so the process
// can be found again at stop time.
func Console(user, addr, keyFile, descriptor string) error {
	com := comPattern.FindString(descriptor)
	if com == "" {
		return ErrNoSerialPort
	}

	title := fmt.Sprintf("%s serial %s on %s", define.WindowTitlePrefix, com, addr)
	bridge := fmt.Sprintf("plink -serial %s -sercfg %s", com, serialConfig)
	remote := fmt.Sprintf(
		`powershell -Command "$Host.UI.RawUI.WindowTitle = '%s'; $Host.UI.RawUI.ForegroundColor = 'darkcyan'; %s"`,
		title, bridge)

	return launch(user, addr, keyFile, remote)
}

// Shell opens a detached terminal dropping straight into an interactive
// remote powershell. -NoExit keeps the shell alive after the title and
// color pre-command runs.
func Shell(user, addr, keyFile string) error {
	title := fmt.Sprintf("%s powershell on %s", define.WindowTitlePrefix, addr)
	remote := fmt.Sprintf(
		`powershell -NoExit -Command "$Host.UI.RawUI.WindowTitle = '%s'; $Host.UI.RawUI.ForegroundColor = 'green';"`,
		title)

	return launch(user, addr, keyFile, remote)
}

// launch starts a new terminal window running ssh with the provisioned
// key and the given remote command, then releases the process handle.
func launch(user, addr, keyFile, remote string) error {
	args := []string{"/C", "start", "",
		"ssh", "-t", "-i", keyFile, fmt.Sprintf("%s@%s", user, addr), remote}

	cmd := exec.Command("cmd", args...)
	if err := cmd.Start(); err != nil {
		return errors.Wrap(err, "failed to spawn terminal")
	}

	logrus.Debugf("spawned terminal pid %d for %s@%s", cmd.Process.Pid, user, addr)
	return cmd.Process.Release()
}

// KillByTitlePrefix terminates every process whose window title starts
// with the engine's prefix. Best effort: spawned terminals may already be
// gone, so a non-zero exit is not an error worth surfacing.
func KillByTitlePrefix() error {
	filter := fmt.Sprintf("WINDOWTITLE eq %s*", define.WindowTitlePrefix)
	if err := exec.Command("taskkill", "/f", "/fi", filter).Run(); err != nil {
		return errors.Wrap(err, "bulk terminate failed")
	}
	return nil
}

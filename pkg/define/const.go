package define

import "time"

const (
	// SSHPort is the only remote port the engine connects to.
	SSHPort = 22

	// HTTPSPort is the remote-side target port of every tunnel forward.
	HTTPSPort = 443

	DialTimeout   = 3 * time.Second
	PromptTimeout = 2 * time.Second

	// WindowTitlePrefix tags every interactive terminal the engine spawns,
	// so Stop can bulk-terminate them by title match.
	WindowTitlePrefix = "ReConSole"

	HostDataFile = "hosts.json"
	LockFile     = ".lock"

	KeyFilePrefix = "recon-key-"
)

// Remote command surface. The enumerators and the key provisioner depend
// on these exact strings; the remote host is Windows.
const (
	ConsoleEnumCommand = "wmic path Win32_SerialPort get Caption"
	NetworkEnumCommand = "ipconfig"

	// PingCommandFormat probes one address with a single packet and a 25ms
	// reply window. Non-zero exit means unreachable, not an error.
	PingCommandFormat = "ping -n 1 -w 25 %s"
)

const (
	FlagHost     = "host"
	FlagUser     = "user"
	FlagPassword = "password"
	FlagDataDir  = "data-dir"
	FlagVerbose  = "verbose"
)

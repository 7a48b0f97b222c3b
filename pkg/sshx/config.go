package sshx

import (
	"errors"
	"time"

	"recon/pkg/define"
)

// ErrInvalidConfig is returned when the configuration is invalid.
var ErrInvalidConfig = errors.New("invalid SSH configuration")

// ClientConfig contains everything needed to establish a session.
type ClientConfig struct {
	Host     string
	Port     uint16
	User     string
	Password string

	DialTimeout   time.Duration
	PromptTimeout time.Duration
}

// NewClientConfig creates a ClientConfig with default port and timeouts.
func NewClientConfig(host, user, password string) *ClientConfig {
	return &ClientConfig{
		Host:          host,
		Port:          define.SSHPort,
		User:          user,
		Password:      password,
		DialTimeout:   define.DialTimeout,
		PromptTimeout: define.PromptTimeout,
	}
}

// WithPort sets the SSH port.
func (c *ClientConfig) WithPort(port uint16) *ClientConfig {
	c.Port = port
	return c
}

// WithDialTimeout sets the connection timeout.
func (c *ClientConfig) WithDialTimeout(timeout time.Duration) *ClientConfig {
	c.DialTimeout = timeout
	return c
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.Host == "" {
		return errors.Join(ErrInvalidConfig, errors.New("host cannot be empty"))
	}
	if c.User == "" {
		return errors.Join(ErrInvalidConfig, errors.New("user cannot be empty"))
	}
	if c.Port == 0 {
		return errors.Join(ErrInvalidConfig, errors.New("port must be greater than 0"))
	}
	if c.DialTimeout <= 0 {
		return errors.Join(ErrInvalidConfig, errors.New("dial timeout must be positive"))
	}
	return nil
}

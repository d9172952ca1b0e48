package config

import (
	"strings"
	"time"

	"github.com/wirecraft-dev/wirebridge/internal/paths"
)

// Reconnect defaults.
const (
	DefaultBaseDelay      = 500 * time.Millisecond
	DefaultMaxAttempts    = 5
	DefaultConnectTimeout = 10 * time.Second
	DefaultQueryTimeout   = 5 * time.Minute
)

// Config is the top-level wirebridge configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Gateway   GatewayConfig   `toml:"gateway"`
	Reconnect ReconnectConfig `toml:"reconnect"`
	Store     StoreConfig     `toml:"store"`
}

// ServerConfig describes how to launch the tool server subprocess.
type ServerConfig struct {
	Command string            `toml:"command"`
	Args    []string          `toml:"args"`
	Env     map[string]string `toml:"env"`
}

// GatewayConfig describes the socket the gateway listens on.
// Listen accepts "unix:<path>" or a TCP "host:port"; empty means the
// default unix socket under the runtime directory.
type GatewayConfig struct {
	Listen       string `toml:"listen"`
	QueryTimeout string `toml:"query_timeout"`
}

// ReconnectConfig tunes the socket client's reconnection supervisor.
type ReconnectConfig struct {
	BaseDelayMs      int `toml:"base_delay_ms"`
	MaxAttempts      int `toml:"max_attempts"`
	ConnectTimeoutMs int `toml:"connect_timeout_ms"`
}

// StoreConfig locates the session database.
type StoreConfig struct {
	Path string `toml:"path"`
}

// Endpoint returns the network and address the gateway binds to.
func (g GatewayConfig) Endpoint() (network, addr string) {
	listen := strings.TrimSpace(g.Listen)
	switch {
	case listen == "":
		return "unix", paths.SocketPath()
	case strings.HasPrefix(listen, "unix:"):
		return "unix", strings.TrimPrefix(listen, "unix:")
	default:
		return "tcp", listen
	}
}

// QueryDeadline returns the per-query timeout, falling back to the default
// when unset.
func (g GatewayConfig) QueryDeadline() time.Duration {
	if g.QueryTimeout == "" {
		return DefaultQueryTimeout
	}
	d, err := time.ParseDuration(g.QueryTimeout)
	if err != nil || d <= 0 {
		return DefaultQueryTimeout
	}
	return d
}

// BaseDelay returns the configured backoff base delay or the default.
func (r ReconnectConfig) BaseDelay() time.Duration {
	if r.BaseDelayMs <= 0 {
		return DefaultBaseDelay
	}
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// Attempts returns the configured reconnection attempt cap or the default.
func (r ReconnectConfig) Attempts() int {
	if r.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return r.MaxAttempts
}

// ConnectTimeout returns how long a caller waits for an open channel.
func (r ReconnectConfig) ConnectTimeout() time.Duration {
	if r.ConnectTimeoutMs <= 0 {
		return DefaultConnectTimeout
	}
	return time.Duration(r.ConnectTimeoutMs) * time.Millisecond
}

// DBPath returns the session database path, defaulting under the state dir.
func (s StoreConfig) DBPath() string {
	if strings.TrimSpace(s.Path) != "" {
		return s.Path
	}
	return paths.SessionDBPath()
}

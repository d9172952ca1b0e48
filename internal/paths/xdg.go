package paths

import (
	"os"
	"path/filepath"
)

func homeDir() string {
	if h := os.Getenv("HOME"); h != "" {
		return h
	}
	h, _ := os.UserHomeDir()
	return h
}

func xdgDir(envVar, fallbackSuffix string) string {
	if v := os.Getenv(envVar); v != "" {
		return filepath.Join(v, "wirebridge")
	}
	return filepath.Join(homeDir(), fallbackSuffix, "wirebridge")
}

// ConfigDir returns the wirebridge config directory ($XDG_CONFIG_HOME/wirebridge).
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the wirebridge state directory ($XDG_STATE_HOME/wirebridge).
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// RuntimeDir returns the wirebridge runtime directory for sockets.
// Falls back to $XDG_STATE_HOME/wirebridge if XDG_RUNTIME_DIR is unset.
func RuntimeDir() string {
	if v := os.Getenv("XDG_RUNTIME_DIR"); v != "" {
		return filepath.Join(v, "wirebridge")
	}
	return StateDir()
}

// ConfigFile returns the path to config.toml.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// SocketPath returns the default gateway Unix socket path.
func SocketPath() string {
	return filepath.Join(RuntimeDir(), "gateway.sock")
}

// SessionDBPath returns the default session database path.
func SessionDBPath() string {
	return filepath.Join(StateDir(), "sessions.db")
}

// EventLogPath returns the path to the daemon event log.
func EventLogPath() string {
	return filepath.Join(StateDir(), "events.jsonl")
}

// EnsureDir creates a directory and parents if needed.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0700)
}

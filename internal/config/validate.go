package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Validate checks configuration invariants and returns actionable errors.
// The tool server command is checked separately by commands that connect,
// so a config without [server] is still valid for session inspection.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var errs []error

	if listen := strings.TrimSpace(cfg.Gateway.Listen); listen != "" && !strings.HasPrefix(listen, "unix:") {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			errs = append(errs, fmt.Errorf("gateway.listen: invalid address %q: %w", listen, err))
		}
	}

	if cfg.Gateway.QueryTimeout != "" {
		d, err := time.ParseDuration(cfg.Gateway.QueryTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("gateway.query_timeout: invalid duration %q: %w", cfg.Gateway.QueryTimeout, err))
		} else if d <= 0 {
			errs = append(errs, fmt.Errorf("gateway.query_timeout: must be > 0, got %q", cfg.Gateway.QueryTimeout))
		}
	}

	if cfg.Reconnect.BaseDelayMs < 0 {
		errs = append(errs, fmt.Errorf("reconnect.base_delay_ms: must be >= 0, got %d", cfg.Reconnect.BaseDelayMs))
	}
	if cfg.Reconnect.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("reconnect.max_attempts: must be >= 0, got %d", cfg.Reconnect.MaxAttempts))
	}
	if cfg.Reconnect.ConnectTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("reconnect.connect_timeout_ms: must be >= 0, got %d", cfg.Reconnect.ConnectTimeoutMs))
	}

	return errors.Join(errs...)
}

// ValidateServer checks that the tool server launch command is present.
// Commands that spawn the subprocess call this before connecting.
func ValidateServer(cfg *Config) error {
	if cfg == nil || strings.TrimSpace(cfg.Server.Command) == "" {
		return fmt.Errorf("server.command: missing tool server launch command (set it in %s or pass --command)", ExampleConfigPath())
	}
	return nil
}

// Package daemon wires the connector, supervisor, session store and gateway
// into the long-running bridge process.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/wirecraft-dev/wirebridge/internal/config"
	"github.com/wirecraft-dev/wirebridge/internal/connector"
	"github.com/wirecraft-dev/wirebridge/internal/dispatcher"
	"github.com/wirecraft-dev/wirebridge/internal/eventlog"
	"github.com/wirecraft-dev/wirebridge/internal/gateway"
	"github.com/wirecraft-dev/wirebridge/internal/paths"
	"github.com/wirecraft-dev/wirebridge/internal/reconnect"
	"github.com/wirecraft-dev/wirebridge/internal/session"
)

// Run starts the bridge daemon and blocks until SIGINT or SIGTERM.
func Run(cfg *config.Config) error {
	if err := config.ValidateServer(cfg); err != nil {
		return err
	}

	if err := paths.EnsureDir(paths.StateDir()); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}

	network, addr := cfg.Gateway.Endpoint()
	if network == "unix" {
		if err := paths.EnsureDir(filepath.Dir(addr)); err != nil {
			return fmt.Errorf("creating runtime dir: %w", err)
		}
	}

	log, err := eventlog.NewLogger(paths.EventLogPath())
	if err != nil {
		return fmt.Errorf("opening event log: %w", err)
	}

	store, err := session.NewStore(cfg.Store.DBPath())
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}
	defer store.Close()

	conn := connector.New()
	disp := dispatcher.New(conn)

	sup := reconnect.New(
		func(ctx context.Context) error {
			return conn.Connect(ctx, cfg.Server.Command, cfg.Server.Args, cfg.Server.Env)
		},
		conn.Disconnect,
		reconnect.Options{
			BaseDelay:      cfg.Reconnect.BaseDelay(),
			MaxAttempts:    cfg.Reconnect.Attempts(),
			ConnectTimeout: cfg.Reconnect.ConnectTimeout(),
			OnEvent:        supervisorEvents(log),
		},
	)
	sup.Start()
	defer sup.Stop()

	runner := NewToolRunner(sup, disp, log, cfg.Reconnect.ConnectTimeout())

	srv := gateway.NewServer(network, addr, cfg.Gateway.QueryDeadline(), store, log, runner.Run)
	if err := srv.Start(); err != nil {
		return err
	}
	defer srv.Stop()

	fmt.Fprintf(os.Stderr, "wirebridge daemon: listening on %s\n", addr)
	_ = log.Append(eventlog.LogEvent{Event: eventlog.EventDaemonStarted, Data: map[string]any{"listen": addr}})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Fprintln(os.Stderr, "wirebridge daemon: shutting down")
	_ = log.Append(eventlog.LogEvent{Event: eventlog.EventDaemonStopped})
	return nil
}

func supervisorEvents(log *eventlog.Logger) func(state reconnect.State, attempt int) {
	return func(state reconnect.State, attempt int) {
		switch state {
		case reconnect.StateOpen:
			_ = log.Append(eventlog.LogEvent{Event: eventlog.EventConnected})
		case reconnect.StateClosed:
			_ = log.Append(eventlog.LogEvent{Event: eventlog.EventDisconnected})
		case reconnect.StateConnecting:
			if attempt > 0 {
				_ = log.Append(eventlog.LogEvent{Event: eventlog.EventReconnecting, Attempt: attempt})
			}
		case reconnect.StateGivenUp:
			_ = log.Append(eventlog.LogEvent{Event: eventlog.EventGaveUp, Attempt: attempt})
		}
	}
}

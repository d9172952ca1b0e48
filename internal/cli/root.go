// Package cli defines Cobra command definitions for the wirebridge CLI.
// This file contains the root command and exit code mapping.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wirecraft-dev/wirebridge/internal/config"
	"github.com/wirecraft-dev/wirebridge/internal/wire"
)

var (
	configPath string
	version    = "dev" // set via ldflags at build time
)

// Error markers used to pick the process exit code.
var (
	errUsage      = errors.New("usage error")
	errToolFailed = errors.New("tool failed")
)

var rootCmd = &cobra.Command{
	Use:   "wirebridge",
	Short: "Bridge between interactive clients and an MCP tool server",
	Long: `Wirebridge runs an MCP tool server as a subprocess and exposes it
over a local socket. Clients send queries and receive streamed
progress, results and errors; every query is persisted as a session.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "wirebridge: "+err.Error())
		return exitCode(err)
	}
	return wire.ExitOK
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, errToolFailed):
		return wire.ExitToolErr
	case errors.Is(err, errUsage):
		return wire.ExitUsageErr
	default:
		return wire.ExitInternal
	}
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if verr := config.Validate(cfg); verr != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, verr)
	}
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default "+config.ExampleConfigPath()+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(promptsCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(deleteCmd)
}

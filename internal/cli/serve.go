// serve.go implements the "wirebridge serve" command running the daemon.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/wirecraft-dev/wirebridge/internal/daemon"
)

var (
	serveCommand string
	serveListen  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bridge daemon",
	Long: `Start the daemon: spawn the tool server subprocess, keep the
connection alive with reconnection backoff, and serve the client
socket until interrupted.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveCommand != "" {
		cfg.Server.Command = serveCommand
	}
	if serveListen != "" {
		cfg.Gateway.Listen = serveListen
	}
	return daemon.Run(cfg)
}

func init() {
	serveCmd.Flags().StringVar(&serveCommand, "command", "", "Tool server launch command (overrides config)")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Gateway listen address, \"unix:<path>\" or \"host:port\"")
}

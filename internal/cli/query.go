// query.go implements "wirebridge query" and "wirebridge ping" against a
// running daemon.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wirecraft-dev/wirebridge/internal/gateway"
	"github.com/wirecraft-dev/wirebridge/internal/wire"
)

var querySession string

var queryCmd = &cobra.Command{
	Use:   "query <text>...",
	Short: "Send a query to the daemon and stream its progress",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	network, addr := cfg.Gateway.Endpoint()
	client := gateway.NewClient(network, addr)

	res, err := client.Query(cmd.Context(), strings.Join(args, " "), querySession, func(p wire.Progress) {
		fmt.Fprintf(os.Stderr, "[%3d%%] %s: %s\n", p.Progress, p.Status, p.Message)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "session: %s\n", res.SessionID)
	for _, m := range res.Messages {
		fmt.Printf("%s: %s\n", m.Role, m.Content)
	}
	return nil
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		network, addr := cfg.Gateway.Endpoint()
		if err := gateway.NewClient(network, addr).Ping(context.Background()); err != nil {
			return err
		}
		fmt.Println("pong")
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVar(&querySession, "session", "", "Continue an existing session by id")
}

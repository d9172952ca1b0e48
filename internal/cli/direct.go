// direct.go connects straight to the tool server for one-shot commands
// that do not need the daemon.
package cli

import (
	"context"
	"fmt"

	"github.com/wirecraft-dev/wirebridge/internal/config"
	"github.com/wirecraft-dev/wirebridge/internal/connector"
	"github.com/wirecraft-dev/wirebridge/internal/dispatcher"
)

// withToolServer spawns the configured tool server, runs fn, and tears the
// subprocess down again.
func withToolServer(fn func(ctx context.Context, disp *dispatcher.Dispatcher) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.ValidateServer(cfg); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	conn := connector.New()
	connectCtx, cancel := context.WithTimeout(context.Background(), cfg.Reconnect.ConnectTimeout())
	defer cancel()
	if err := conn.Connect(connectCtx, cfg.Server.Command, cfg.Server.Args, cfg.Server.Env); err != nil {
		return err
	}
	defer conn.Disconnect()

	return fn(context.Background(), dispatcher.New(conn))
}

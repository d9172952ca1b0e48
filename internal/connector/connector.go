// Package connector owns the stdio subprocess channel to the tool server.
package connector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const protocolVersion = "2025-11-25"

// ErrNotConnected is returned when an operation requires a live connection
// and none exists (or the initialize exchange has not completed yet).
var ErrNotConnected = errors.New("not connected to tool server")

// ConnectError wraps failures to spawn the subprocess or complete the
// initialize handshake. It is fatal to the connect call, not to the process.
type ConnectError struct {
	Err error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to tool server: %v", e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Seam for tests: spawning a real subprocess is replaced in unit tests.
var newStdioClient = func(command string, env []string, args ...string) (*mcpclient.Client, error) {
	return mcpclient.NewStdioMCPClient(command, env, args...)
}

// Connector holds at most one live channel to the tool server. The channel
// is owned exclusively by the Connector; callers share it only through a
// Dispatcher, never by holding the raw client.
type Connector struct {
	mu     sync.Mutex
	client *mcpclient.Client
}

// New returns a disconnected Connector.
func New() *Connector {
	return &Connector{}
}

// Connect spawns the tool server subprocess and performs the initialize
// exchange. The connection is not observable as live until the handshake
// completes, so requests racing a Connect fail with ErrNotConnected rather
// than hitting an uninitialized channel.
func (c *Connector) Connect(ctx context.Context, command string, args []string, env map[string]string) error {
	c.mu.Lock()
	if c.client != nil {
		c.mu.Unlock()
		return &ConnectError{Err: errors.New("already connected")}
	}
	c.mu.Unlock()

	envSlice := make([]string, 0, len(env))
	for k, v := range env {
		envSlice = append(envSlice, k+"="+v)
	}

	cl, err := newStdioClient(command, envSlice, args...)
	if err != nil {
		return &ConnectError{Err: fmt.Errorf("creating stdio client: %w", err)}
	}

	if _, err := cl.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: protocolVersion,
			ClientInfo: mcp.Implementation{
				Name:    "wirebridge",
				Version: "0.1.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}); err != nil {
		cl.Close()
		return &ConnectError{Err: fmt.Errorf("initializing: %w", err)}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		// Lost the race to a concurrent Connect; release ours.
		cl.Close()
		return &ConnectError{Err: errors.New("already connected")}
	}
	c.client = cl
	return nil
}

// Disconnect releases the subprocess channel. Safe to call at any time,
// including before a successful Connect and repeatedly.
func (c *Connector) Disconnect() error {
	c.mu.Lock()
	cl := c.client
	c.client = nil
	c.mu.Unlock()

	if cl == nil {
		return nil
	}
	return cl.Close()
}

// IsConnected reports whether the initialize exchange has completed on a
// live channel.
func (c *Connector) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// Client returns the underlying MCP client, or ErrNotConnected.
func (c *Connector) Client() (*mcpclient.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil, ErrNotConnected
	}
	return c.client, nil
}

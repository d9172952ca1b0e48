package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/wirecraft-dev/wirebridge/internal/wire"
)

// Client sends queries to a running gateway and streams back events.
type Client struct {
	network string
	addr    string
}

// NewClient creates a client for the gateway at the given endpoint.
func NewClient(network, addr string) *Client {
	return &Client{network: network, addr: addr}
}

// Query sends one query, invokes onProgress for each progress event, and
// returns the final result. An error envelope becomes a Go error.
func (c *Client) Query(ctx context.Context, query, sessionID string, onProgress ProgressFunc) (*wire.Result, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, c.network, c.addr)
	if err != nil {
		return nil, fmt.Errorf("connecting to gateway: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	id := uuid.New().String()
	if err := json.NewEncoder(conn).Encode(&wire.Envelope{
		Type:      wire.TypeQuery,
		ID:        id,
		Query:     query,
		SessionID: sessionID,
	}); err != nil {
		return nil, fmt.Errorf("sending query: %w", err)
	}

	dec := json.NewDecoder(conn)
	for {
		var env wire.Envelope
		if err := dec.Decode(&env); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("reading event: %w", err)
		}
		if env.ID != id {
			continue // event for another query on a shared connection
		}

		switch env.Type {
		case wire.TypeProgress:
			if onProgress != nil {
				p, err := wire.DecodeProgress(&env)
				if err != nil {
					return nil, err
				}
				onProgress(p)
			}
		case wire.TypeResult:
			res, err := wire.DecodeResult(&env)
			if err != nil {
				return nil, err
			}
			return &res, nil
		case wire.TypeError:
			return nil, fmt.Errorf("%s", wire.DecodeError(&env))
		}
	}
}

// Ping checks that the gateway is reachable and answering.
func (c *Client) Ping(ctx context.Context) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, c.network, c.addr)
	if err != nil {
		return fmt.Errorf("connecting to gateway: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	id := uuid.New().String()
	if err := json.NewEncoder(conn).Encode(&wire.Envelope{Type: wire.TypePing, ID: id}); err != nil {
		return fmt.Errorf("sending ping: %w", err)
	}

	var env wire.Envelope
	if err := json.NewDecoder(conn).Decode(&env); err != nil {
		return fmt.Errorf("reading pong: %w", err)
	}
	if env.Type != wire.TypePong || env.ID != id {
		return fmt.Errorf("unexpected reply %q", env.Type)
	}
	return nil
}

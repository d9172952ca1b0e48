// Package dispatcher turns domain operations into single request/response
// round trips over the connector's channel.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wirecraft-dev/wirebridge/internal/connector"
)

// ErrTransport marks a live connection dying mid-request. The pending call
// is rejected with it rather than left hanging.
var ErrTransport = errors.New("transport failure")

// rpcClient is the slice of the MCP client the dispatcher needs.
type rpcClient interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
}

// ToolResult carries either a success payload or a tool-reported failure.
// A tool-level failure is data, not a Go error: the bridge never conflates
// it with transport failure.
type ToolResult struct {
	Content string
	IsError bool
}

// PromptResult is the rendered prompt returned by GetPrompt.
type PromptResult struct {
	Description string
	Messages    []PromptMessage
}

// PromptMessage is one message of a rendered prompt.
type PromptMessage struct {
	Role    string
	Content string
}

// Dispatcher issues typed operations over the connector. Correlation of
// concurrent calls is delegated to the MCP client's per-request ids; the
// dispatcher itself never interprets payloads.
type Dispatcher struct {
	client func() (rpcClient, error)

	mu    sync.Mutex
	tools []ToolDescriptor // read-only cache from the last ListTools
}

// New builds a Dispatcher over the given connector.
func New(c *connector.Connector) *Dispatcher {
	return &Dispatcher{
		client: func() (rpcClient, error) {
			cl, err := c.Client()
			if err != nil {
				return nil, err
			}
			return cl, nil
		},
	}
}

// ListTools fetches the tool catalogue and refreshes the descriptor cache.
func (d *Dispatcher) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	cl, err := d.client()
	if err != nil {
		return nil, err
	}

	res, err := cl.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing tools: %w: %v", ErrTransport, err)
	}

	descriptors := make([]ToolDescriptor, 0, len(res.Tools))
	for _, t := range res.Tools {
		descriptors = append(descriptors, describeTool(t))
	}

	d.mu.Lock()
	d.tools = descriptors
	d.mu.Unlock()
	return descriptors, nil
}

// ListPrompts fetches the prompt catalogue.
func (d *Dispatcher) ListPrompts(ctx context.Context) ([]PromptDescriptor, error) {
	cl, err := d.client()
	if err != nil {
		return nil, err
	}

	res, err := cl.ListPrompts(ctx, mcp.ListPromptsRequest{})
	if err != nil {
		return nil, fmt.Errorf("listing prompts: %w: %v", ErrTransport, err)
	}

	descriptors := make([]PromptDescriptor, 0, len(res.Prompts))
	for _, p := range res.Prompts {
		descriptors = append(descriptors, describePrompt(p))
	}
	return descriptors, nil
}

// CallTool invokes one tool and awaits its single matching response.
// Server-reported failures (unknown tool, invalid params, tool errors)
// come back inside the ToolResult; only a dead channel is a Go error.
func (d *Dispatcher) CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error) {
	cl, err := d.client()
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := cl.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		if isToolLevelError(err) {
			return &ToolResult{Content: err.Error(), IsError: true}, nil
		}
		return nil, fmt.Errorf("calling tool %s: %w: %v", name, ErrTransport, err)
	}

	return &ToolResult{
		Content: flattenContent(res.Content),
		IsError: res.IsError,
	}, nil
}

// GetPrompt fetches a rendered prompt by name.
func (d *Dispatcher) GetPrompt(ctx context.Context, name string, args map[string]string) (*PromptResult, error) {
	cl, err := d.client()
	if err != nil {
		return nil, err
	}

	res, err := cl.GetPrompt(ctx, mcp.GetPromptRequest{
		Params: mcp.GetPromptParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		if isToolLevelError(err) {
			return nil, fmt.Errorf("prompt %s: %v", name, err)
		}
		return nil, fmt.Errorf("getting prompt %s: %w: %v", name, ErrTransport, err)
	}

	out := &PromptResult{Description: res.Description}
	for _, m := range res.Messages {
		out.Messages = append(out.Messages, PromptMessage{
			Role:    string(m.Role),
			Content: flattenContent([]mcp.Content{m.Content}),
		})
	}
	return out, nil
}

// CachedTools returns the descriptors from the last successful ListTools.
func (d *Dispatcher) CachedTools() []ToolDescriptor {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tools
}

// isToolLevelError reports whether the server responded with a protocol
// error for this specific call (the channel is still healthy). Everything
// else is treated as transport failure.
func isToolLevelError(err error) bool {
	if errors.Is(err, mcp.ErrInvalidParams) || errors.Is(err, mcp.ErrMethodNotFound) {
		return true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "-32602") || strings.Contains(msg, "-32601") || strings.Contains(msg, "-32603") {
		return true
	}
	if strings.Contains(msg, "invalid params") || strings.Contains(msg, "method not found") {
		return true
	}
	return strings.Contains(msg, "unknown tool") || strings.Contains(msg, "tool not found")
}

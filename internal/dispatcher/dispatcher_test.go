package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/wirecraft-dev/wirebridge/internal/connector"
)

type fakeClient struct {
	listTools   func(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	listPrompts func(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error)
	callTool    func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	getPrompt   func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error)
}

func (f *fakeClient) ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	return f.listTools(ctx, req)
}

func (f *fakeClient) ListPrompts(ctx context.Context, req mcp.ListPromptsRequest) (*mcp.ListPromptsResult, error) {
	return f.listPrompts(ctx, req)
}

func (f *fakeClient) CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return f.callTool(ctx, req)
}

func (f *fakeClient) GetPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return f.getPrompt(ctx, req)
}

func newTestDispatcher(f *fakeClient) *Dispatcher {
	return &Dispatcher{client: func() (rpcClient, error) { return f, nil }}
}

func newDisconnectedDispatcher() *Dispatcher {
	return &Dispatcher{client: func() (rpcClient, error) { return nil, connector.ErrNotConnected }}
}

func TestOperationsFailWhenNotConnected(t *testing.T) {
	d := newDisconnectedDispatcher()
	ctx := context.Background()

	if _, err := d.ListTools(ctx); !errors.Is(err, connector.ErrNotConnected) {
		t.Errorf("ListTools() error = %v, want ErrNotConnected", err)
	}
	if _, err := d.ListPrompts(ctx); !errors.Is(err, connector.ErrNotConnected) {
		t.Errorf("ListPrompts() error = %v, want ErrNotConnected", err)
	}
	if _, err := d.CallTool(ctx, "get_document_info", nil); !errors.Is(err, connector.ErrNotConnected) {
		t.Errorf("CallTool() error = %v, want ErrNotConnected", err)
	}
	if _, err := d.GetPrompt(ctx, "greeting", nil); !errors.Is(err, connector.ErrNotConnected) {
		t.Errorf("GetPrompt() error = %v, want ErrNotConnected", err)
	}
}

func TestCallToolReturnsFlattenedText(t *testing.T) {
	f := &fakeClient{
		callTool: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if req.Params.Name != "get_document_info" {
				t.Fatalf("tool name = %q", req.Params.Name)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{
					mcp.TextContent{Type: "text", Text: "doc"},
					mcp.TextContent{Type: "text", Text: "info"},
				},
			}, nil
		},
	}

	res, err := newTestDispatcher(f).CallTool(context.Background(), "get_document_info", map[string]any{})
	if err != nil {
		t.Fatalf("CallTool() error = %v", err)
	}
	if res.IsError {
		t.Error("IsError = true, want false")
	}
	if res.Content != "doc\ninfo" {
		t.Errorf("Content = %q, want %q", res.Content, "doc\ninfo")
	}
}

func TestCallToolServerErrorBecomesToolResult(t *testing.T) {
	f := &fakeClient{
		callTool: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, fmt.Errorf("request failed: method not found (-32601)")
		},
	}

	res, err := newTestDispatcher(f).CallTool(context.Background(), "nonexistent_tool", nil)
	if err != nil {
		t.Fatalf("CallTool() error = %v, want nil (tool-level failure)", err)
	}
	if !res.IsError {
		t.Error("IsError = false, want true")
	}
	if res.Content == "" {
		t.Error("Content empty, want diagnostic text")
	}
}

func TestCallToolChannelDeathIsTransportError(t *testing.T) {
	f := &fakeClient{
		callTool: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return nil, io.ErrClosedPipe
		},
	}

	_, err := newTestDispatcher(f).CallTool(context.Background(), "create_rectangle", nil)
	if !errors.Is(err, ErrTransport) {
		t.Fatalf("CallTool() error = %v, want ErrTransport", err)
	}
}

func TestListToolsBuildsDescriptorsAndCaches(t *testing.T) {
	f := &fakeClient{
		listTools: func(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
			return &mcp.ListToolsResult{
				Tools: []mcp.Tool{{
					Name:        "create_rectangle",
					Description: "Create a rectangle",
					InputSchema: mcp.ToolInputSchema{
						Type: "object",
						Properties: map[string]any{
							"width":  map[string]any{"type": "number"},
							"height": map[string]any{"type": "number"},
							"name":   map[string]any{"type": "string"},
						},
						Required: []string{"width", "height"},
					},
				}},
			}, nil
		},
	}

	d := newTestDispatcher(f)
	tools, err := d.ListTools(context.Background())
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("len(tools) = %d, want 1", len(tools))
	}

	tool := tools[0]
	if tool.Name != "create_rectangle" {
		t.Errorf("Name = %q", tool.Name)
	}
	if len(tool.Params) != 3 {
		t.Fatalf("len(Params) = %d, want 3", len(tool.Params))
	}
	// Params are sorted by name: height, name, width.
	if !tool.Params[0].Required || tool.Params[1].Required || !tool.Params[2].Required {
		t.Errorf("required flags = %v", tool.Params)
	}

	cached := d.CachedTools()
	if len(cached) != 1 || cached[0].Name != "create_rectangle" {
		t.Errorf("CachedTools() = %v", cached)
	}
}

func TestValidateArgs(t *testing.T) {
	desc := ToolDescriptor{
		Name: "create_rectangle",
		Params: []ParamDescriptor{
			{Name: "width", Type: "number", Required: true},
			{Name: "name", Type: "string"},
		},
	}

	if err := desc.ValidateArgs(map[string]any{"width": 10}); err != nil {
		t.Errorf("ValidateArgs(width) error = %v", err)
	}
	if err := desc.ValidateArgs(map[string]any{"name": "r"}); err == nil {
		t.Error("ValidateArgs without required width = nil, want error")
	}
	if err := desc.ValidateArgs(map[string]any{"width": 10, "bogus": 1}); err == nil {
		t.Error("ValidateArgs with unknown argument = nil, want error")
	}
}

func TestConcurrentCallsResolveWithOwnResponses(t *testing.T) {
	// B completes before A; each call must still get the response tagged
	// for it, not whichever arrived first.
	f := &fakeClient{
		callTool: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			if req.Params.Name == "slow" {
				time.Sleep(50 * time.Millisecond)
			}
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.TextContent{Type: "text", Text: "result:" + req.Params.Name}},
			}, nil
		},
	}
	d := newTestDispatcher(f)

	var wg sync.WaitGroup
	results := make(map[string]string)
	var mu sync.Mutex
	for _, name := range []string{"slow", "fast"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			res, err := d.CallTool(context.Background(), name, nil)
			if err != nil {
				t.Errorf("CallTool(%s) error = %v", name, err)
				return
			}
			mu.Lock()
			results[name] = res.Content
			mu.Unlock()
		}(name)
	}
	wg.Wait()

	if results["slow"] != "result:slow" || results["fast"] != "result:fast" {
		t.Fatalf("cross-delivered responses: %v", results)
	}
}

func TestGetPromptRendersMessages(t *testing.T) {
	f := &fakeClient{
		getPrompt: func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
			return &mcp.GetPromptResult{
				Description: "greeting prompt",
				Messages: []mcp.PromptMessage{{
					Role:    mcp.RoleUser,
					Content: mcp.TextContent{Type: "text", Text: "hello"},
				}},
			}, nil
		},
	}

	res, err := newTestDispatcher(f).GetPrompt(context.Background(), "greeting", map[string]string{"name": "w"})
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}
	if res.Description != "greeting prompt" {
		t.Errorf("Description = %q", res.Description)
	}
	if len(res.Messages) != 1 || res.Messages[0].Content != "hello" {
		t.Errorf("Messages = %v", res.Messages)
	}
}

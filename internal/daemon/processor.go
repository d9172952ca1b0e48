package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wirecraft-dev/wirebridge/internal/connector"
	"github.com/wirecraft-dev/wirebridge/internal/dispatcher"
	"github.com/wirecraft-dev/wirebridge/internal/eventlog"
	"github.com/wirecraft-dev/wirebridge/internal/gateway"
	"github.com/wirecraft-dev/wirebridge/internal/wire"
)

// Progress stages reported while a query runs.
const (
	stageInitializing  = "initializing"
	stageExecutingTool = "executing_tool"
	stageCompleted     = "completed"
)

type toolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*dispatcher.ToolResult, error)
	ListTools(ctx context.Context) ([]dispatcher.ToolDescriptor, error)
	CachedTools() []dispatcher.ToolDescriptor
}

type channelWaiter interface {
	WaitOpen(ctx context.Context) error
	NotifyFailure()
}

// ToolRunner executes queries of the form "<tool> <json-args>" against the
// tool server. It waits for an open channel before each call and reports
// transport failures back to the supervisor.
type ToolRunner struct {
	sup         channelWaiter
	disp        toolCaller
	log         *eventlog.Logger
	connectWait time.Duration
}

// NewToolRunner creates a runner over the given supervisor and dispatcher.
func NewToolRunner(sup channelWaiter, disp toolCaller, log *eventlog.Logger, connectWait time.Duration) *ToolRunner {
	return &ToolRunner{sup: sup, disp: disp, log: log, connectWait: connectWait}
}

// Run implements gateway.Handler.
func (r *ToolRunner) Run(ctx context.Context, query string, emit gateway.ProgressFunc) (string, error) {
	emit(wire.Progress{Status: stageInitializing, Message: "connecting to tool server", Progress: 20})

	waitCtx, cancel := context.WithTimeout(ctx, r.connectWait)
	err := r.sup.WaitOpen(waitCtx)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("tool server not connected")
		}
		return "", err
	}

	tool, args, err := parseQuery(query)
	if err != nil {
		return "", err
	}

	if desc, ok := r.lookupTool(ctx, tool); ok {
		if err := desc.ValidateArgs(args); err != nil {
			return "", fmt.Errorf("tool %s: %w", tool, err)
		}
	}

	emit(wire.Progress{Status: stageExecutingTool, Message: "calling " + tool, Progress: 60})
	if r.log != nil {
		_ = r.log.Append(eventlog.LogEvent{Event: eventlog.EventToolCalled, Tool: tool})
	}

	res, err := r.disp.CallTool(ctx, tool, args)
	if err != nil {
		if errors.Is(err, dispatcher.ErrTransport) || errors.Is(err, connector.ErrNotConnected) {
			r.sup.NotifyFailure()
		}
		return "", err
	}
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", tool, res.Content)
	}

	emit(wire.Progress{Status: stageCompleted, Message: "done", Progress: 100})
	return res.Content, nil
}

// lookupTool finds the tool's descriptor, refreshing the catalogue once if
// it has never been fetched.
func (r *ToolRunner) lookupTool(ctx context.Context, name string) (dispatcher.ToolDescriptor, bool) {
	tools := r.disp.CachedTools()
	if len(tools) == 0 {
		fetched, err := r.disp.ListTools(ctx)
		if err != nil {
			return dispatcher.ToolDescriptor{}, false
		}
		tools = fetched
	}
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return dispatcher.ToolDescriptor{}, false
}

// parseQuery splits "<tool> <json-args>" into a tool name and arguments.
// Missing args default to an empty object.
func parseQuery(query string) (string, map[string]any, error) {
	query = strings.TrimSpace(query)
	tool, rest, _ := strings.Cut(query, " ")
	if tool == "" {
		return "", nil, fmt.Errorf("empty query")
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return tool, map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(rest), &args); err != nil {
		return "", nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return tool, args, nil
}

package dispatcher

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// flattenContent renders MCP content parts as text. Non-text parts are kept
// as their raw JSON so nothing the tool server said is dropped.
func flattenContent(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if text, ok := renderContent(c); ok {
			parts = append(parts, text)
			continue
		}
		if raw, err := json.Marshal(c); err == nil {
			parts = append(parts, string(raw))
		}
	}
	return strings.Join(parts, "\n")
}

func renderContent(content mcp.Content) (string, bool) {
	switch c := content.(type) {
	case mcp.TextContent:
		return c.Text, true
	case *mcp.TextContent:
		return c.Text, true
	default:
		var typed struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		raw, err := json.Marshal(content)
		if err != nil || json.Unmarshal(raw, &typed) != nil {
			return "", false
		}
		if typed.Type == "text" {
			return typed.Text, true
		}
		return "", false
	}
}

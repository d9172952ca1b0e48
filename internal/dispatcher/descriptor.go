package dispatcher

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolDescriptor is the cached, read-only view of one tool: its name,
// description, and the named parameters of its input schema.
type ToolDescriptor struct {
	Name        string
	Description string
	Params      []ParamDescriptor
	InputSchema json.RawMessage
}

// ParamDescriptor is one named input parameter.
type ParamDescriptor struct {
	Name     string
	Type     string
	Required bool
}

// PromptDescriptor describes one prompt exposed by the tool server.
type PromptDescriptor struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

// PromptArgument is one named prompt argument.
type PromptArgument struct {
	Name     string
	Required bool
}

func describeTool(t mcp.Tool) ToolDescriptor {
	desc := ToolDescriptor{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: marshalInputSchema(t),
	}

	required := make(map[string]bool, len(t.InputSchema.Required))
	for _, name := range t.InputSchema.Required {
		required[name] = true
	}

	for name, prop := range t.InputSchema.Properties {
		paramType := ""
		if m, ok := prop.(map[string]any); ok {
			if s, ok := m["type"].(string); ok {
				paramType = s
			}
		}
		desc.Params = append(desc.Params, ParamDescriptor{
			Name:     name,
			Type:     paramType,
			Required: required[name],
		})
	}
	sort.Slice(desc.Params, func(i, j int) bool {
		return desc.Params[i].Name < desc.Params[j].Name
	})

	return desc
}

func describePrompt(p mcp.Prompt) PromptDescriptor {
	desc := PromptDescriptor{
		Name:        p.Name,
		Description: p.Description,
	}
	for _, a := range p.Arguments {
		desc.Arguments = append(desc.Arguments, PromptArgument{
			Name:     a.Name,
			Required: a.Required,
		})
	}
	return desc
}

func marshalInputSchema(t mcp.Tool) json.RawMessage {
	if len(t.RawInputSchema) > 0 {
		return t.RawInputSchema
	}
	b, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil
	}
	return b
}

// ValidateArgs checks a call's arguments against a descriptor at the schema
// boundary: required parameters must be present and no unknown parameters
// are allowed when the schema names its properties. Values themselves stay
// opaque to the bridge.
func (desc ToolDescriptor) ValidateArgs(args map[string]any) error {
	known := make(map[string]bool, len(desc.Params))
	for _, p := range desc.Params {
		known[p.Name] = true
		if p.Required {
			if _, ok := args[p.Name]; !ok {
				return fmt.Errorf("missing required argument %q", p.Name)
			}
		}
	}

	if len(known) > 0 {
		for name := range args {
			if !known[name] {
				return fmt.Errorf("unknown argument %q", name)
			}
		}
	}
	return nil
}

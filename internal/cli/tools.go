// tools.go implements "wirebridge tools" and "wirebridge prompts".
package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wirecraft-dev/wirebridge/internal/dispatcher"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List tools exposed by the tool server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withToolServer(func(ctx context.Context, disp *dispatcher.Dispatcher) error {
			tools, err := disp.ListTools(ctx)
			if err != nil {
				return err
			}
			for _, t := range tools {
				line := t.Name
				if desc := strings.TrimSpace(t.Description); desc != "" {
					line += "\t" + desc
				}
				fmt.Println(line)
				for _, p := range t.Params {
					marker := ""
					if p.Required {
						marker = " (required)"
					}
					fmt.Printf("  %s %s%s\n", p.Name, p.Type, marker)
				}
			}
			return nil
		})
	},
}

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "List prompts exposed by the tool server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withToolServer(func(ctx context.Context, disp *dispatcher.Dispatcher) error {
			prompts, err := disp.ListPrompts(ctx)
			if err != nil {
				return err
			}
			for _, p := range prompts {
				line := p.Name
				if desc := strings.TrimSpace(p.Description); desc != "" {
					line += "\t" + desc
				}
				fmt.Println(line)
				for _, a := range p.Arguments {
					marker := ""
					if a.Required {
						marker = " (required)"
					}
					fmt.Printf("  %s%s\n", a.Name, marker)
				}
			}
			return nil
		})
	},
}

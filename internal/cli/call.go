// call.go implements "wirebridge call" invoking one tool directly.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wirecraft-dev/wirebridge/internal/dispatcher"
)

var callPromptArgs string

var callCmd = &cobra.Command{
	Use:   "call <tool> [json-args]",
	Short: "Call one tool and print its output",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runCall,
}

func runCall(cmd *cobra.Command, cmdArgs []string) error {
	tool := cmdArgs[0]
	toolArgs := map[string]any{}
	if len(cmdArgs) == 2 {
		if err := json.Unmarshal([]byte(cmdArgs[1]), &toolArgs); err != nil {
			return fmt.Errorf("%w: invalid tool arguments: %v", errUsage, err)
		}
	}

	return withToolServer(func(ctx context.Context, disp *dispatcher.Dispatcher) error {
		res, err := disp.CallTool(ctx, tool, toolArgs)
		if err != nil {
			return err
		}
		if res.IsError {
			fmt.Fprintln(os.Stderr, res.Content)
			return fmt.Errorf("%w: %s", errToolFailed, tool)
		}
		fmt.Println(res.Content)
		return nil
	})
}

var getPromptCmd = &cobra.Command{
	Use:   "prompt <name>",
	Short: "Fetch a rendered prompt by name",
	Args:  cobra.ExactArgs(1),
	RunE:  runGetPrompt,
}

func runGetPrompt(cmd *cobra.Command, cmdArgs []string) error {
	args := map[string]string{}
	if callPromptArgs != "" {
		if err := json.Unmarshal([]byte(callPromptArgs), &args); err != nil {
			return fmt.Errorf("%w: invalid prompt arguments: %v", errUsage, err)
		}
	}

	return withToolServer(func(ctx context.Context, disp *dispatcher.Dispatcher) error {
		res, err := disp.GetPrompt(ctx, cmdArgs[0], args)
		if err != nil {
			return err
		}
		for _, m := range res.Messages {
			fmt.Printf("%s: %s\n", m.Role, m.Content)
		}
		return nil
	})
}

func init() {
	getPromptCmd.Flags().StringVar(&callPromptArgs, "args", "", "Prompt arguments as a JSON object")
	rootCmd.AddCommand(getPromptCmd)
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
)

// ShellTool returns the shell tool, which runs a command through the
// execution environment's shell and reports stdout, stderr, and exit
// status.
func ShellTool() RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "shell",
			Description: "Execute a shell command.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"command":     map[string]any{"type": "string"},
					"timeout_ms":  map[string]any{"type": "integer"},
					"description": map[string]any{"type": "string"},
				},
				"required": []string{"command"},
			},
		},
		Executor: func(ctx context.Context, args map[string]any, env execution.Environment) (string, error) {
			command, err := argString(args, "command")
			if err != nil {
				return "", err
			}
			timeoutMS := int64(argIntDefault(args, "timeout_ms", 10_000))

			result, err := env.ExecCommand(ctx, command, timeoutMS, "", nil)
			if err != nil {
				return "", err
			}

			var chunks []string
			if s := strings.TrimRight(result.Stdout, "\n"); s != "" {
				chunks = append(chunks, s)
			}
			if s := strings.TrimRight(result.Stderr, "\n"); s != "" {
				chunks = append(chunks, s)
			}
			chunks = append(chunks, fmt.Sprintf("exit_code: %d", result.ExitCode))
			if result.TimedOut {
				chunks = append(chunks, fmt.Sprintf("[ERROR: Command timed out after %dms]", timeoutMS))
			}
			return strings.Join(chunks, "\n"), nil
		},
	}
}

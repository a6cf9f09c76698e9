package tools

import (
	"context"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
)

// GrepTool returns the grep tool, which regex-searches file contents.
func GrepTool() RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "grep",
			Description: "Search file contents using regex patterns.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern":          map[string]any{"type": "string"},
					"path":             map[string]any{"type": "string"},
					"glob_filter":      map[string]any{"type": "string"},
					"case_insensitive": map[string]any{"type": "boolean"},
					"max_results":      map[string]any{"type": "integer"},
				},
				"required": []string{"pattern"},
			},
		},
		Executor: func(ctx context.Context, args map[string]any, env execution.Environment) (string, error) {
			pattern, err := argString(args, "pattern")
			if err != nil {
				return "", err
			}
			return env.Grep(
				pattern,
				argStringDefault(args, "path", "."),
				argStringDefault(args, "glob_filter", ""),
				argBoolDefault(args, "case_insensitive", false),
				argIntDefault(args, "max_results", 100),
			)
		},
	}
}

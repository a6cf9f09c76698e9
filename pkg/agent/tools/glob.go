package tools

import (
	"context"
	"strings"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
)

// GlobTool returns the glob tool, which lists files matching a glob
// pattern, most-recently-modified first.
func GlobTool() RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "glob",
			Description: "Find files matching a glob pattern.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"pattern": map[string]any{"type": "string"},
					"path":    map[string]any{"type": "string"},
				},
				"required": []string{"pattern"},
			},
		},
		Executor: func(ctx context.Context, args map[string]any, env execution.Environment) (string, error) {
			pattern, err := argString(args, "pattern")
			if err != nil {
				return "", err
			}
			matches, err := env.Glob(pattern, argStringDefault(args, "path", "."))
			if err != nil {
				return "", err
			}
			return strings.Join(matches, "\n"), nil
		},
	}
}

package tools

import (
	"context"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
)

// ReadFileTool returns the read_file tool, which returns a 1-indexed,
// line-numbered slice of a file's contents.
func ReadFileTool() RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "read_file",
			Description: "Read a file from the filesystem.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string"},
					"offset":    map[string]any{"type": "integer"},
					"limit":     map[string]any{"type": "integer"},
				},
				"required": []string{"file_path"},
			},
		},
		Executor: func(ctx context.Context, args map[string]any, env execution.Environment) (string, error) {
			path, err := argString(args, "file_path")
			if err != nil {
				return "", err
			}
			return env.ReadFile(path, argIntPtr(args, "offset"), argIntPtr(args, "limit"))
		},
	}
}

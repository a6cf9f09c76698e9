package tools

import (
	"context"
	"fmt"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
)

// WriteFileTool returns the write_file tool, which overwrites (or
// creates) a file with the given content.
func WriteFileTool() RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "write_file",
			Description: "Write content to a file.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path": map[string]any{"type": "string"},
					"content":   map[string]any{"type": "string"},
				},
				"required": []string{"file_path", "content"},
			},
		},
		Executor: func(ctx context.Context, args map[string]any, env execution.Environment) (string, error) {
			path, err := argString(args, "file_path")
			if err != nil {
				return "", err
			}
			content, err := argString(args, "content")
			if err != nil {
				return "", err
			}
			n, err := env.WriteFile(path, content)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("Written %d bytes to %s", n, path), nil
		},
	}
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
)

// EditFileTool returns the edit_file tool, which replaces one exact
// string occurrence in a file. Replacing a non-unique occurrence without
// replace_all, or an occurrence that does not exist, is an error.
func EditFileTool() RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "edit_file",
			Description: "Replace an exact string occurrence in a file.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"file_path":   map[string]any{"type": "string"},
					"old_string":  map[string]any{"type": "string"},
					"new_string":  map[string]any{"type": "string"},
					"replace_all": map[string]any{"type": "boolean"},
				},
				"required": []string{"file_path", "old_string", "new_string"},
			},
		},
		Executor: func(ctx context.Context, args map[string]any, env execution.Environment) (string, error) {
			path, err := argString(args, "file_path")
			if err != nil {
				return "", err
			}
			oldString, err := argString(args, "old_string")
			if err != nil {
				return "", err
			}
			newString, err := argString(args, "new_string")
			if err != nil {
				return "", err
			}
			replaceAll := argBoolDefault(args, "replace_all", false)

			content, err := env.ReadText(path)
			if err != nil {
				return "", err
			}
			occurrences := strings.Count(content, oldString)
			if occurrences == 0 {
				return "", fmt.Errorf("old_string not found")
			}
			if occurrences > 1 && !replaceAll {
				return "", fmt.Errorf("old_string matches multiple locations")
			}

			var updated string
			var replaced int
			if replaceAll {
				updated = strings.ReplaceAll(content, oldString, newString)
				replaced = occurrences
			} else {
				updated = strings.Replace(content, oldString, newString, 1)
				replaced = 1
			}
			if _, err := env.WriteText(path, updated); err != nil {
				return "", err
			}

			noun := "replacement"
			if replaced != 1 {
				noun = "replacements"
			}
			return fmt.Sprintf("Applied %d %s in %s", replaced, noun, path), nil
		},
	}
}

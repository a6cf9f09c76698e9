package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
)

type patchOpKind string

const (
	patchAdd    patchOpKind = "add"
	patchUpdate patchOpKind = "update"
	patchDelete patchOpKind = "delete"
)

type patchOp struct {
	kind patchOpKind
	path string
	body []string
}

const (
	patchBegin = "*** Begin Patch"
	patchEnd   = "*** End Patch"
)

// parsePatch parses the pseudo-unified apply_patch format: a
// "*** Begin Patch"/"*** End Patch" envelope around a sequence of
// "*** Add File:"/"*** Update File:"/"*** Delete File:" operations, each
// followed by its body lines.
func parsePatch(patch string) ([]patchOp, error) {
	lines := strings.Split(strings.TrimRight(patch, "\r\n"), "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != patchBegin {
		return nil, fmt.Errorf("patch must start with %s", patchBegin)
	}
	if strings.TrimSpace(lines[len(lines)-1]) != patchEnd {
		return nil, fmt.Errorf("patch must end with %s", patchEnd)
	}

	var ops []patchOp
	var current *patchOp
	flush := func() {
		if current != nil {
			ops = append(ops, *current)
		}
	}

	for _, line := range lines[1 : len(lines)-1] {
		switch {
		case strings.HasPrefix(line, "*** Add File: "):
			flush()
			current = &patchOp{kind: patchAdd, path: strings.TrimSpace(strings.TrimPrefix(line, "*** Add File: "))}
		case strings.HasPrefix(line, "*** Update File: "):
			flush()
			current = &patchOp{kind: patchUpdate, path: strings.TrimSpace(strings.TrimPrefix(line, "*** Update File: "))}
		case strings.HasPrefix(line, "*** Delete File: "):
			flush()
			current = &patchOp{kind: patchDelete, path: strings.TrimSpace(strings.TrimPrefix(line, "*** Delete File: "))}
		default:
			if current != nil {
				current.body = append(current.body, line)
			}
		}
	}
	flush()
	return ops, nil
}

func applyUpdate(original string, body []string) (string, error) {
	var relevant []string
	for _, line := range body {
		if line != "" && !strings.HasPrefix(line, "@@") {
			relevant = append(relevant, line)
		}
	}

	allPlus := len(relevant) > 0
	for _, line := range relevant {
		if !strings.HasPrefix(line, "+") {
			allPlus = false
			break
		}
	}
	if allPlus {
		var added []string
		for _, line := range relevant {
			added = append(added, line[1:])
		}
		return strings.Join(added, "\n") + "\n", nil
	}

	var oldLines, newLines []string
	for _, line := range relevant {
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "-") {
			oldLines = append(oldLines, line[1:])
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "+") {
			newLines = append(newLines, line[1:])
		}
	}
	oldChunk := strings.Join(oldLines, "\n")
	newChunk := strings.Join(newLines, "\n")
	if oldChunk != "" && strings.HasSuffix(original, "\n") {
		oldChunk += "\n"
		newChunk += "\n"
	}

	index := strings.Index(original, oldChunk)
	if index < 0 {
		return "", fmt.Errorf("update hunk did not match file content")
	}
	return original[:index] + newChunk + original[index+len(oldChunk):], nil
}

// ApplyPatchTool returns the apply_patch tool, which applies a sequence
// of add/update/delete file operations described in a pseudo-unified
// patch format.
func ApplyPatchTool() RegisteredTool {
	return RegisteredTool{
		Definition: llm.ToolDefinition{
			Name:        "apply_patch",
			Description: "Apply code changes using patch format.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"patch": map[string]any{"type": "string"},
				},
				"required": []string{"patch"},
			},
		},
		Executor: func(ctx context.Context, args map[string]any, env execution.Environment) (string, error) {
			patch, err := argString(args, "patch")
			if err != nil {
				return "", err
			}
			ops, err := parsePatch(patch)
			if err != nil {
				return "", err
			}

			var outputs []string
			for _, op := range ops {
				switch op.kind {
				case patchAdd:
					if env.FileExists(op.path) {
						return "", fmt.Errorf("file already exists: %s", op.path)
					}
					var added []string
					for _, line := range op.body {
						if strings.HasPrefix(line, "+") {
							added = append(added, line[1:])
						}
					}
					if _, err := env.WriteText(op.path, strings.Join(added, "\n")+"\n"); err != nil {
						return "", err
					}
					outputs = append(outputs, fmt.Sprintf("Added %s", op.path))

				case patchDelete:
					if err := env.Remove(op.path); err != nil {
						return "", err
					}
					outputs = append(outputs, fmt.Sprintf("Deleted %s", op.path))

				case patchUpdate:
					if !env.FileExists(op.path) {
						return "", fmt.Errorf("file not found: %s", op.path)
					}
					original, err := env.ReadText(op.path)
					if err != nil {
						return "", err
					}
					updated, err := applyUpdate(original, op.body)
					if err != nil {
						return "", err
					}
					if _, err := env.WriteText(op.path, updated); err != nil {
						return "", err
					}
					outputs = append(outputs, fmt.Sprintf("Updated %s", op.path))
				}
			}
			return strings.Join(outputs, "\n"), nil
		},
	}
}

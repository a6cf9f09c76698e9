// Package profiles provides the concrete per-provider agent profiles:
// default model, base system prompt, and tool subset.
package profiles

import (
	"github.com/modelbridge/agentkit/pkg/agent"
	"github.com/modelbridge/agentkit/pkg/agent/tools"
)

// NewOpenAI returns the OpenAI coding-agent profile. OpenAI's Responses
// API ships a native apply_patch tool, so this profile includes
// apply_patch instead of edit_file.
func NewOpenAI(model string) *agent.Profile {
	if model == "" {
		model = "gpt-5.2-codex"
	}
	return &agent.Profile{
		ID:                        "openai",
		ProviderName:              "openai",
		Model:                     model,
		BasePrompt:                "You are an OpenAI coding agent.",
		ToolRegistry:              tools.BuildDefaultRegistry(true),
		DefaultToolNames:          []string{"read_file", "apply_patch", "write_file", "shell", "grep", "glob"},
		SupportsParallelToolCalls: true,
		ContextWindowSize:         200_000,
	}
}

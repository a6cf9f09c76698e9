package profiles

import (
	"github.com/modelbridge/agentkit/pkg/agent"
	"github.com/modelbridge/agentkit/pkg/agent/tools"
)

// NewGemini returns the Gemini coding-agent profile.
func NewGemini(model string) *agent.Profile {
	if model == "" {
		model = "gemini-3-pro-preview"
	}
	return &agent.Profile{
		ID:                "gemini",
		ProviderName:      "gemini",
		Model:             model,
		BasePrompt:        "You are a Gemini coding agent.",
		ToolRegistry:      tools.BuildDefaultRegistry(false),
		DefaultToolNames:  []string{"read_file", "write_file", "edit_file", "shell", "grep", "glob"},
		ContextWindowSize: 1_000_000,
	}
}

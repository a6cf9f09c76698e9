package profiles

import (
	"github.com/modelbridge/agentkit/pkg/agent"
	"github.com/modelbridge/agentkit/pkg/agent/tools"
)

// NewAnthropic returns the Anthropic coding-agent profile.
func NewAnthropic(model string) *agent.Profile {
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	return &agent.Profile{
		ID:                "anthropic",
		ProviderName:      "anthropic",
		Model:             model,
		BasePrompt:        "You are an Anthropic coding agent.",
		ToolRegistry:      tools.BuildDefaultRegistry(false),
		DefaultToolNames:  []string{"read_file", "write_file", "edit_file", "shell", "grep", "glob"},
		ContextWindowSize: 200_000,
	}
}

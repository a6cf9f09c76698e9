package profiles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/agentkit/pkg/agent/profiles"
)

func TestNewOpenAIDefaultsModelAndIncludesApplyPatch(t *testing.T) {
	p := profiles.NewOpenAI("")
	assert.Equal(t, "gpt-5.2-codex", p.Model)
	assert.Equal(t, "openai", p.ProviderName)
	assert.True(t, p.SupportsParallelToolCalls)

	names := make(map[string]bool)
	for _, d := range p.Tools() {
		names[d.Name] = true
	}
	assert.True(t, names["apply_patch"])
	assert.False(t, names["edit_file"], "OpenAI profile uses apply_patch instead of edit_file")
}

func TestNewOpenAIHonorsExplicitModel(t *testing.T) {
	p := profiles.NewOpenAI("gpt-5.2-mini")
	assert.Equal(t, "gpt-5.2-mini", p.Model)
}

func TestNewAnthropicDefaultsModelAndIncludesEditFile(t *testing.T) {
	p := profiles.NewAnthropic("")
	assert.Equal(t, "claude-sonnet-4-5-20250929", p.Model)
	assert.Equal(t, "anthropic", p.ProviderName)
	assert.False(t, p.SupportsParallelToolCalls)

	names := make(map[string]bool)
	for _, d := range p.Tools() {
		names[d.Name] = true
	}
	assert.True(t, names["edit_file"])
	assert.False(t, names["apply_patch"], "Anthropic profile has no native apply_patch tool")
}

func TestNewGeminiDefaultsModelAndContextWindow(t *testing.T) {
	p := profiles.NewGemini("")
	assert.Equal(t, "gemini-3-pro-preview", p.Model)
	assert.Equal(t, "gemini", p.ProviderName)
	assert.Equal(t, 1_000_000, p.ContextWindowSize)
}

func TestProfileToolsSkipsUnregisteredNames(t *testing.T) {
	p := profiles.NewAnthropic("claude")
	p.DefaultToolNames = append(p.DefaultToolNames, "does_not_exist")

	defs := p.Tools()
	for _, d := range defs {
		assert.NotEqual(t, "does_not_exist", d.Name)
	}
}

func TestWithProviderOptionsChainsAndIsRetrievable(t *testing.T) {
	p := profiles.NewAnthropic("claude")
	opts := map[string]any{"anthropic-beta": "interleaved-thinking-2025-05-14"}

	returned := p.WithProviderOptions(opts)
	require.Same(t, p, returned)
	assert.Equal(t, opts, p.ProviderOptions())
}

func TestBuildSystemPromptReturnsBasePrompt(t *testing.T) {
	p := profiles.NewGemini("gemini")
	assert.Equal(t, "You are a Gemini coding agent.", p.BuildSystemPrompt())
}

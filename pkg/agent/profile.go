package agent

import (
	"github.com/modelbridge/agentkit/pkg/agent/tools"
	"github.com/modelbridge/agentkit/pkg/llm"
)

// Profile is the per-provider bundle that drives a session: model id,
// base system prompt, tool registry, and the subset of registered tools
// this provider's agent is allowed to call.
type Profile struct {
	ID                          string
	ProviderName                string
	Model                       string
	BasePrompt                  string
	ToolRegistry                *tools.Registry
	DefaultToolNames            []string
	SupportsParallelToolCalls   bool
	ContextWindowSize           int

	providerOptions map[string]any
}

// BuildSystemPrompt returns the system-prompt text for this profile. It
// is a direct accessor today; profiles that need to compose the prompt
// from session state can replace it with a method carrying more context.
func (p *Profile) BuildSystemPrompt() string { return p.BasePrompt }

// Tools returns the wire definitions for this profile's default tool
// names, skipping any name the registry does not carry.
func (p *Profile) Tools() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(p.DefaultToolNames))
	for _, name := range p.DefaultToolNames {
		if tool, ok := p.ToolRegistry.Get(name); ok {
			defs = append(defs, tool.Definition)
		}
	}
	return defs
}

// ProviderOptions returns this profile's provider-specific request
// options (e.g. Anthropic beta headers), or nil.
func (p *Profile) ProviderOptions() map[string]any { return p.providerOptions }

// WithProviderOptions sets the profile's provider-specific options and
// returns it for chaining.
func (p *Profile) WithProviderOptions(opts map[string]any) *Profile {
	p.providerOptions = opts
	return p
}

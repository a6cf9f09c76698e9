package llm

// ModelInfo describes a model's provider, context window, and
// capabilities for catalog lookups and tool-choice/vision feature gating.
type ModelInfo struct {
	ID                   string
	Provider             string
	DisplayName          string
	ContextWindow        int
	MaxOutput            int
	SupportsTools        bool
	SupportsVision       bool
	SupportsReasoning    bool
	InputCostPerMillion  float64
	OutputCostPerMillion float64
	Aliases              []string
}

// Models is the built-in catalog of known models across providers.
var Models = []ModelInfo{
	{
		ID: "claude-opus-4-6", Provider: "anthropic", DisplayName: "Claude Opus 4.6",
		ContextWindow: 200_000, MaxOutput: 32_000,
		SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
		InputCostPerMillion: 15.0, OutputCostPerMillion: 75.0,
	},
	{
		ID: "claude-sonnet-4-5-20250929", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200_000, MaxOutput: 16_000,
		SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
		InputCostPerMillion: 3.0, OutputCostPerMillion: 15.0,
		Aliases: []string{"claude-sonnet-4-5"},
	},
	{
		ID: "claude-haiku-4-5-20251001", Provider: "anthropic", DisplayName: "Claude Haiku 4.5",
		ContextWindow: 200_000, MaxOutput: 8_192,
		SupportsTools: true, SupportsVision: true, SupportsReasoning: false,
		InputCostPerMillion: 0.8, OutputCostPerMillion: 4.0,
		Aliases: []string{"claude-haiku-4-5"},
	},
	{
		ID: "gpt-5.2", Provider: "openai", DisplayName: "GPT-5.2",
		ContextWindow: 256_000, MaxOutput: 32_000,
		SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
		InputCostPerMillion: 2.5, OutputCostPerMillion: 10.0,
	},
	{
		ID: "gpt-5.2-mini", Provider: "openai", DisplayName: "GPT-5.2 Mini",
		ContextWindow: 256_000, MaxOutput: 16_000,
		SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
		InputCostPerMillion: 0.75, OutputCostPerMillion: 3.0,
	},
	{
		ID: "gpt-5.2-codex", Provider: "openai", DisplayName: "GPT-5.2 Codex",
		ContextWindow: 256_000, MaxOutput: 32_000,
		SupportsTools: true, SupportsVision: false, SupportsReasoning: true,
		InputCostPerMillion: 2.5, OutputCostPerMillion: 10.0,
	},
	{
		ID: "gemini-3-pro-preview", Provider: "gemini", DisplayName: "Gemini 3 Pro Preview",
		ContextWindow: 2_000_000, MaxOutput: 65_536,
		SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
		InputCostPerMillion: 1.25, OutputCostPerMillion: 10.0,
	},
	{
		ID: "gemini-3-flash-preview", Provider: "gemini", DisplayName: "Gemini 3 Flash Preview",
		ContextWindow: 1_000_000, MaxOutput: 65_536,
		SupportsTools: true, SupportsVision: true, SupportsReasoning: true,
		InputCostPerMillion: 0.15, OutputCostPerMillion: 0.6,
	},
}

var (
	modelsByID    = map[string]ModelInfo{}
	modelsByAlias = map[string]ModelInfo{}
)

func init() {
	for _, m := range Models {
		modelsByID[m.ID] = m
		for _, alias := range m.Aliases {
			modelsByAlias[alias] = m
		}
	}
}

// GetModelInfo looks up a model by its ID or alias. ok is false if not found.
func GetModelInfo(modelID string) (ModelInfo, bool) {
	if m, ok := modelsByID[modelID]; ok {
		return m, true
	}
	m, ok := modelsByAlias[modelID]
	return m, ok
}

// ListModelsFilter narrows ListModels by provider and capability.
// A nil pointer field means "don't filter on this dimension".
type ListModelsFilter struct {
	Provider          string
	SupportsReasoning *bool
	SupportsTools     *bool
	SupportsVision    *bool
}

// ListModels returns the catalog, optionally filtered.
func ListModels(filter ListModelsFilter) []ModelInfo {
	out := make([]ModelInfo, 0, len(Models))
	for _, m := range Models {
		if filter.Provider != "" && m.Provider != filter.Provider {
			continue
		}
		if filter.SupportsReasoning != nil && m.SupportsReasoning != *filter.SupportsReasoning {
			continue
		}
		if filter.SupportsTools != nil && m.SupportsTools != *filter.SupportsTools {
			continue
		}
		if filter.SupportsVision != nil && m.SupportsVision != *filter.SupportsVision {
			continue
		}
		out = append(out, m)
	}
	return out
}

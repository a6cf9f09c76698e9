package llmtypes

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolChoiceMode controls whether and how the model calls tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceNamed    ToolChoiceMode = "named"
)

// ToolChoice selects the tool-calling mode for a request.
type ToolChoice struct {
	Mode     ToolChoiceMode
	ToolName string
}

// AutoToolChoice returns the auto tool choice.
func AutoToolChoice() ToolChoice { return ToolChoice{Mode: ToolChoiceAuto} }

// NoneToolChoice returns the none tool choice.
func NoneToolChoice() ToolChoice { return ToolChoice{Mode: ToolChoiceNone} }

// RequiredToolChoice returns the required tool choice.
func RequiredToolChoice() ToolChoice { return ToolChoice{Mode: ToolChoiceRequired} }

// NamedToolChoice returns a tool choice naming one tool.
func NamedToolChoice(name string) ToolChoice {
	return ToolChoice{Mode: ToolChoiceNamed, ToolName: name}
}

// ResponseFormatType selects the desired output encoding.
type ResponseFormatType string

const (
	ResponseFormatText       ResponseFormatType = "text"
	ResponseFormatJSON       ResponseFormatType = "json"
	ResponseFormatJSONSchema ResponseFormatType = "json_schema"
)

// ResponseFormat describes the desired response format.
type ResponseFormat struct {
	Type       ResponseFormatType
	JSONSchema map[string]any
	Name       string
	Strict     bool
}

// Request is a provider-agnostic LLM completion request.
type Request struct {
	Model           string
	Messages        []Message
	Provider        string
	Tools           []ToolDefinition
	ToolChoice      *ToolChoice
	ResponseFormat  *ResponseFormat
	Temperature     *float64
	TopP            *float64
	TopK            *int
	MaxTokens       *int
	StopSequences   []string
	ReasoningEffort string
	Metadata        map[string]string
	ProviderOptions map[string]any
	Headers         map[string]string
}

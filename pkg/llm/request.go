package llm

import "github.com/modelbridge/agentkit/pkg/llm/llmtypes"

// ToolDefinition describes a tool the model may call.
type ToolDefinition = llmtypes.ToolDefinition

// ToolChoiceMode controls whether and how the model calls tools.
type ToolChoiceMode = llmtypes.ToolChoiceMode

const (
	ToolChoiceAuto     = llmtypes.ToolChoiceAuto
	ToolChoiceNone     = llmtypes.ToolChoiceNone
	ToolChoiceRequired = llmtypes.ToolChoiceRequired
	ToolChoiceNamed    = llmtypes.ToolChoiceNamed
)

// ToolChoice selects the tool-calling mode for a request.
type ToolChoice = llmtypes.ToolChoice

// AutoToolChoice returns the auto tool choice.
func AutoToolChoice() ToolChoice { return llmtypes.AutoToolChoice() }

// NoneToolChoice returns the none tool choice.
func NoneToolChoice() ToolChoice { return llmtypes.NoneToolChoice() }

// RequiredToolChoice returns the required tool choice.
func RequiredToolChoice() ToolChoice { return llmtypes.RequiredToolChoice() }

// NamedToolChoice returns a tool choice naming one tool.
func NamedToolChoice(name string) ToolChoice { return llmtypes.NamedToolChoice(name) }

// ResponseFormatType selects the desired output encoding.
type ResponseFormatType = llmtypes.ResponseFormatType

const (
	ResponseFormatText       = llmtypes.ResponseFormatText
	ResponseFormatJSON       = llmtypes.ResponseFormatJSON
	ResponseFormatJSONSchema = llmtypes.ResponseFormatJSONSchema
)

// ResponseFormat describes the desired response format.
type ResponseFormat = llmtypes.ResponseFormat

// Request is a provider-agnostic LLM completion request.
type Request = llmtypes.Request

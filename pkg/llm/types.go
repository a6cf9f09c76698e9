// Package llm provides a provider-agnostic client for OpenAI, Anthropic,
// Gemini, and OpenAI-compatible chat completion backends behind one
// request/response/stream vocabulary.
package llm

import "github.com/modelbridge/agentkit/pkg/llm/llmtypes"

// Role identifies who produced a message.
type Role = llmtypes.Role

const (
	RoleSystem    = llmtypes.RoleSystem
	RoleUser      = llmtypes.RoleUser
	RoleAssistant = llmtypes.RoleAssistant
	RoleTool      = llmtypes.RoleTool
	RoleDeveloper = llmtypes.RoleDeveloper
)

// ContentKind discriminates the ContentPart tagged union.
type ContentKind = llmtypes.ContentKind

const (
	ContentKindText             = llmtypes.ContentKindText
	ContentKindImage            = llmtypes.ContentKindImage
	ContentKindAudio            = llmtypes.ContentKindAudio
	ContentKindDocument         = llmtypes.ContentKindDocument
	ContentKindToolCall         = llmtypes.ContentKindToolCall
	ContentKindToolResult       = llmtypes.ContentKindToolResult
	ContentKindThinking         = llmtypes.ContentKindThinking
	ContentKindRedactedThinking = llmtypes.ContentKindRedactedThinking
)

// ContentPart is one element of a Message's content. It is a tagged union
// discriminated by Kind; adapters type-switch on the concrete type rather
// than reading optional fields off a flat struct.
type ContentPart = llmtypes.ContentPart

// TextContent is plain text content.
type TextContent = llmtypes.TextContent

// ImageContent carries an image either by URL or inline bytes.
type ImageContent = llmtypes.ImageContent

// AudioContent carries audio either by URL or inline bytes.
type AudioContent = llmtypes.AudioContent

// DocumentContent carries a document (e.g. PDF) either by URL or inline bytes.
type DocumentContent = llmtypes.DocumentContent

// ToolCallContent is a model-initiated tool invocation.
type ToolCallContent = llmtypes.ToolCallContent

// ToolResultContent is the result of executing a tool call.
type ToolResultContent = llmtypes.ToolResultContent

// ThinkingContent is model reasoning/thinking content, possibly redacted.
type ThinkingContent = llmtypes.ThinkingContent

// Message is a single turn-level message: a role plus an ordered sequence
// of content parts.
type Message = llmtypes.Message

// SystemMessage builds a single-text-part system message.
func SystemMessage(text string) Message { return llmtypes.SystemMessage(text) }

// UserMessage builds a single-text-part user message.
func UserMessage(text string) Message { return llmtypes.UserMessage(text) }

// AssistantMessage builds a single-text-part assistant message.
func AssistantMessage(text string) Message { return llmtypes.AssistantMessage(text) }

// ToolResultMessage builds a tool-role message carrying one tool result.
func ToolResultMessage(toolCallID, content string, isError bool) Message {
	return llmtypes.ToolResultMessage(toolCallID, content, isError)
}

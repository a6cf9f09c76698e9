// Package llmtypes holds the provider-agnostic request/response/message
// vocabulary, kept dependency-free so provider adapters can import it
// without creating a cycle back through package llm.
package llmtypes

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleDeveloper Role = "developer"
)

// ContentKind discriminates the ContentPart tagged union.
type ContentKind string

const (
	ContentKindText             ContentKind = "text"
	ContentKindImage            ContentKind = "image"
	ContentKindAudio            ContentKind = "audio"
	ContentKindDocument         ContentKind = "document"
	ContentKindToolCall         ContentKind = "tool_call"
	ContentKindToolResult       ContentKind = "tool_result"
	ContentKindThinking         ContentKind = "thinking"
	ContentKindRedactedThinking ContentKind = "redacted_thinking"
)

// ContentPart is one element of a Message's content. It is a tagged union
// discriminated by Kind; adapters type-switch on the concrete type rather
// than reading optional fields off a flat struct.
type ContentPart interface {
	Kind() ContentKind
}

// TextContent is plain text content.
type TextContent struct {
	Text string
}

func (TextContent) Kind() ContentKind { return ContentKindText }

// ImageContent carries an image either by URL or inline bytes.
type ImageContent struct {
	URL       string
	Data      []byte
	MediaType string
	Detail    string
}

func (ImageContent) Kind() ContentKind { return ContentKindImage }

// AudioContent carries audio either by URL or inline bytes.
type AudioContent struct {
	URL       string
	Data      []byte
	MediaType string
}

func (AudioContent) Kind() ContentKind { return ContentKindAudio }

// DocumentContent carries a document (e.g. PDF) either by URL or inline bytes.
type DocumentContent struct {
	URL       string
	Data      []byte
	MediaType string
	FileName  string
}

func (DocumentContent) Kind() ContentKind { return ContentKindDocument }

// ToolCallContent is a model-initiated tool invocation.
type ToolCallContent struct {
	ID   string
	Name string
	// Arguments holds structured arguments when the adapter produced them.
	Arguments map[string]any
	// RawArguments preserves the original JSON text when parsing failed or
	// was never attempted (e.g. mid-stream).
	RawArguments string
	Type         string // "function"
}

func (ToolCallContent) Kind() ContentKind { return ContentKindToolCall }

// ToolResultContent is the result of executing a tool call.
type ToolResultContent struct {
	ToolCallID string
	// Content is a string or a JSON-serializable value.
	Content   any
	IsError   bool
	Image     []byte
	ImageType string
}

func (ToolResultContent) Kind() ContentKind { return ContentKindToolResult }

// ThinkingContent is model reasoning/thinking content, possibly redacted.
type ThinkingContent struct {
	Text      string
	Signature string
	Redacted  bool
}

func (t ThinkingContent) Kind() ContentKind {
	if t.Redacted {
		return ContentKindRedactedThinking
	}
	return ContentKindThinking
}

// Message is a single turn-level message: a role plus an ordered sequence
// of content parts.
type Message struct {
	Role       Role
	Content    []ContentPart
	Name       string
	ToolCallID string
}

// Text concatenates all TextContent parts in order.
func (m Message) Text() string {
	var sb []byte
	for _, part := range m.Content {
		if tc, ok := part.(TextContent); ok {
			sb = append(sb, tc.Text...)
		}
	}
	return string(sb)
}

// ToolCalls extracts every ToolCallContent part from the message.
func (m Message) ToolCalls() []ToolCallContent {
	var calls []ToolCallContent
	for _, part := range m.Content {
		if tc, ok := part.(ToolCallContent); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// SystemMessage builds a single-text-part system message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: []ContentPart{TextContent{Text: text}}}
}

// UserMessage builds a single-text-part user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []ContentPart{TextContent{Text: text}}}
}

// AssistantMessage builds a single-text-part assistant message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: []ContentPart{TextContent{Text: text}}}
}

// ToolResultMessage builds a tool-role message carrying one tool result.
func ToolResultMessage(toolCallID, content string, isError bool) Message {
	return Message{
		Role: RoleTool,
		Content: []ContentPart{ToolResultContent{
			ToolCallID: toolCallID,
			Content:    content,
			IsError:    isError,
		}},
		ToolCallID: toolCallID,
	}
}

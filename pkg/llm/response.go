package llm

import "github.com/modelbridge/agentkit/pkg/llm/llmtypes"

// FinishReason normalizes why generation stopped.
type FinishReason = llmtypes.FinishReason

const (
	FinishReasonStop          = llmtypes.FinishReasonStop
	FinishReasonLength        = llmtypes.FinishReasonLength
	FinishReasonToolCalls     = llmtypes.FinishReasonToolCalls
	FinishReasonContentFilter = llmtypes.FinishReasonContentFilter
	FinishReasonError         = llmtypes.FinishReasonError
	FinishReasonOther         = llmtypes.FinishReasonOther
)

// Usage is additive token accounting. Optional fields follow the rule:
// None + None = None, otherwise nil is treated as zero.
type Usage = llmtypes.Usage

// ToolCall is a parsed tool call extracted from a Response message.
type ToolCall = llmtypes.ToolCall

// ToolResult is the outcome of executing a tool call.
type ToolResult = llmtypes.ToolResult

// Warning is a non-fatal issue surfaced alongside a Response.
type Warning = llmtypes.Warning

// RateLimitInfo carries rate-limit metadata from provider response headers.
type RateLimitInfo = llmtypes.RateLimitInfo

// Response is a complete LLM response.
type Response = llmtypes.Response

// StreamEventType enumerates the kinds of streaming events.
type StreamEventType = llmtypes.StreamEventType

const (
	StreamEventStreamStart    = llmtypes.StreamEventStreamStart
	StreamEventTextStart      = llmtypes.StreamEventTextStart
	StreamEventTextDelta      = llmtypes.StreamEventTextDelta
	StreamEventTextEnd        = llmtypes.StreamEventTextEnd
	StreamEventReasoningStart = llmtypes.StreamEventReasoningStart
	StreamEventReasoningDelta = llmtypes.StreamEventReasoningDelta
	StreamEventReasoningEnd   = llmtypes.StreamEventReasoningEnd
	StreamEventToolCallStart  = llmtypes.StreamEventToolCallStart
	StreamEventToolCallDelta  = llmtypes.StreamEventToolCallDelta
	StreamEventToolCallEnd    = llmtypes.StreamEventToolCallEnd
	StreamEventFinish         = llmtypes.StreamEventFinish
	StreamEventError          = llmtypes.StreamEventError
	StreamEventProviderEvent  = llmtypes.StreamEventProviderEvent
)

// StreamEvent is a single element of an adapter's streaming response.
//
// Invariant: every *_start event for a block is followed by zero or more
// *_delta events then exactly one matching *_end, in LIFO order per block
// id; exactly one Finish event terminates the stream.
type StreamEvent = llmtypes.StreamEvent

// Stream is a lazy sequence of StreamEvent. Adapters emit events on Events
// and close it after the terminal Finish or Error event; the interface has
// no separate result accessor (StreamResult accumulates a final Response
// from the events).
type Stream = llmtypes.Stream

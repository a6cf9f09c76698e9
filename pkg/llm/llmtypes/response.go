package llmtypes

import "time"

// FinishReason normalizes why generation stopped.
type FinishReason struct {
	// Reason is one of "stop", "length", "tool_calls", "content_filter",
	// "error", "other".
	Reason string
	Raw    string
}

const (
	FinishReasonStop          = "stop"
	FinishReasonLength        = "length"
	FinishReasonToolCalls     = "tool_calls"
	FinishReasonContentFilter = "content_filter"
	FinishReasonError         = "error"
	FinishReasonOther         = "other"
)

// Usage is additive token accounting. Optional fields follow the rule:
// None + None = None, otherwise nil is treated as zero.
type Usage struct {
	InputTokens      int64
	OutputTokens     int64
	ReasoningTokens  *int64
	CacheReadTokens  *int64
	CacheWriteTokens *int64
	Raw              map[string]any
}

// TotalTokens returns InputTokens + OutputTokens.
func (u Usage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func addOptionalInt64(a, b *int64) *int64 {
	if a == nil && b == nil {
		return nil
	}
	var av, bv int64
	if a != nil {
		av = *a
	}
	if b != nil {
		bv = *b
	}
	sum := av + bv
	return &sum
}

// Add combines two Usage values field-wise, per the None+None=None rule.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:      u.InputTokens + other.InputTokens,
		OutputTokens:     u.OutputTokens + other.OutputTokens,
		ReasoningTokens:  addOptionalInt64(u.ReasoningTokens, other.ReasoningTokens),
		CacheReadTokens:  addOptionalInt64(u.CacheReadTokens, other.CacheReadTokens),
		CacheWriteTokens: addOptionalInt64(u.CacheWriteTokens, other.CacheWriteTokens),
	}
}

// ToolCall is a parsed tool call extracted from a Response message.
type ToolCall struct {
	ID           string
	Name         string
	Arguments    map[string]any
	RawArguments string
}

// ToolResult is the outcome of executing a tool call.
type ToolResult struct {
	ToolCallID string
	Content    any
	IsError    bool
}

// Warning is a non-fatal issue surfaced alongside a Response.
type Warning struct {
	Message string
	Code    string
}

// RateLimitInfo carries rate-limit metadata from provider response headers.
type RateLimitInfo struct {
	RequestsRemaining *int64
	RequestsLimit     *int64
	TokensRemaining   *int64
	TokensLimit       *int64
	ResetAt           *time.Time
}

// Response is a complete LLM response.
type Response struct {
	ID           string
	Model        string
	Provider     string
	Message      Message
	FinishReason FinishReason
	Usage        Usage
	Raw          map[string]any
	Warnings     []Warning
	RateLimit    *RateLimitInfo
}

// Text returns the response message's concatenated text.
func (r Response) Text() string { return r.Message.Text() }

// ToolCalls extracts tool calls from the response message.
func (r Response) ToolCalls() []ToolCall {
	var out []ToolCall
	for _, part := range r.Message.Content {
		tc, ok := part.(ToolCallContent)
		if !ok {
			continue
		}
		out = append(out, ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments, RawArguments: tc.RawArguments})
	}
	return out
}

// Reasoning concatenates thinking-content text, or "" if there is none.
func (r Response) Reasoning() string {
	var sb []byte
	for _, part := range r.Message.Content {
		if t, ok := part.(ThinkingContent); ok {
			sb = append(sb, t.Text...)
		}
	}
	return string(sb)
}

// StreamEventType enumerates the kinds of streaming events.
type StreamEventType string

const (
	StreamEventStreamStart    StreamEventType = "stream_start"
	StreamEventTextStart      StreamEventType = "text_start"
	StreamEventTextDelta      StreamEventType = "text_delta"
	StreamEventTextEnd        StreamEventType = "text_end"
	StreamEventReasoningStart StreamEventType = "reasoning_start"
	StreamEventReasoningDelta StreamEventType = "reasoning_delta"
	StreamEventReasoningEnd   StreamEventType = "reasoning_end"
	StreamEventToolCallStart  StreamEventType = "tool_call_start"
	StreamEventToolCallDelta  StreamEventType = "tool_call_delta"
	StreamEventToolCallEnd    StreamEventType = "tool_call_end"
	StreamEventFinish         StreamEventType = "finish"
	StreamEventError          StreamEventType = "error"
	StreamEventProviderEvent  StreamEventType = "provider_event"
)

// StreamEvent is a single element of an adapter's streaming response.
//
// Invariant: every *_start event for a block is followed by zero or more
// *_delta events then exactly one matching *_end, in LIFO order per block
// id; exactly one Finish event terminates the stream.
type StreamEvent struct {
	Type StreamEventType

	// Text events.
	Delta  string
	TextID string

	// Reasoning events.
	ReasoningDelta string

	// Tool call events.
	ToolCall *ToolCall

	// Finish event.
	FinishReason *FinishReason
	Usage        *Usage
	Response     *Response

	// Error event.
	Err error

	// Passthrough of the raw provider envelope, when available.
	Raw map[string]any
}

// Stream is a lazy sequence of StreamEvent. Adapters emit events on Events
// and close it after the terminal Finish or Error event; the interface has
// no separate result accessor (llm.StreamResult accumulates a final
// Response from the events).
type Stream interface {
	// Events returns the channel of stream events. It is closed once the
	// terminal Finish or Error event has been sent.
	Events() <-chan StreamEvent
	// Close releases any resources held by the stream (e.g. the HTTP
	// response body).
	Close() error
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelbridge/agentkit/pkg/jsonparser"
	"github.com/modelbridge/agentkit/pkg/llm/errs"
)

// ToolHandler executes one tool call's arguments and returns a result that
// becomes the next tool-result message's content.
type ToolHandler func(ctx context.Context, arguments map[string]any) (any, error)

// GenerateResult is the outcome of a multi-step Generate call.
type GenerateResult struct {
	Steps      []*Response
	TotalUsage Usage
}

// Response returns the final step's response.
func (r GenerateResult) Response() *Response {
	if len(r.Steps) == 0 {
		return nil
	}
	return r.Steps[len(r.Steps)-1]
}

// GenerateOptions configures Generate. Exactly one of Prompt/Messages must
// be set.
type GenerateOptions struct {
	Client          *Client
	Model           string
	Prompt          string
	Messages        []Message
	System          string
	Provider        string
	Tools           []ToolDefinition
	ToolHandlers    map[string]ToolHandler
	ToolChoice      *ToolChoice
	ResponseFormat  *ResponseFormat
	Temperature     *float64
	TopP            *float64
	MaxTokens       *int
	StopSequences   []string
	ReasoningEffort string
	Metadata        map[string]string
	ProviderOptions map[string]any
	// MaxSteps bounds the tool-call loop. Zero uses the default of 8.
	MaxSteps int
}

func buildMessages(prompt string, messages []Message, hasPrompt, hasMessages bool, system string) ([]Message, error) {
	if hasPrompt == hasMessages {
		return nil, errs.NewConfigurationError("pass either prompt or messages, not both or neither")
	}
	var out []Message
	if hasMessages {
		out = append(out, messages...)
	} else {
		out = append(out, UserMessage(prompt))
	}
	if system != "" {
		out = append([]Message{SystemMessage(system)}, out...)
	}
	return out, nil
}

// Generate drives a bounded tool-call loop: call the model, execute any
// tool calls it requests via the matching ToolHandler, append the results,
// and repeat until the model stops calling tools or MaxSteps is reached.
func Generate(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	hasPrompt := opts.Prompt != ""
	hasMessages := opts.Messages != nil
	msgs, err := buildMessages(opts.Prompt, opts.Messages, hasPrompt, hasMessages, opts.System)
	if err != nil {
		return nil, err
	}

	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = 8
	}

	result := &GenerateResult{}
	for i := 0; i < maxSteps; i++ {
		req := &Request{
			Model:           opts.Model,
			Messages:        append([]Message(nil), msgs...),
			Provider:        opts.Provider,
			Tools:           opts.Tools,
			ToolChoice:      opts.ToolChoice,
			ResponseFormat:  opts.ResponseFormat,
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			MaxTokens:       opts.MaxTokens,
			StopSequences:   opts.StopSequences,
			ReasoningEffort: opts.ReasoningEffort,
			Metadata:        opts.Metadata,
			ProviderOptions: opts.ProviderOptions,
		}

		resp, err := opts.Client.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, resp)
		result.TotalUsage = result.TotalUsage.Add(resp.Usage)

		toolCalls := resp.ToolCalls()
		if len(opts.Tools) == 0 || len(toolCalls) == 0 {
			break
		}

		msgs = append(msgs, resp.Message)
		for _, tc := range toolCalls {
			handler, ok := opts.ToolHandlers[tc.Name]
			if !ok {
				msgs = append(msgs, ToolResultMessage(tc.ID, "Unknown tool: "+tc.Name, true))
				continue
			}

			out, err := handler(ctx, tc.Arguments)
			if err != nil {
				msgs = append(msgs, ToolResultMessage(tc.ID, err.Error(), true))
				continue
			}
			msgs = append(msgs, Message{
				Role:       RoleTool,
				ToolCallID: tc.ID,
				Content: []ContentPart{ToolResultContent{
					ToolCallID: tc.ID,
					Content:    out,
					IsError:    false,
				}},
			})
		}
	}

	return result, nil
}

// StreamAccumulator folds a stream of StreamEvent into a final Response,
// merging tool-call argument deltas by id and falling back to a JSON parse
// of the accumulated raw arguments when no structured arguments arrived.
type StreamAccumulator struct {
	id       string
	model    string
	provider string

	textParts      []string
	reasoningParts []string
	toolCalls      []*accumulatedToolCall
	toolIndex      map[string]int

	finishReason *FinishReason
	usage        *Usage
}

type accumulatedToolCall struct {
	id           string
	name         string
	rawArguments string
	arguments    map[string]any
}

// NewStreamAccumulator constructs an accumulator tagged with the model and
// provider that produced the stream (used when synthesizing a Response).
func NewStreamAccumulator(model, provider string) *StreamAccumulator {
	return &StreamAccumulator{model: model, provider: provider, toolIndex: map[string]int{}}
}

// Process folds one event into the accumulator's running state.
func (a *StreamAccumulator) Process(event StreamEvent) {
	if event.Response != nil {
		if event.Response.ID != "" {
			a.id = event.Response.ID
		}
		if event.Response.Model != "" {
			a.model = event.Response.Model
		}
	}

	switch event.Type {
	case StreamEventTextDelta:
		if event.Delta != "" {
			a.textParts = append(a.textParts, event.Delta)
		}
	case StreamEventReasoningDelta:
		if event.ReasoningDelta != "" {
			a.reasoningParts = append(a.reasoningParts, event.ReasoningDelta)
		}
	case StreamEventToolCallStart:
		if event.ToolCall != nil {
			a.ensureToolCall(event.ToolCall.ID, event.ToolCall.Name)
		}
	case StreamEventToolCallDelta:
		if event.ToolCall != nil {
			state := a.ensureToolCall(event.ToolCall.ID, event.ToolCall.Name)
			if event.ToolCall.RawArguments != "" {
				state.rawArguments += event.ToolCall.RawArguments
			}
		}
	case StreamEventToolCallEnd:
		if event.ToolCall != nil {
			state := a.ensureToolCall(event.ToolCall.ID, event.ToolCall.Name)
			if len(event.ToolCall.Arguments) > 0 {
				state.arguments = event.ToolCall.Arguments
			}
		}
	case StreamEventFinish:
		if event.FinishReason != nil {
			a.finishReason = event.FinishReason
		}
		if event.Usage != nil {
			a.usage = event.Usage
		}
	}
}

func (a *StreamAccumulator) ensureToolCall(id, name string) *accumulatedToolCall {
	if idx, ok := a.toolIndex[id]; ok {
		return a.toolCalls[idx]
	}
	state := &accumulatedToolCall{id: id, name: name, arguments: map[string]any{}}
	a.toolIndex[id] = len(a.toolCalls)
	a.toolCalls = append(a.toolCalls, state)
	return state
}

func (tc *accumulatedToolCall) resolveArguments() map[string]any {
	if len(tc.arguments) > 0 {
		return tc.arguments
	}
	if tc.rawArguments == "" {
		return map[string]any{}
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(tc.rawArguments), &parsed); err == nil {
		return parsed
	}
	// Streamed argument deltas can be cut off mid-object if the provider
	// ends the stream early; fall back to repairing before giving up.
	result := jsonparser.ParsePartialJSON(tc.rawArguments)
	if obj, ok := result.Value.(map[string]any); ok {
		return obj
	}
	return map[string]any{}
}

// Response synthesizes a Response from accumulated state. It fails if
// called before the stream's Finish event has been processed; callers
// should drain the stream first (see StreamResult.Response).
func (a *StreamAccumulator) Response() (*Response, error) {
	if a.finishReason == nil || a.usage == nil {
		return nil, errs.New(errs.KindStream, "stream has not completed yet")
	}

	var content []ContentPart
	if text := strings.Join(a.textParts, ""); text != "" {
		content = append(content, TextContent{Text: text})
	}
	if reasoning := strings.Join(a.reasoningParts, ""); reasoning != "" {
		content = append(content, ThinkingContent{Text: reasoning})
	}
	for _, tc := range a.toolCalls {
		content = append(content, ToolCallContent{
			ID:        tc.id,
			Name:      tc.name,
			Arguments: tc.resolveArguments(),
		})
	}

	return &Response{
		ID:           a.id,
		Model:        a.model,
		Provider:     a.provider,
		Message:      Message{Role: RoleAssistant, Content: content},
		FinishReason: *a.finishReason,
		Usage:        *a.usage,
	}, nil
}

// StreamResult wraps a live Stream, feeding every event through a
// StreamAccumulator as the caller drains it.
type StreamResult struct {
	stream      Stream
	accumulator *StreamAccumulator
}

// Events returns a new channel that relays the underlying stream's events;
// every event read from it is also folded into the accumulator.
func (r *StreamResult) Events() <-chan StreamEvent {
	out := make(chan StreamEvent)
	go func() {
		defer close(out)
		for event := range r.stream.Events() {
			r.accumulator.Process(event)
			out <- event
		}
	}()
	return out
}

// Response drains any remaining events then returns the synthesized
// Response. Events are folded into the accumulator before they are
// relayed, so a partially-drained relay never loses state.
func (r *StreamResult) Response() (*Response, error) {
	for event := range r.stream.Events() {
		r.accumulator.Process(event)
	}
	return r.accumulator.Response()
}

// Close releases the underlying stream's resources.
func (r *StreamResult) Close() error { return r.stream.Close() }

// StreamOptions configures StreamGenerate. Exactly one of Prompt/Messages
// must be set.
type StreamOptions struct {
	Client          *Client
	Model           string
	Prompt          string
	Messages        []Message
	System          string
	Provider        string
	Tools           []ToolDefinition
	ToolChoice      *ToolChoice
	ResponseFormat  *ResponseFormat
	Temperature     *float64
	TopP            *float64
	MaxTokens       *int
	StopSequences   []string
	ReasoningEffort string
	Metadata        map[string]string
	ProviderOptions map[string]any
}

// StreamGenerate starts a streaming completion and wraps it with an
// accumulator so the final Response is available once the stream drains.
func StreamGenerate(ctx context.Context, opts StreamOptions) (*StreamResult, error) {
	hasPrompt := opts.Prompt != ""
	hasMessages := opts.Messages != nil
	msgs, err := buildMessages(opts.Prompt, opts.Messages, hasPrompt, hasMessages, opts.System)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Model:           opts.Model,
		Messages:        msgs,
		Provider:        opts.Provider,
		Tools:           opts.Tools,
		ToolChoice:      opts.ToolChoice,
		ResponseFormat:  opts.ResponseFormat,
		Temperature:     opts.Temperature,
		TopP:            opts.TopP,
		MaxTokens:       opts.MaxTokens,
		StopSequences:   opts.StopSequences,
		ReasoningEffort: opts.ReasoningEffort,
		Metadata:        opts.Metadata,
		ProviderOptions: opts.ProviderOptions,
	}

	stream, err := opts.Client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	return &StreamResult{stream: stream, accumulator: NewStreamAccumulator(opts.Model, opts.Provider)}, nil
}

// GenerateObjectOptions configures GenerateObject.
type GenerateObjectOptions struct {
	Client          *Client
	Model           string
	JSONSchema      map[string]any
	Prompt          string
	Messages        []Message
	System          string
	Provider        string
	Temperature     *float64
	TopP            *float64
	MaxTokens       *int
	StopSequences   []string
	ReasoningEffort string
	Metadata        map[string]string
	ProviderOptions map[string]any
}

// nativeJSONSchemaProviders supports response_format.type=json_schema
// directly; others get a prompt-appended fallback instruction.
var nativeJSONSchemaProviders = map[string]bool{"openai": true, "gemini": true}

// GenerateObject generates a JSON value matching JSONSchema, using native
// provider JSON-schema support where available (openai, gemini) and a
// prompt-fallback instruction otherwise.
func GenerateObject(ctx context.Context, opts GenerateObjectOptions) (any, error) {
	effectiveProvider := opts.Provider
	if effectiveProvider == "" {
		opts.Client.mu.RLock()
		effectiveProvider = opts.Client.defaultProvider
		opts.Client.mu.RUnlock()
	}

	var result *GenerateResult
	var err error
	if nativeJSONSchemaProviders[effectiveProvider] {
		result, err = Generate(ctx, GenerateOptions{
			Client:   opts.Client,
			Model:    opts.Model,
			Prompt:   opts.Prompt,
			Messages: opts.Messages,
			System:   opts.System,
			Provider: opts.Provider,
			ResponseFormat: &ResponseFormat{
				Type:       ResponseFormatJSONSchema,
				JSONSchema: opts.JSONSchema,
				Strict:     true,
			},
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			MaxTokens:       opts.MaxTokens,
			StopSequences:   opts.StopSequences,
			ReasoningEffort: opts.ReasoningEffort,
			Metadata:        opts.Metadata,
			ProviderOptions: opts.ProviderOptions,
		})
	} else {
		schemaBytes, marshalErr := json.Marshal(opts.JSONSchema)
		if marshalErr != nil {
			return nil, errs.New(errs.KindNoObjectGenerated, fmt.Sprintf("failed to encode json schema: %v", marshalErr))
		}
		instruction := "Respond with valid JSON only that matches this JSON schema: " + string(schemaBytes)

		prompt := opts.Prompt
		var messages []Message
		if opts.Prompt != "" {
			prompt = opts.Prompt + "\n\n" + instruction
		} else {
			messages = append(append([]Message(nil), opts.Messages...), UserMessage(instruction))
		}

		result, err = Generate(ctx, GenerateOptions{
			Client:          opts.Client,
			Model:           opts.Model,
			Prompt:          prompt,
			Messages:        messages,
			System:          opts.System,
			Provider:        opts.Provider,
			Temperature:     opts.Temperature,
			TopP:            opts.TopP,
			MaxTokens:       opts.MaxTokens,
			StopSequences:   opts.StopSequences,
			ReasoningEffort: opts.ReasoningEffort,
			Metadata:        opts.Metadata,
			ProviderOptions: opts.ProviderOptions,
		})
	}
	if err != nil {
		return nil, err
	}

	output := strings.TrimSpace(result.Response().Text())
	parsed := jsonparser.ParsePartialJSON(output)
	if parsed.State == jsonparser.ParseStateFailed || parsed.State == jsonparser.ParseStateUndefinedInput {
		return nil, errs.NewNoObjectGeneratedError("failed to parse generated object", parsed.Error)
	}
	return parsed.Value, nil
}

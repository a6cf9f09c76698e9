package llm_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/agentkit/pkg/llm"
)

type queueAdapter struct {
	name      string
	responses []*llm.Response
	call      int
}

func (q *queueAdapter) Name() string { return q.name }

func (q *queueAdapter) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	resp := q.responses[q.call]
	if q.call < len(q.responses)-1 {
		q.call++
	}
	return resp, nil
}

func (q *queueAdapter) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	return nil, errors.New("not implemented")
}

func (q *queueAdapter) Close() error                                    { return nil }
func (q *queueAdapter) Initialize(ctx context.Context) error            { return nil }
func (q *queueAdapter) SupportsToolChoice(mode llm.ToolChoiceMode) bool { return true }

func toolCallResponse(id, name string, args map[string]any) *llm.Response {
	return &llm.Response{
		Model:    "m",
		Provider: "openai",
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: []llm.ContentPart{llm.ToolCallContent{ID: id, Name: name, Arguments: args}},
		},
		FinishReason: llm.FinishReason{Reason: llm.FinishReasonToolCalls},
		Usage:        llm.Usage{InputTokens: 1, OutputTokens: 1},
	}
}

func textResponse(text string) *llm.Response {
	return &llm.Response{
		Model:        "m",
		Provider:     "openai",
		Message:      llm.AssistantMessage(text),
		FinishReason: llm.FinishReason{Reason: llm.FinishReasonStop},
		Usage:        llm.Usage{InputTokens: 2, OutputTokens: 2},
	}
}

func TestGenerateStopsWhenNoToolCalls(t *testing.T) {
	adapter := &queueAdapter{name: "openai", responses: []*llm.Response{textResponse("done")}}
	client := llm.NewClient(map[string]llm.Adapter{"openai": adapter}, "openai")

	result, err := llm.Generate(context.Background(), llm.GenerateOptions{Client: client, Model: "m", Prompt: "hi"})
	require.NoError(t, err)
	assert.Len(t, result.Steps, 1)
	assert.Equal(t, "done", result.Response().Text())
	assert.EqualValues(t, 2, result.TotalUsage.InputTokens)
}

func TestGenerateExecutesToolHandlerAndContinues(t *testing.T) {
	adapter := &queueAdapter{name: "openai", responses: []*llm.Response{
		toolCallResponse("call_1", "read_file", map[string]any{"path": "a.txt"}),
		textResponse("finished"),
	}}
	client := llm.NewClient(map[string]llm.Adapter{"openai": adapter}, "openai")

	var handlerCalled bool
	result, err := llm.Generate(context.Background(), llm.GenerateOptions{
		Client: client, Model: "m", Prompt: "read it",
		Tools: []llm.ToolDefinition{{Name: "read_file"}},
		ToolHandlers: map[string]llm.ToolHandler{
			"read_file": func(ctx context.Context, args map[string]any) (any, error) {
				handlerCalled = true
				assert.Equal(t, "a.txt", args["path"])
				return "file contents", nil
			},
		},
	})
	require.NoError(t, err)
	assert.True(t, handlerCalled)
	assert.Len(t, result.Steps, 2)
	assert.Equal(t, "finished", result.Response().Text())
}

func TestGenerateUnknownToolProducesErrorResult(t *testing.T) {
	adapter := &queueAdapter{name: "openai", responses: []*llm.Response{
		toolCallResponse("call_1", "mystery_tool", map[string]any{}),
		textResponse("ok"),
	}}
	client := llm.NewClient(map[string]llm.Adapter{"openai": adapter}, "openai")

	result, err := llm.Generate(context.Background(), llm.GenerateOptions{
		Client: client, Model: "m", Prompt: "go",
		Tools:        []llm.ToolDefinition{{Name: "mystery_tool"}},
		ToolHandlers: map[string]llm.ToolHandler{},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Response().Text())
}

func TestGenerateToolHandlerErrorBecomesErrorToolResult(t *testing.T) {
	adapter := &queueAdapter{name: "openai", responses: []*llm.Response{
		toolCallResponse("call_1", "flaky", map[string]any{}),
		textResponse("recovered"),
	}}
	client := llm.NewClient(map[string]llm.Adapter{"openai": adapter}, "openai")

	result, err := llm.Generate(context.Background(), llm.GenerateOptions{
		Client: client, Model: "m", Prompt: "go",
		Tools: []llm.ToolDefinition{{Name: "flaky"}},
		ToolHandlers: map[string]llm.ToolHandler{
			"flaky": func(ctx context.Context, args map[string]any) (any, error) {
				return nil, errors.New("boom")
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.Response().Text())
}

func TestGenerateRequiresExactlyOneOfPromptOrMessages(t *testing.T) {
	adapter := &queueAdapter{name: "openai", responses: []*llm.Response{textResponse("x")}}
	client := llm.NewClient(map[string]llm.Adapter{"openai": adapter}, "openai")

	_, err := llm.Generate(context.Background(), llm.GenerateOptions{Client: client, Model: "m"})
	assert.Error(t, err)

	_, err = llm.Generate(context.Background(), llm.GenerateOptions{
		Client: client, Model: "m", Prompt: "hi", Messages: []llm.Message{llm.UserMessage("hi")},
	})
	assert.Error(t, err)
}

func TestGenerateObjectNativeProviderSetsJSONSchemaFormat(t *testing.T) {
	var capturedFormat *llm.ResponseFormat
	adapter := &capturingAdapter{
		name: "openai",
		onComplete: func(req *llm.Request) *llm.Response {
			capturedFormat = req.ResponseFormat
			return textResponse(`{"ok": true}`)
		},
	}
	client := llm.NewClient(map[string]llm.Adapter{"openai": adapter}, "openai")

	schema := map[string]any{"type": "object"}
	out, err := llm.GenerateObject(context.Background(), llm.GenerateObjectOptions{
		Client: client, Model: "m", JSONSchema: schema, Prompt: "give me json",
	})
	require.NoError(t, err)
	require.NotNil(t, capturedFormat)
	assert.Equal(t, llm.ResponseFormatJSONSchema, capturedFormat.Type)
	assert.Equal(t, map[string]any{"ok": true}, out)
}

func TestGenerateObjectFallbackAppendsInstructionForUnsupportedProvider(t *testing.T) {
	var capturedPrompt string
	adapter := &capturingAdapter{
		name: "openai_compat",
		onComplete: func(req *llm.Request) *llm.Response {
			capturedPrompt = req.Messages[len(req.Messages)-1].Text()
			return textResponse(`{"ok": true}`)
		},
	}
	client := llm.NewClient(map[string]llm.Adapter{"openai_compat": adapter}, "openai_compat")

	schema := map[string]any{"type": "object"}
	_, err := llm.GenerateObject(context.Background(), llm.GenerateObjectOptions{
		Client: client, Model: "m", JSONSchema: schema, Prompt: "give me json",
	})
	require.NoError(t, err)
	assert.Contains(t, capturedPrompt, "Respond with valid JSON only")
}

func TestGenerateObjectFailsOnUnparseableOutput(t *testing.T) {
	adapter := &queueAdapter{name: "openai", responses: []*llm.Response{textResponse("nope definitely not json")}}
	client := llm.NewClient(map[string]llm.Adapter{"openai": adapter}, "openai")

	_, err := llm.GenerateObject(context.Background(), llm.GenerateObjectOptions{
		Client: client, Model: "m", JSONSchema: map[string]any{"type": "object"}, Prompt: "go",
	})
	assert.Error(t, err)
}

type capturingAdapter struct {
	name       string
	onComplete func(req *llm.Request) *llm.Response
}

func (c *capturingAdapter) Name() string { return c.name }
func (c *capturingAdapter) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	return c.onComplete(req), nil
}
func (c *capturingAdapter) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	return nil, errors.New("not implemented")
}
func (c *capturingAdapter) Close() error                                    { return nil }
func (c *capturingAdapter) Initialize(ctx context.Context) error            { return nil }
func (c *capturingAdapter) SupportsToolChoice(mode llm.ToolChoiceMode) bool { return true }

// chanStream is a minimal llm.Stream for exercising StreamAccumulator via
// StreamGenerate without depending on a real adapter's transport.
type chanStream struct {
	events chan llm.StreamEvent
}

func (s *chanStream) Events() <-chan llm.StreamEvent { return s.events }
func (s *chanStream) Close() error                   { return nil }

type streamingAdapter struct {
	name   string
	events []llm.StreamEvent
}

func (s *streamingAdapter) Name() string { return s.name }
func (s *streamingAdapter) Complete(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	return nil, errors.New("not implemented")
}
func (s *streamingAdapter) Stream(ctx context.Context, req *llm.Request) (llm.Stream, error) {
	cs := &chanStream{events: make(chan llm.StreamEvent, len(s.events))}
	for _, e := range s.events {
		cs.events <- e
	}
	close(cs.events)
	return cs, nil
}
func (s *streamingAdapter) Close() error                                    { return nil }
func (s *streamingAdapter) Initialize(ctx context.Context) error            { return nil }
func (s *streamingAdapter) SupportsToolChoice(mode llm.ToolChoiceMode) bool { return true }

func TestStreamGenerateAccumulatesTextAndFinish(t *testing.T) {
	finish := llm.FinishReason{Reason: llm.FinishReasonStop}
	usage := llm.Usage{InputTokens: 1, OutputTokens: 1}
	adapter := &streamingAdapter{name: "openai", events: []llm.StreamEvent{
		{Type: llm.StreamEventTextStart, TextID: "0"},
		{Type: llm.StreamEventTextDelta, Delta: "hel", TextID: "0"},
		{Type: llm.StreamEventTextDelta, Delta: "lo", TextID: "0"},
		{Type: llm.StreamEventTextEnd, TextID: "0"},
		{Type: llm.StreamEventFinish, FinishReason: &finish, Usage: &usage},
	}}
	client := llm.NewClient(map[string]llm.Adapter{"openai": adapter}, "openai")

	sr, err := llm.StreamGenerate(context.Background(), llm.StreamOptions{Client: client, Model: "m", Prompt: "hi"})
	require.NoError(t, err)

	resp, err := sr.Response()
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text())
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason.Reason)
}

func TestUsageAddTreatsNilAsZeroUnlessBothNil(t *testing.T) {
	reasoning := int64(5)
	a := llm.Usage{InputTokens: 1, OutputTokens: 2, ReasoningTokens: &reasoning}
	b := llm.Usage{InputTokens: 3, OutputTokens: 4}

	sum := a.Add(b)
	assert.EqualValues(t, 4, sum.InputTokens)
	assert.EqualValues(t, 6, sum.OutputTokens)
	require.NotNil(t, sum.ReasoningTokens)
	assert.EqualValues(t, 5, *sum.ReasoningTokens)

	bothNil := llm.Usage{}.Add(llm.Usage{})
	assert.Nil(t, bothNil.ReasoningTokens)
}

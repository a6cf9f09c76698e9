package openaicompat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/agentkit/pkg/llm"
	"github.com/modelbridge/agentkit/pkg/llm/adapters/openaicompat"
)

func TestCompleteTranslatesToolResultMessage(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{
			"id": "chatcmpl_1",
			"model": "local-model",
			"choices": [{"message": {"content": "done"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 4, "completion_tokens": 2}
		}`)
	}))
	defer server.Close()

	adapter := openaicompat.New(openaicompat.Config{APIKey: "k", BaseURL: server.URL})
	defer adapter.Close()

	resp, err := adapter.Complete(context.Background(), &llm.Request{
		Model: "local-model",
		Messages: []llm.Message{
			llm.UserMessage("run the tool"),
			llm.ToolResultMessage("call_1", "42", false),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.Text())
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason.Reason)

	messages := captured["messages"].([]any)
	toolMsg := messages[len(messages)-1].(map[string]any)
	assert.Equal(t, "tool", toolMsg["role"])
	assert.Equal(t, "call_1", toolMsg["tool_call_id"])
	assert.Equal(t, "42", toolMsg["content"])
}

func TestCompleteParsesToolCalls(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"id": "c1",
			"model": "local-model",
			"choices": [{
				"message": {
					"content": null,
					"tool_calls": [{"id": "call_1", "function": {"name": "glob", "arguments": "{\"pattern\":\"*.go\"}"}}]
				},
				"finish_reason": "tool_calls"
			}]
		}`)
	}))
	defer server.Close()

	adapter := openaicompat.New(openaicompat.Config{APIKey: "k", BaseURL: server.URL})
	defer adapter.Close()

	resp, err := adapter.Complete(context.Background(), &llm.Request{Model: "local-model", Messages: []llm.Message{llm.UserMessage("go")}})
	require.NoError(t, err)
	assert.Equal(t, llm.FinishReasonToolCalls, resp.FinishReason.Reason)
	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "*.go", calls[0].Arguments["pattern"])
}

func TestStreamClosesTextBeforeToolCallsOnFinishChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		events := []string{
			`{"choices":[{"delta":{"content":"he"}}]}`,
			`{"choices":[{"delta":{"content":"llo"}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"glob"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"pattern\":\"*.go\"}"}}]}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"tool_calls"}],"usage":{"prompt_tokens":3,"completion_tokens":4}}`,
		}
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
		}
		flusher.Flush()
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	adapter := openaicompat.New(openaicompat.Config{APIKey: "k", BaseURL: server.URL})
	defer adapter.Close()

	stream, err := adapter.Stream(context.Background(), &llm.Request{Model: "local-model", Messages: []llm.Message{llm.UserMessage("go")}})
	require.NoError(t, err)
	defer stream.Close()

	var seen []llm.StreamEventType
	var toolEnd *llm.ToolCall
	var usage *llm.Usage
	for ev := range stream.Events() {
		seen = append(seen, ev.Type)
		if ev.Type == llm.StreamEventToolCallEnd {
			toolEnd = ev.ToolCall
		}
		if ev.Type == llm.StreamEventFinish {
			usage = ev.Usage
		}
	}

	require.NotNil(t, toolEnd)
	assert.Equal(t, "*.go", toolEnd.Arguments["pattern"])
	require.NotNil(t, usage)
	assert.EqualValues(t, 3, usage.InputTokens)
	assert.EqualValues(t, 4, usage.OutputTokens)

	textEndIdx, toolEndIdx := -1, -1
	for i, v := range seen {
		if v == llm.StreamEventTextEnd {
			textEndIdx = i
		}
		if v == llm.StreamEventToolCallEnd {
			toolEndIdx = i
		}
	}
	require.True(t, textEndIdx >= 0 && toolEndIdx >= 0)
	assert.Less(t, textEndIdx, toolEndIdx, "text_end closes before tool_call_end on a shared finish chunk")
	assert.Equal(t, 1, countFinish(seen))
}

func TestStreamSynthesizesCloseOutWhenNoFinishReasonSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `data: {"choices":[{"delta":{"content":"hi"}}]}`+"\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	adapter := openaicompat.New(openaicompat.Config{APIKey: "k", BaseURL: server.URL})
	defer adapter.Close()

	stream, err := adapter.Stream(context.Background(), &llm.Request{Model: "local-model", Messages: []llm.Message{llm.UserMessage("go")}})
	require.NoError(t, err)
	defer stream.Close()

	var sawTextEnd, sawFinish bool
	for ev := range stream.Events() {
		if ev.Type == llm.StreamEventTextEnd {
			sawTextEnd = true
		}
		if ev.Type == llm.StreamEventFinish {
			sawFinish = true
		}
	}
	assert.True(t, sawTextEnd)
	assert.True(t, sawFinish)
}

func countFinish(events []llm.StreamEventType) int {
	n := 0
	for _, e := range events {
		if e == llm.StreamEventFinish {
			n++
		}
	}
	return n
}

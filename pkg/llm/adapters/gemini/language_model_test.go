package gemini_test

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
	"github.com/modelbridge/agentkit/pkg/llm/adapters/gemini"
)

func TestCompleteHoistsSystemInstructionAndKeyQueryParam(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.String(), "/v1beta/models/gemini-2.5:generateContent")
		assert.Contains(t, r.URL.RawQuery, "key=gk-test")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{
			"responseId": "resp_1",
			"modelVersion": "gemini-2.5",
			"candidates": [{"content": {"parts": [{"text": "hi"}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 2, "totalTokenCount": 5}
		}`)
	}))
	defer server.Close()

	adapter := gemini.New(gemini.Config{APIKey: "gk-test", BaseURL: server.URL})
	defer adapter.Close()

	resp, err := adapter.Complete(context.Background(), &llm.Request{
		Model: "gemini-2.5",
		Messages: []llm.Message{
			llm.SystemMessage("be brief"),
			llm.UserMessage("hello"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hi", resp.Text())
	assert.Equal(t, llm.FinishReasonStop, resp.FinishReason.Reason)
	assert.EqualValues(t, 3, resp.Usage.InputTokens)
	assert.EqualValues(t, 2, resp.Usage.OutputTokens)

	sysInstr, ok := captured["systemInstruction"].(map[string]any)
	require.True(t, ok)
	parts := sysInstr["parts"].([]any)
	assert.Equal(t, "be brief", parts[0].(map[string]any)["text"])

	contents := captured["contents"].([]any)
	for _, raw := range contents {
		c := raw.(map[string]any)
		assert.NotEqual(t, "system", c["role"])
	}
}

func TestCompleteSynthesizesCallIDWhenEmpty(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		fmt.Fprint(w, `{"responseId":"r","modelVersion":"gemini","candidates":[{"content":{"parts":[{"functionCall":{"name":"glob","args":{"pattern":"*.go"}}}]},"finishReason":"STOP"}]}`)
	}))
	defer server.Close()

	adapter := gemini.New(gemini.Config{APIKey: "k", BaseURL: server.URL})
	defer adapter.Close()

	resp, err := adapter.Complete(context.Background(), &llm.Request{Model: "gemini", Messages: []llm.Message{llm.UserMessage("go")}})
	require.NoError(t, err)
	assert.Equal(t, llm.FinishReasonToolCalls, resp.FinishReason.Reason, "any function call present forces tool_calls finish")
	calls := resp.ToolCalls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].ID)
}

func TestStreamEmitsTextDeltasAndImmediateToolCallBracket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		events := []string{
			`{"candidates":[{"content":{"parts":[{"text":"he"}]}}]}`,
			`{"candidates":[{"content":{"parts":[{"text":"llo"}]}}]}`,
			`{"candidates":[{"content":{"parts":[{"functionCall":{"id":"c1","name":"glob","args":{"pattern":"*.go"}}}]},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":1,"candidatesTokenCount":2}}`,
		}
		for _, e := range events {
			fmt.Fprintf(w, "data: %s\n\n", e)
		}
		flusher.Flush()
	}))
	defer server.Close()

	adapter := gemini.New(gemini.Config{APIKey: "k", BaseURL: server.URL})
	defer adapter.Close()

	stream, err := adapter.Stream(context.Background(), &llm.Request{Model: "gemini", Messages: []llm.Message{llm.UserMessage("go")}})
	require.NoError(t, err)
	defer stream.Close()

	var textDeltas []string
	var seen []llm.StreamEventType
	var finish *llm.FinishReason
	for ev := range stream.Events() {
		seen = append(seen, ev.Type)
		if ev.Type == llm.StreamEventTextDelta {
			textDeltas = append(textDeltas, ev.Delta)
		}
		if ev.Type == llm.StreamEventFinish {
			finish = ev.FinishReason
		}
	}

	assert.Equal(t, []string{"he", "llo"}, textDeltas)
	require.NotNil(t, finish)
	assert.Equal(t, llm.FinishReasonToolCalls, finish.Reason)

	startIdx, endIdx := -1, -1
	for i, v := range seen {
		if v == llm.StreamEventToolCallStart {
			startIdx = i
		}
		if v == llm.StreamEventToolCallEnd {
			endIdx = i
		}
	}
	assert.True(t, startIdx >= 0 && endIdx == startIdx+1, "gemini emits tool_call_start immediately followed by tool_call_end")
}

func TestStreamSynthesizesFinishWhenStreamEndsWithoutOne(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, `data: {"candidates":[{"content":{"parts":[{"text":"partial"}]}}]}`+"\n\n")
		flusher.Flush()
	}))
	defer server.Close()

	adapter := gemini.New(gemini.Config{APIKey: "k", BaseURL: server.URL})
	defer adapter.Close()

	stream, err := adapter.Stream(context.Background(), &llm.Request{Model: "gemini", Messages: []llm.Message{llm.UserMessage("go")}})
	require.NoError(t, err)
	defer stream.Close()

	var gotFinish bool
	for ev := range stream.Events() {
		if ev.Type == llm.StreamEventFinish {
			gotFinish = true
		}
	}
	assert.True(t, gotFinish, "a synthetic finish must close the stream even without a finishReason")
}

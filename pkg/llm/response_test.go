package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelbridge/agentkit/pkg/llm"
)

func int64Ptr(v int64) *int64 { return &v }

func TestUsageTotalTokens(t *testing.T) {
	u := llm.Usage{InputTokens: 10, OutputTokens: 5}
	assert.Equal(t, int64(15), u.TotalTokens())
}

func TestUsageAddSumsRequiredFields(t *testing.T) {
	a := llm.Usage{InputTokens: 10, OutputTokens: 5}
	b := llm.Usage{InputTokens: 3, OutputTokens: 2}

	sum := a.Add(b)
	assert.Equal(t, int64(13), sum.InputTokens)
	assert.Equal(t, int64(7), sum.OutputTokens)
}

func TestUsageAddOptionalFieldsNonePlusNoneIsNone(t *testing.T) {
	a := llm.Usage{}
	b := llm.Usage{}

	sum := a.Add(b)
	assert.Nil(t, sum.ReasoningTokens)
	assert.Nil(t, sum.CacheReadTokens)
}

func TestUsageAddOptionalFieldsTreatsNilAsZero(t *testing.T) {
	a := llm.Usage{ReasoningTokens: int64Ptr(4)}
	b := llm.Usage{}

	sum := a.Add(b)
	require.NotNil(t, sum.ReasoningTokens)
	assert.Equal(t, int64(4), *sum.ReasoningTokens)
}

func TestUsageAddOptionalFieldsBothSet(t *testing.T) {
	a := llm.Usage{CacheReadTokens: int64Ptr(4)}
	b := llm.Usage{CacheReadTokens: int64Ptr(6)}

	sum := a.Add(b)
	assert.Equal(t, int64(10), *sum.CacheReadTokens)
}

func TestResponseTextConcatenatesTextParts(t *testing.T) {
	resp := llm.Response{
		Message: llm.Message{Content: []llm.ContentPart{
			llm.TextContent{Text: "hello "},
			llm.TextContent{Text: "world"},
		}},
	}
	assert.Equal(t, "hello world", resp.Text())
}

func TestResponseToolCallsExtractsOnlyToolCallParts(t *testing.T) {
	resp := llm.Response{
		Message: llm.Message{Content: []llm.ContentPart{
			llm.TextContent{Text: "thinking"},
			llm.ToolCallContent{ID: "1", Name: "grep", Arguments: map[string]any{"pattern": "x"}},
		}},
	}
	calls := resp.ToolCalls()
	assert.Len(t, calls, 1)
	assert.Equal(t, "grep", calls[0].Name)
}

func TestResponseReasoningConcatenatesThinkingParts(t *testing.T) {
	resp := llm.Response{
		Message: llm.Message{Content: []llm.ContentPart{
			llm.ThinkingContent{Text: "step one. "},
			llm.TextContent{Text: "answer"},
			llm.ThinkingContent{Text: "step two."},
		}},
	}
	assert.Equal(t, "step one. step two.", resp.Reasoning())
}

func TestResponseReasoningEmptyWhenNoThinkingParts(t *testing.T) {
	resp := llm.Response{Message: llm.Message{Content: []llm.ContentPart{llm.TextContent{Text: "x"}}}}
	assert.Equal(t, "", resp.Reasoning())
}

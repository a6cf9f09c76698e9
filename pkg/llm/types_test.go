package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/modelbridge/agentkit/pkg/llm"
)

func TestMessageTextConcatenatesOnlyTextParts(t *testing.T) {
	msg := llm.Message{Content: []llm.ContentPart{
		llm.TextContent{Text: "a"},
		llm.ToolCallContent{Name: "shell"},
		llm.TextContent{Text: "b"},
	}}
	assert.Equal(t, "ab", msg.Text())
}

func TestMessageToolCallsExtractsAllCalls(t *testing.T) {
	msg := llm.Message{Content: []llm.ContentPart{
		llm.ToolCallContent{ID: "1", Name: "grep"},
		llm.TextContent{Text: "x"},
		llm.ToolCallContent{ID: "2", Name: "glob"},
	}}
	calls := msg.ToolCalls()
	assert.Len(t, calls, 2)
	assert.Equal(t, "grep", calls[0].Name)
	assert.Equal(t, "glob", calls[1].Name)
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, llm.RoleSystem, llm.SystemMessage("sys").Role)
	assert.Equal(t, llm.RoleUser, llm.UserMessage("usr").Role)
	assert.Equal(t, llm.RoleAssistant, llm.AssistantMessage("asst").Role)
	assert.Equal(t, "sys", llm.SystemMessage("sys").Text())
}

func TestToolResultMessageSetsToolCallIDOnBothLevels(t *testing.T) {
	msg := llm.ToolResultMessage("call-1", "done", false)
	assert.Equal(t, llm.RoleTool, msg.Role)
	assert.Equal(t, "call-1", msg.ToolCallID)

	content := msg.Content[0].(llm.ToolResultContent)
	assert.Equal(t, "call-1", content.ToolCallID)
	assert.False(t, content.IsError)
}

func TestThinkingContentKindReflectsRedacted(t *testing.T) {
	assert.Equal(t, llm.ContentKindThinking, llm.ThinkingContent{Text: "x"}.Kind())
	assert.Equal(t, llm.ContentKindRedactedThinking, llm.ThinkingContent{Text: "x", Redacted: true}.Kind())
}

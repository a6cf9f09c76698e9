// Package agent implements the agent session core: turn history, the
// tool-execution round loop, steering and follow-up injection, loop
// detection, and a depth-bounded subagent manager on top of pkg/llm.
package agent

import (
	"fmt"
	"time"

	"github.com/modelbridge/agentkit/pkg/llm"
)

// Turn is one element of a session's history. It is a closed tagged union
// over UserTurn, AssistantTurn, ToolResultsTurn, SystemTurn, and
// SteeringTurn; callers type-switch on the concrete type.
type Turn interface {
	turn()
	Time() time.Time
}

// UserTurn records one user utterance.
type UserTurn struct {
	Content   string
	Timestamp time.Time
}

func (UserTurn) turn()             {}
func (t UserTurn) Time() time.Time { return t.Timestamp }

// AssistantTurn records one model completion, including any tool calls it
// requested. It is appended only after the provider call returns.
type AssistantTurn struct {
	Content      string
	ToolCalls    []llm.ToolCall
	Reasoning    string
	Usage        *llm.Usage
	ResponseID   string
	Timestamp    time.Time
}

func (AssistantTurn) turn()             {}
func (t AssistantTurn) Time() time.Time { return t.Timestamp }

// ToolResultsTurn records the results of executing one round of tool
// calls. It never appears without a preceding AssistantTurn that carried
// those calls.
type ToolResultsTurn struct {
	Results   []llm.ToolResult
	Timestamp time.Time
}

func (ToolResultsTurn) turn()             {}
func (t ToolResultsTurn) Time() time.Time { return t.Timestamp }

// SystemTurn records a system instruction injected mid-history.
type SystemTurn struct {
	Content   string
	Timestamp time.Time
}

func (SystemTurn) turn()             {}
func (t SystemTurn) Time() time.Time { return t.Timestamp }

// SteeringTurn records an out-of-band hint injected between rounds,
// surfaced to the provider as a user message.
type SteeringTurn struct {
	Content   string
	Timestamp time.Time
}

func (SteeringTurn) turn()             {}
func (t SteeringTurn) Time() time.Time { return t.Timestamp }

// ConvertHistoryToMessages flattens a turn history into the provider-
// agnostic message sequence a Request carries. User and steering turns
// become user messages; assistant turns become an assistant message whose
// content is its text followed by its tool calls; tool-results turns
// become one tool-role message per result.
func ConvertHistoryToMessages(history []Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history))
	for _, turn := range history {
		switch t := turn.(type) {
		case UserTurn:
			messages = append(messages, llm.UserMessage(t.Content))
		case SteeringTurn:
			messages = append(messages, llm.UserMessage(t.Content))
		case SystemTurn:
			messages = append(messages, llm.SystemMessage(t.Content))
		case AssistantTurn:
			var content []llm.ContentPart
			if t.Content != "" {
				content = append(content, llm.TextContent{Text: t.Content})
			}
			for _, tc := range t.ToolCalls {
				content = append(content, llm.ToolCallContent{
					ID:           tc.ID,
					Name:         tc.Name,
					Arguments:    tc.Arguments,
					RawArguments: tc.RawArguments,
				})
			}
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: content})
		case ToolResultsTurn:
			for _, result := range t.Results {
				content, ok := result.Content.(string)
				if !ok {
					content = toText(result.Content)
				}
				messages = append(messages, llm.ToolResultMessage(result.ToolCallID, content, result.IsError))
			}
		}
	}
	return messages
}

func toText(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

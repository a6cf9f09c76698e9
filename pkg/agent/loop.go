package agent

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/modelbridge/agentkit/pkg/llm"
	"github.com/modelbridge/agentkit/pkg/llm/telemetry"
)

const loopDetectedWarning = "Loop detected: the last tool calls follow a repeating pattern. Try a different approach."

// detectLoop reports whether the last windowSize assistant tool-call
// signatures (flattened across all assistant turns in history, in order)
// are a repetition of some pattern of length 1, 2, or 3 that evenly
// divides windowSize. Fewer than windowSize signatures never trigger.
func detectLoop(history []Turn, windowSize int) bool {
	if windowSize <= 0 {
		return false
	}
	var signatures []string
	for _, turn := range history {
		at, ok := turn.(AssistantTurn)
		if !ok {
			continue
		}
		for _, call := range at.ToolCalls {
			key, _ := json.Marshal(call.Arguments)
			signatures = append(signatures, call.Name+":"+string(key))
		}
	}

	if len(signatures) < windowSize {
		return false
	}
	recent := signatures[len(signatures)-windowSize:]

	for _, patternLen := range []int{1, 2, 3} {
		if windowSize%patternLen != 0 {
			continue
		}
		pattern := recent[:patternLen]
		matches := true
		for i := 0; i < windowSize; i += patternLen {
			for j := 0; j < patternLen; j++ {
				if recent[i+j] != pattern[j] {
					matches = false
					break
				}
			}
			if !matches {
				break
			}
		}
		if matches {
			return true
		}
	}
	return false
}

func drainSteering(s *Session) {
	for len(s.steeringQueue) > 0 {
		message := s.steeringQueue[0]
		s.steeringQueue = s.steeringQueue[1:]
		s.History = append(s.History, SteeringTurn{Content: message, Timestamp: time.Now().UTC()})
		s.Events.Emit(EventSteeringInjected, s.ID, map[string]any{"content": message})
	}
}

func executeSingleTool(ctx context.Context, s *Session, call llm.ToolCall) llm.ToolResult {
	s.Events.Emit(EventToolCallStart, s.ID, map[string]any{"tool_name": call.Name, "call_id": call.ID})

	raw, err := s.Profile.ToolRegistry.Execute(ctx, call.Name, call.Arguments, s.ExecutionEnv)
	if err != nil {
		message := "Tool error (" + call.Name + "): " + err.Error()
		s.Events.Emit(EventToolCallEnd, s.ID, map[string]any{
			"tool_name": call.Name, "call_id": call.ID, "error": message,
		})
		return llm.ToolResult{ToolCallID: call.ID, Content: message, IsError: true}
	}

	truncated := TruncateToolOutput(raw, call.Name, s.Config.ToolOutputLimits, s.Config.ToolLineLimits)
	s.Events.Emit(EventToolCallEnd, s.ID, map[string]any{
		"tool_name": call.Name, "call_id": call.ID, "output": raw,
	})
	return llm.ToolResult{ToolCallID: call.ID, Content: truncated, IsError: false}
}

// executeToolCalls runs each call's tool sequentially, in order,
// preserving deterministic history (no parallel tool execution within a
// round per the session's concurrency model).
func executeToolCalls(ctx context.Context, s *Session, calls []llm.ToolCall) []llm.ToolResult {
	results := make([]llm.ToolResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, executeSingleTool(ctx, s, call))
	}
	return results
}

// completeRound runs one provider call wrapped in a span tagged with the
// session id and profile, when s.Telemetry is set and enabled.
func completeRound(ctx context.Context, s *Session, req *llm.Request) (*llm.Response, error) {
	tracer := telemetry.GetTracer(s.Telemetry)
	attrs := append(telemetry.BaseAttributes(s.Profile.ProviderName, s.Profile.Model, s.Telemetry),
		attribute.String("agent.session_id", s.ID))
	return telemetry.RecordSpan(ctx, tracer, telemetry.SpanOptions{Name: "agent.round", Attributes: attrs},
		func(ctx context.Context, _ oteltrace.Span) (*llm.Response, error) {
			return s.Client.Complete(ctx, req)
		})
}

func buildRequest(s *Session) *llm.Request {
	messages := []llm.Message{llm.SystemMessage(s.Profile.BuildSystemPrompt())}
	messages = append(messages, ConvertHistoryToMessages(s.History)...)

	toolChoice := llm.AutoToolChoice()
	return &llm.Request{
		Model:           s.Profile.Model,
		Provider:        s.Profile.ProviderName,
		Messages:        messages,
		Tools:           s.Profile.Tools(),
		ToolChoice:      &toolChoice,
		ReasoningEffort: s.Config.ReasoningEffort,
		ProviderOptions: s.Profile.ProviderOptions(),
	}
}

// processInput is the session's state machine: idle -> processing ->
// idle, running a bounded round loop of (model completion, tool
// execution) pairs per user input, then draining any queued follow-ups
// as fresh inputs.
func processInput(ctx context.Context, s *Session, userInput string) error {
	s.State = StateProcessing
	s.History = append(s.History, UserTurn{Content: userInput, Timestamp: time.Now().UTC()})
	s.Events.Emit(EventUserInput, s.ID, map[string]any{"content": userInput})
	drainSteering(s)

	roundCount := 0
	for {
		if s.Config.MaxToolRoundsPerInput > 0 && roundCount >= s.Config.MaxToolRoundsPerInput {
			s.Events.Emit(EventTurnLimit, s.ID, map[string]any{"round": roundCount})
			break
		}
		if s.Config.MaxTurns > 0 && len(s.History) >= s.Config.MaxTurns {
			s.Events.Emit(EventTurnLimit, s.ID, map[string]any{"total_turns": len(s.History)})
			break
		}

		response, err := completeRound(ctx, s, buildRequest(s))
		if err != nil {
			s.State = StateIdle
			return err
		}

		toolCalls := response.ToolCalls()
		usage := response.Usage
		assistantTurn := AssistantTurn{
			Content:    response.Text(),
			ToolCalls:  toolCalls,
			Reasoning:  response.Reasoning(),
			Usage:      &usage,
			ResponseID: response.ID,
			Timestamp:  time.Now().UTC(),
		}
		s.History = append(s.History, assistantTurn)
		s.Events.Emit(EventAssistantTextEnd, s.ID, map[string]any{
			"text": assistantTurn.Content, "reasoning": assistantTurn.Reasoning,
		})

		if len(toolCalls) == 0 {
			break
		}
		roundCount++

		results := executeToolCalls(ctx, s, toolCalls)
		s.History = append(s.History, ToolResultsTurn{Results: results, Timestamp: time.Now().UTC()})
		drainSteering(s)

		if s.Config.EnableLoopDetection && detectLoop(s.History, s.Config.LoopDetectionWindow) {
			s.History = append(s.History, SteeringTurn{Content: loopDetectedWarning, Timestamp: time.Now().UTC()})
			s.Events.Emit(EventLoopDetection, s.ID, map[string]any{"message": loopDetectedWarning})
		}
	}

	s.State = StateIdle
	s.Events.Emit(EventSessionEnd, s.ID, map[string]any{})

	for len(s.followupQueue) > 0 {
		next := s.followupQueue[0]
		s.followupQueue = s.followupQueue[1:]
		if err := processInput(ctx, s, next); err != nil {
			return err
		}
	}
	return nil
}

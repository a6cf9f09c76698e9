// Package anthropic implements the Anthropic Messages API adapter:
// POST {base}/v1/messages, x-api-key + anthropic-version headers.
package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/modelbridge/agentkit/pkg/llm/adapters"
	"github.com/modelbridge/agentkit/pkg/llm/internal/httpclient"
	"github.com/modelbridge/agentkit/pkg/llm/llmtypes"
	"github.com/modelbridge/agentkit/pkg/llm/sse"
)

const (
	defaultBaseURL       = "https://api.anthropic.com"
	anthropicVersion     = "2023-06-01"
	defaultMaxTokens int = 4096
)

// Config configures the Anthropic Messages adapter.
type Config struct {
	APIKey      string
	BaseURL     string
	BetaHeaders []string
	Timeout     time.Duration
}

// Adapter implements adapters.Adapter for Anthropic's Messages API.
type Adapter struct {
	http *httpclient.Client
}

// New builds an Anthropic Messages adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	headers := map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}
	if len(cfg.BetaHeaders) > 0 {
		headers["anthropic-beta"] = strings.Join(cfg.BetaHeaders, ",")
	}
	client := httpclient.NewClient("anthropic", httpclient.Config{
		BaseURL: baseURL,
		Headers: headers,
		Timeout: timeout,
		Owned:   true,
	})
	return &Adapter{http: client}
}

func (a *Adapter) Name() string { return "anthropic" }

func (a *Adapter) Initialize(ctx context.Context) error { return nil }

func (a *Adapter) Close() error { return a.http.Close() }

func (a *Adapter) SupportsToolChoice(mode llmtypes.ToolChoiceMode) bool { return true }

var _ adapters.Adapter = (*Adapter)(nil)

// --- request translation ---

func buildPayload(req *llmtypes.Request, stream bool) map[string]any {
	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	payload := map[string]any{
		"model":      req.Model,
		"messages":   translateMessages(req.Messages),
		"max_tokens": maxTokens,
	}
	if system := extractSystem(req.Messages); len(system) > 0 {
		payload["system"] = system
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if len(req.StopSequences) > 0 {
		payload["stop_sequences"] = req.StopSequences
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}

	if req.ToolChoice == nil || req.ToolChoice.Mode != llmtypes.ToolChoiceNone {
		if len(req.Tools) > 0 {
			payload["tools"] = convertTools(req.Tools)
		}
		if tc := translateToolChoice(req.ToolChoice); tc != nil {
			payload["tool_choice"] = tc
		}
	}

	if stream {
		payload["stream"] = true
	}
	return payload
}

func convertTools(tools []llmtypes.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.Parameters,
		})
	}
	return out
}

func translateToolChoice(tc *llmtypes.ToolChoice) map[string]any {
	if tc == nil {
		return nil
	}
	switch tc.Mode {
	case llmtypes.ToolChoiceAuto:
		return map[string]any{"type": "auto"}
	case llmtypes.ToolChoiceRequired:
		return map[string]any{"type": "any"}
	case llmtypes.ToolChoiceNamed:
		if tc.ToolName == "" {
			return nil
		}
		return map[string]any{"type": "tool", "name": tc.ToolName}
	default:
		return nil
	}
}

func extractSystem(messages []llmtypes.Message) []map[string]string {
	var blocks []map[string]string
	for _, m := range messages {
		if m.Role != llmtypes.RoleSystem && m.Role != llmtypes.RoleDeveloper {
			continue
		}
		for _, part := range m.Content {
			if tc, ok := part.(llmtypes.TextContent); ok {
				blocks = append(blocks, map[string]string{"type": "text", "text": tc.Text})
			}
		}
	}
	return blocks
}

// translateMessages converts history into Anthropic's role/content shape,
// merging consecutive same-role messages into one.
func translateMessages(messages []llmtypes.Message) []map[string]any {
	var out []map[string]any

	for _, m := range messages {
		if m.Role == llmtypes.RoleSystem || m.Role == llmtypes.RoleDeveloper {
			continue
		}
		role := "user"
		if m.Role == llmtypes.RoleAssistant {
			role = "assistant"
		}

		content := translateContent(m)
		if len(content) == 0 {
			continue
		}

		if len(out) > 0 && out[len(out)-1]["role"] == role {
			prev := out[len(out)-1]["content"].([]map[string]any)
			out[len(out)-1]["content"] = append(prev, content...)
		} else {
			out = append(out, map[string]any{"role": role, "content": content})
		}
	}

	return out
}

func translateContent(m llmtypes.Message) []map[string]any {
	var blocks []map[string]any
	for _, part := range m.Content {
		switch p := part.(type) {
		case llmtypes.TextContent:
			blocks = append(blocks, map[string]any{"type": "text", "text": p.Text})
		case llmtypes.ToolCallContent:
			args := p.Arguments
			if args == nil {
				args = parseJSONObject(p.RawArguments)
			}
			blocks = append(blocks, map[string]any{
				"type":  "tool_use",
				"id":    p.ID,
				"name":  p.Name,
				"input": args,
			})
		case llmtypes.ToolResultContent:
			blocks = append(blocks, map[string]any{
				"type":        "tool_result",
				"tool_use_id": p.ToolCallID,
				"content":     p.Content,
				"is_error":    p.IsError,
			})
		}
	}
	return blocks
}

func parseJSONObject(s string) map[string]any {
	if s == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// --- response parsing ---

var finishReasonMap = map[string]string{
	"end_turn":      llmtypes.FinishReasonStop,
	"stop_sequence": llmtypes.FinishReasonStop,
	"max_tokens":    llmtypes.FinishReasonLength,
	"tool_use":      llmtypes.FinishReasonToolCalls,
}

func mapFinishReason(raw string) llmtypes.FinishReason {
	reason, ok := finishReasonMap[raw]
	if !ok {
		reason = llmtypes.FinishReasonOther
	}
	return llmtypes.FinishReason{Reason: reason, Raw: raw}
}

type anthUsage struct {
	InputTokens              int64  `json:"input_tokens"`
	OutputTokens             int64  `json:"output_tokens"`
	CacheReadInputTokens     *int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens *int64 `json:"cache_creation_input_tokens"`
}

type anthContentBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text"`
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Input     map[string]any `json:"input"`
	Thinking  string         `json:"thinking"`
	Signature string         `json:"signature"`
	Data      string         `json:"data"`
}

type anthResponseEnvelope struct {
	ID         string             `json:"id"`
	Model      string             `json:"model"`
	Content    []anthContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      anthUsage          `json:"usage"`
}

func convertResponse(env anthResponseEnvelope) *llmtypes.Response {
	var content []llmtypes.ContentPart
	for _, block := range env.Content {
		switch block.Type {
		case "text":
			content = append(content, llmtypes.TextContent{Text: block.Text})
		case "tool_use":
			content = append(content, llmtypes.ToolCallContent{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
				Type:      "function",
			})
		case "thinking":
			content = append(content, llmtypes.ThinkingContent{Text: block.Thinking, Signature: block.Signature})
		case "redacted_thinking":
			content = append(content, llmtypes.ThinkingContent{Text: block.Data, Redacted: true})
		}
	}

	usage := llmtypes.Usage{
		InputTokens:      env.Usage.InputTokens,
		OutputTokens:     env.Usage.OutputTokens,
		CacheReadTokens:  env.Usage.CacheReadInputTokens,
		CacheWriteTokens: env.Usage.CacheCreationInputTokens,
	}

	return &llmtypes.Response{
		ID:           env.ID,
		Model:        env.Model,
		Provider:     "anthropic",
		Message:      llmtypes.Message{Role: llmtypes.RoleAssistant, Content: content},
		FinishReason: mapFinishReason(env.StopReason),
		Usage:        usage,
	}
}

// betaHeaderFromOptions extracts provider_options.anthropic.beta_headers
// and joins it with commas for the per-request anthropic-beta header.
func betaHeaderFromOptions(opts map[string]any) string {
	anth, ok := opts["anthropic"].(map[string]any)
	if !ok {
		return ""
	}
	switch v := anth["beta_headers"].(type) {
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			if s, ok := p.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	}
	return ""
}

func requestHeaders(req *llmtypes.Request) map[string]string {
	if beta := betaHeaderFromOptions(req.ProviderOptions); beta != "" {
		return map[string]string{"anthropic-beta": beta}
	}
	return nil
}

func (a *Adapter) Complete(ctx context.Context, req *llmtypes.Request) (*llmtypes.Response, error) {
	body := buildPayload(req, false)
	var env anthResponseEnvelope
	httpReq := httpclient.Request{Method: "POST", Path: "/v1/messages", Body: body, Headers: requestHeaders(req)}
	if err := a.http.DoJSON(ctx, httpReq, &env); err != nil {
		return nil, err
	}
	return convertResponse(env), nil
}

// --- streaming ---

type toolState struct {
	id       string
	name     string
	input    map[string]any
	partials strings.Builder
}

func (a *Adapter) Stream(ctx context.Context, req *llmtypes.Request) (llmtypes.Stream, error) {
	body := buildPayload(req, true)
	resp, err := a.http.DoStream(ctx, httpclient.Request{Method: "POST", Path: "/v1/messages", Body: body, Headers: requestHeaders(req)})
	if err != nil {
		return nil, err
	}
	cs := adapters.NewChanStream(16, resp.Body)
	go runAnthropicStream(resp, cs)
	return cs, nil
}

type anthStreamEvent struct {
	Type    string `json:"type"`
	Index   *int   `json:"index"`
	Message *struct {
		Usage anthUsage `json:"usage"`
	} `json:"message"`
	ContentBlock *anthContentBlock `json:"content_block"`
	Delta        *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		Thinking    string `json:"thinking"`
		PartialJSON string `json:"partial_json"`
		StopReason  string `json:"stop_reason"`
	} `json:"delta"`
	Usage *anthUsage `json:"usage"`
}

func runAnthropicStream(resp *http.Response, cs *adapters.ChanStream) {
	defer cs.CloseChan()
	defer resp.Body.Close()

	parser := sse.NewParser(resp.Body)
	blockTypes := map[int]string{}
	toolStates := map[int]*toolState{}
	var inputTokens, outputTokens int64
	var finishRaw string

	for {
		ev, err := parser.Next()
		if err != nil {
			return
		}
		if sse.IsDone(ev) {
			return
		}
		if ev.Data == "" {
			continue
		}

		var se anthStreamEvent
		if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
			continue
		}

		switch se.Type {
		case "message_start":
			if se.Message != nil {
				inputTokens = se.Message.Usage.InputTokens
				outputTokens = se.Message.Usage.OutputTokens
			}

		case "content_block_start":
			if se.Index == nil || se.ContentBlock == nil {
				continue
			}
			index := *se.Index
			block := se.ContentBlock
			blockTypes[index] = block.Type

			switch block.Type {
			case "text":
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextStart, TextID: strconv.Itoa(index)})
			case "thinking", "redacted_thinking":
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventReasoningStart})
			case "tool_use":
				input := block.Input
				if input == nil {
					input = map[string]any{}
				}
				toolStates[index] = &toolState{id: block.ID, name: block.Name, input: input}
				cs.Send(llmtypes.StreamEvent{
					Type:     llmtypes.StreamEventToolCallStart,
					ToolCall: &llmtypes.ToolCall{ID: block.ID, Name: block.Name, Arguments: input},
				})
			}

		case "content_block_delta":
			if se.Index == nil || se.Delta == nil {
				continue
			}
			index := *se.Index
			switch se.Delta.Type {
			case "text_delta":
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextDelta, Delta: se.Delta.Text, TextID: strconv.Itoa(index)})
			case "thinking_delta":
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventReasoningDelta, ReasoningDelta: se.Delta.Thinking})
			case "input_json_delta":
				state, ok := toolStates[index]
				if !ok {
					continue
				}
				state.partials.WriteString(se.Delta.PartialJSON)
				cs.Send(llmtypes.StreamEvent{
					Type: llmtypes.StreamEventToolCallDelta,
					ToolCall: &llmtypes.ToolCall{
						ID: state.id, Name: state.name, RawArguments: se.Delta.PartialJSON,
					},
				})
			}

		case "content_block_stop":
			if se.Index == nil {
				continue
			}
			index := *se.Index
			switch blockTypes[index] {
			case "text":
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextEnd, TextID: strconv.Itoa(index)})
			case "thinking", "redacted_thinking":
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventReasoningEnd})
			case "tool_use":
				state, ok := toolStates[index]
				if !ok {
					continue
				}
				args := map[string]any{}
				for k, v := range state.input {
					args[k] = v
				}
				raw := state.partials.String()
				if raw != "" {
					if parsed := parseJSONObject(raw); len(parsed) > 0 {
						for k, v := range parsed {
							args[k] = v
						}
					}
				}
				cs.Send(llmtypes.StreamEvent{
					Type: llmtypes.StreamEventToolCallEnd,
					ToolCall: &llmtypes.ToolCall{
						ID: state.id, Name: state.name, Arguments: args, RawArguments: raw,
					},
				})
			}

		case "message_delta":
			if se.Delta != nil {
				finishRaw = se.Delta.StopReason
			}
			if se.Usage != nil {
				outputTokens = se.Usage.OutputTokens
			}

		case "message_stop":
			finish := mapFinishReason(finishRaw)
			cs.Send(llmtypes.StreamEvent{
				Type:         llmtypes.StreamEventFinish,
				FinishReason: &finish,
				Usage:        &llmtypes.Usage{InputTokens: inputTokens, OutputTokens: outputTokens},
			})
			return
		}
	}
}

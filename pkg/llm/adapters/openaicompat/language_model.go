// Package openaicompat implements the generic OpenAI-compatible Chat
// Completions API adapter: POST {base}/v1/chat/completions, for
// self-hosted and third-party backends that mirror OpenAI's older wire
// format rather than the Responses API.
package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/modelbridge/agentkit/pkg/llm/adapters"
	"github.com/modelbridge/agentkit/pkg/llm/internal/httpclient"
	"github.com/modelbridge/agentkit/pkg/llm/llmtypes"
	"github.com/modelbridge/agentkit/pkg/llm/sse"
)

const defaultBaseURL = "https://api.openai.com"

// Config configures the OpenAI-compatible adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Adapter implements adapters.Adapter for OpenAI-compatible Chat
// Completions backends.
type Adapter struct {
	http *httpclient.Client
}

// New builds an OpenAI-compatible adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	client := httpclient.NewClient("openai_compat", httpclient.Config{
		BaseURL: baseURL,
		Headers: map[string]string{"Authorization": "Bearer " + cfg.APIKey},
		Timeout: timeout,
		Owned:   true,
	})
	return &Adapter{http: client}
}

func (a *Adapter) Name() string { return "openai_compat" }

func (a *Adapter) Initialize(ctx context.Context) error { return nil }

func (a *Adapter) Close() error { return a.http.Close() }

func (a *Adapter) SupportsToolChoice(mode llmtypes.ToolChoiceMode) bool { return true }

var _ adapters.Adapter = (*Adapter)(nil)

// --- request translation ---

func buildPayload(req *llmtypes.Request, stream bool) map[string]any {
	payload := map[string]any{
		"model":    req.Model,
		"messages": translateMessages(req.Messages),
	}
	if req.Temperature != nil {
		payload["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		payload["top_p"] = *req.TopP
	}
	if req.MaxTokens != nil {
		payload["max_tokens"] = *req.MaxTokens
	}
	if len(req.StopSequences) > 0 {
		payload["stop"] = req.StopSequences
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}
	if len(req.Tools) > 0 {
		tools := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			tools = append(tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        t.Name,
					"description": t.Description,
					"parameters":  t.Parameters,
				},
			})
		}
		payload["tools"] = tools
	}
	if tc := translateToolChoice(req.ToolChoice); tc != nil {
		payload["tool_choice"] = tc
	}
	if stream {
		payload["stream"] = true
		payload["stream_options"] = map[string]any{"include_usage": true}
	}
	return payload
}

func translateToolChoice(tc *llmtypes.ToolChoice) any {
	if tc == nil {
		return nil
	}
	switch tc.Mode {
	case llmtypes.ToolChoiceAuto:
		return "auto"
	case llmtypes.ToolChoiceNone:
		return "none"
	case llmtypes.ToolChoiceRequired:
		return "required"
	case llmtypes.ToolChoiceNamed:
		if tc.ToolName == "" {
			return nil
		}
		return map[string]any{"type": "function", "function": map[string]any{"name": tc.ToolName}}
	default:
		return nil
	}
}

func translateMessages(messages []llmtypes.Message) []map[string]any {
	out := make([]map[string]any, 0, len(messages))
	for _, m := range messages {
		if m.Role == llmtypes.RoleTool {
			out = append(out, translateToolResultMessage(m))
			continue
		}

		var textParts []string
		var toolCalls []map[string]any
		for _, part := range m.Content {
			switch p := part.(type) {
			case llmtypes.TextContent:
				textParts = append(textParts, p.Text)
			case llmtypes.ToolCallContent:
				toolCalls = append(toolCalls, translateToolCall(p))
			}
		}

		content := strings.Join(textParts, "")
		msg := map[string]any{"role": string(m.Role)}
		if m.Role == llmtypes.RoleAssistant && content == "" && len(toolCalls) > 0 {
			msg["content"] = nil
		} else {
			msg["content"] = content
		}
		if len(toolCalls) > 0 {
			msg["tool_calls"] = toolCalls
		}
		out = append(out, msg)
	}
	return out
}

func translateToolResultMessage(m llmtypes.Message) map[string]any {
	toolCallID := m.ToolCallID
	var content any = ""

	for _, part := range m.Content {
		if tr, ok := part.(llmtypes.ToolResultContent); ok {
			toolCallID = tr.ToolCallID
			content = tr.Content
			break
		}
		if tc, ok := part.(llmtypes.TextContent); ok && content == "" {
			content = tc.Text
		}
	}

	return map[string]any{
		"role":         "tool",
		"tool_call_id": toolCallID,
		"content":      stringifyContent(content),
	}
}

func stringifyContent(content any) string {
	if s, ok := content.(string); ok {
		return s
	}
	b, err := json.Marshal(content)
	if err != nil {
		return ""
	}
	return string(b)
}

func translateToolCall(tc llmtypes.ToolCallContent) map[string]any {
	arguments := tc.RawArguments
	if arguments == "" {
		b, err := json.Marshal(tc.Arguments)
		if err == nil {
			arguments = string(b)
		}
	}
	return map[string]any{
		"id":   tc.ID,
		"type": "function",
		"function": map[string]any{
			"name":      tc.Name,
			"arguments": arguments,
		},
	}
}

func parseArguments(raw string) map[string]any {
	if raw == "" {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// --- response parsing ---

func mapFinishReason(raw string, hasToolCalls bool) llmtypes.FinishReason {
	if hasToolCalls || raw == "tool_calls" || raw == "function_call" {
		return llmtypes.FinishReason{Reason: llmtypes.FinishReasonToolCalls, Raw: raw}
	}
	mapping := map[string]string{
		"stop":           llmtypes.FinishReasonStop,
		"length":         llmtypes.FinishReasonLength,
		"content_filter": llmtypes.FinishReasonContentFilter,
		"error":          llmtypes.FinishReasonError,
	}
	reason, ok := mapping[raw]
	if !ok {
		reason = llmtypes.FinishReasonOther
	}
	return llmtypes.FinishReason{Reason: reason, Raw: raw}
}

type occUsage struct {
	PromptTokens            int64 `json:"prompt_tokens"`
	CompletionTokens        int64 `json:"completion_tokens"`
	CompletionTokensDetails *struct {
		ReasoningTokens *int64 `json:"reasoning_tokens"`
	} `json:"completion_tokens_details"`
}

func parseUsage(u *occUsage) llmtypes.Usage {
	if u == nil {
		return llmtypes.Usage{}
	}
	out := llmtypes.Usage{InputTokens: u.PromptTokens, OutputTokens: u.CompletionTokens}
	if u.CompletionTokensDetails != nil {
		out.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return out
}

type occToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type occToolCall struct {
	Index    *int                 `json:"index"`
	ID       string               `json:"id"`
	Function *occToolCallFunction `json:"function"`
}

type occMessage struct {
	Content   json.RawMessage `json:"content"`
	ToolCalls []occToolCall   `json:"tool_calls"`
}

type occChoice struct {
	Message      *occMessage `json:"message"`
	Delta        *occMessage `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type occResponseEnvelope struct {
	ID      string      `json:"id"`
	Model   string      `json:"model"`
	Choices []occChoice `json:"choices"`
	Usage   *occUsage   `json:"usage"`
}

func extractTextContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var out string
		for _, b := range blocks {
			if b.Type == "text" {
				out += b.Text
			}
		}
		return out
	}
	return ""
}

func convertResponse(env occResponseEnvelope) *llmtypes.Response {
	var content []llmtypes.ContentPart
	hasToolCalls := false
	var finishRaw string

	if len(env.Choices) > 0 {
		choice := env.Choices[0]
		finishRaw = choice.FinishReason
		if choice.Message != nil {
			if text := extractTextContent(choice.Message.Content); text != "" {
				content = append(content, llmtypes.TextContent{Text: text})
			}
			for _, tc := range choice.Message.ToolCalls {
				hasToolCalls = true
				name, rawArgs := "", ""
				if tc.Function != nil {
					name = tc.Function.Name
					rawArgs = tc.Function.Arguments
				}
				content = append(content, llmtypes.ToolCallContent{
					ID:           tc.ID,
					Name:         name,
					Arguments:    parseArguments(rawArgs),
					RawArguments: rawArgs,
					Type:         "function",
				})
			}
		}
	}

	return &llmtypes.Response{
		ID:           env.ID,
		Model:        env.Model,
		Provider:     "openai_compat",
		Message:      llmtypes.Message{Role: llmtypes.RoleAssistant, Content: content},
		FinishReason: mapFinishReason(finishRaw, hasToolCalls),
		Usage:        parseUsage(env.Usage),
	}
}

func (a *Adapter) Complete(ctx context.Context, req *llmtypes.Request) (*llmtypes.Response, error) {
	body := buildPayload(req, false)
	var env occResponseEnvelope
	if err := a.http.PostJSON(ctx, "/v1/chat/completions", body, &env); err != nil {
		return nil, err
	}
	return convertResponse(env), nil
}

// --- streaming ---

type toolCallState struct {
	id           string
	name         string
	rawArguments string
	started      bool
	ended        bool
}

func (a *Adapter) Stream(ctx context.Context, req *llmtypes.Request) (llmtypes.Stream, error) {
	body := buildPayload(req, true)
	resp, err := a.http.DoStream(ctx, httpclient.Request{Method: "POST", Path: "/v1/chat/completions", Body: body})
	if err != nil {
		return nil, err
	}
	cs := adapters.NewChanStream(16, resp.Body)
	go runStream(resp, cs)
	return cs, nil
}

// runStream replays the classic chat-completions delta chunk loop,
// tracking tool-call deltas by their .index and closing out text/tool
// blocks (in that order) once a finish_reason chunk arrives, or, if the
// stream ends without one, synthesizing the close-out sequence itself.
func runStream(resp *http.Response, cs *adapters.ChanStream) {
	defer cs.CloseChan()
	defer resp.Body.Close()

	parser := sse.NewParser(resp.Body)
	textStarted, textEnded := false, false
	toolStates := map[int]*toolCallState{}
	var latestFinishRaw string
	var latestUsage *occUsage
	finishEmitted := false

	closeOutAndFinish := func() {
		if finishEmitted {
			return
		}
		if textStarted && !textEnded {
			textEnded = true
			cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextEnd, TextID: "0"})
		}
		indices := make([]int, 0, len(toolStates))
		for idx := range toolStates {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			state := toolStates[idx]
			if state.started && !state.ended {
				state.ended = true
				cs.Send(llmtypes.StreamEvent{
					Type: llmtypes.StreamEventToolCallEnd,
					ToolCall: &llmtypes.ToolCall{
						ID: state.id, Name: state.name,
						Arguments: parseArguments(state.rawArguments), RawArguments: state.rawArguments,
					},
				})
			}
		}
		finish := mapFinishReason(latestFinishRaw, len(toolStates) > 0)
		usage := parseUsage(latestUsage)
		cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventFinish, FinishReason: &finish, Usage: &usage})
		finishEmitted = true
	}

	for {
		ev, err := parser.Next()
		if err != nil {
			break
		}
		if sse.IsDone(ev) {
			break
		}
		if ev.Data == "" {
			continue
		}

		var env occResponseEnvelope
		if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
			continue
		}
		if env.Usage != nil {
			latestUsage = env.Usage
		}
		if len(env.Choices) == 0 {
			continue
		}
		choice := env.Choices[0]
		delta := choice.Delta
		if delta == nil {
			delta = &occMessage{}
		}

		if text := extractTextContent(delta.Content); text != "" {
			if !textStarted {
				textStarted = true
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextStart, TextID: "0"})
			}
			cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextDelta, Delta: text, TextID: "0"})
		}

		for _, tc := range delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			state, ok := toolStates[idx]
			if !ok {
				state = &toolCallState{}
				toolStates[idx] = state
			}
			if tc.ID != "" {
				state.id = tc.ID
			}
			if tc.Function != nil && tc.Function.Name != "" {
				state.name = tc.Function.Name
			}
			if !state.started {
				state.started = true
				cs.Send(llmtypes.StreamEvent{
					Type:     llmtypes.StreamEventToolCallStart,
					ToolCall: &llmtypes.ToolCall{ID: state.id, Name: state.name},
				})
			}
			if tc.Function != nil && tc.Function.Arguments != "" {
				state.rawArguments += tc.Function.Arguments
				cs.Send(llmtypes.StreamEvent{
					Type: llmtypes.StreamEventToolCallDelta,
					ToolCall: &llmtypes.ToolCall{
						ID: state.id, Name: state.name, RawArguments: tc.Function.Arguments,
					},
				})
			}
		}

		if choice.FinishReason != "" {
			latestFinishRaw = choice.FinishReason
			closeOutAndFinish()
		}
	}

	if !finishEmitted {
		closeOutAndFinish()
	}
}

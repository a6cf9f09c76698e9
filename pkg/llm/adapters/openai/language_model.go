// Package openai implements the OpenAI Responses API adapter:
// POST {base}/v1/responses, including its streaming event envelope.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/modelbridge/agentkit/pkg/llm/adapters"
	"github.com/modelbridge/agentkit/pkg/llm/internal/httpclient"
	"github.com/modelbridge/agentkit/pkg/llm/llmtypes"
	"github.com/modelbridge/agentkit/pkg/llm/sse"
)

const defaultBaseURL = "https://api.openai.com"

// Config configures the OpenAI Responses adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Adapter implements adapters.Adapter for the OpenAI Responses API.
type Adapter struct {
	http *httpclient.Client
}

// New builds an OpenAI Responses adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	client := httpclient.NewClient("openai", httpclient.Config{
		BaseURL: baseURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + cfg.APIKey,
		},
		Timeout: timeout,
		Owned:   true,
	})
	return &Adapter{http: client}
}

func (a *Adapter) Name() string { return "openai" }

func (a *Adapter) Initialize(ctx context.Context) error { return nil }

func (a *Adapter) Close() error { return a.http.Close() }

func (a *Adapter) SupportsToolChoice(mode llmtypes.ToolChoiceMode) bool { return true }

var _ adapters.Adapter = (*Adapter)(nil)

// --- request translation ---

func buildRequestBody(req *llmtypes.Request, stream bool) map[string]any {
	instructions, input := translateInput(req.Messages)

	body := map[string]any{
		"model":  req.Model,
		"input":  input,
		"stream": stream,
	}
	if instructions != "" {
		body["instructions"] = instructions
	}
	if req.MaxTokens != nil {
		body["max_output_tokens"] = *req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		body["top_p"] = *req.TopP
	}
	if req.ReasoningEffort != "" {
		body["reasoning"] = map[string]any{"effort": req.ReasoningEffort}
	}
	if len(req.Tools) > 0 {
		body["tools"] = convertTools(req.Tools)
	}
	if req.ToolChoice != nil {
		body["tool_choice"] = convertToolChoice(*req.ToolChoice)
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == llmtypes.ResponseFormatJSONSchema {
		body["text"] = map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   req.ResponseFormat.Name,
				"schema": req.ResponseFormat.JSONSchema,
				"strict": req.ResponseFormat.Strict,
			},
		}
	}
	return body
}

func convertTools(tools []llmtypes.ToolDefinition) []map[string]any {
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"type":        "function",
			"name":        t.Name,
			"description": t.Description,
			"parameters":  t.Parameters,
		})
	}
	return out
}

func convertToolChoice(tc llmtypes.ToolChoice) any {
	switch tc.Mode {
	case llmtypes.ToolChoiceNamed:
		return map[string]any{"type": "function", "name": tc.ToolName}
	case llmtypes.ToolChoiceNone:
		return "none"
	case llmtypes.ToolChoiceRequired:
		return "required"
	default:
		return "auto"
	}
}

// translateInput converts turn-converted messages into the Responses
// API's "input" item sequence, hoisting system/developer text into
// instructions and interrupting pending same-role text runs whenever a
// tool call or tool result is encountered.
func translateInput(messages []llmtypes.Message) (string, []map[string]any) {
	var instructions []string
	var input []map[string]any

	flush := func(role llmtypes.Role, buf *[]string) {
		if len(*buf) == 0 {
			return
		}
		text := strings.Join(*buf, "")
		contentType := "input_text"
		if role == llmtypes.RoleAssistant {
			contentType = "output_text"
		}
		input = append(input, map[string]any{
			"type": "message",
			"role": string(role),
			"content": []map[string]any{
				{"type": contentType, "text": text},
			},
		})
		*buf = nil
	}

	for _, m := range messages {
		switch m.Role {
		case llmtypes.RoleSystem, llmtypes.RoleDeveloper:
			if t := m.Text(); t != "" {
				instructions = append(instructions, t)
			}
		case llmtypes.RoleTool:
			for _, part := range m.Content {
				tr, ok := part.(llmtypes.ToolResultContent)
				if !ok {
					continue
				}
				input = append(input, map[string]any{
					"type":    "function_call_output",
					"call_id": tr.ToolCallID,
					"output":  stringifyToolResult(tr.Content),
				})
			}
		default:
			var textBuf []string
			for _, part := range m.Content {
				switch p := part.(type) {
				case llmtypes.TextContent:
					textBuf = append(textBuf, p.Text)
				case llmtypes.ToolCallContent:
					flush(m.Role, &textBuf)
					input = append(input, map[string]any{
						"type":      "function_call",
						"id":        p.ID,
						"call_id":   p.ID,
						"name":      p.Name,
						"arguments": argumentsToJSON(p),
					})
				}
			}
			flush(m.Role, &textBuf)
		}
	}

	return strings.Join(instructions, "\n"), input
}

func argumentsToJSON(tc llmtypes.ToolCallContent) string {
	if tc.RawArguments != "" {
		return tc.RawArguments
	}
	b, err := json.Marshal(tc.Arguments)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func stringifyToolResult(content any) any {
	if s, ok := content.(string); ok {
		return s
	}
	return content
}

// --- response parsing (non-streaming) ---

type oaUsage struct {
	InputTokens        int64 `json:"input_tokens"`
	OutputTokens       int64 `json:"output_tokens"`
	InputTokensDetails *struct {
		CachedTokens int64 `json:"cached_tokens"`
	} `json:"input_tokens_details"`
	OutputTokensDetails *struct {
		ReasoningTokens int64 `json:"reasoning_tokens"`
	} `json:"output_tokens_details"`
}

type oaOutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type oaOutputItem struct {
	Type      string            `json:"type"`
	Role      string            `json:"role"`
	Content   []oaOutputContent `json:"content"`
	ID        string            `json:"id"`
	CallID    string            `json:"call_id"`
	Name      string            `json:"name"`
	Arguments string            `json:"arguments"`
}

type oaResponseEnvelope struct {
	ID                string `json:"id"`
	Model             string `json:"model"`
	Status            string `json:"status"`
	IncompleteDetails *struct {
		Reason string `json:"reason"`
	} `json:"incomplete_details"`
	Output []oaOutputItem `json:"output"`
	Usage  *oaUsage       `json:"usage"`
}

func mapFinishReason(status, incompleteReason string, hasToolCalls bool) llmtypes.FinishReason {
	switch {
	case hasToolCalls:
		return llmtypes.FinishReason{Reason: llmtypes.FinishReasonToolCalls, Raw: status}
	case incompleteReason == "max_output_tokens":
		return llmtypes.FinishReason{Reason: llmtypes.FinishReasonLength, Raw: incompleteReason}
	case incompleteReason == "content_filter" || incompleteReason == "safety":
		return llmtypes.FinishReason{Reason: llmtypes.FinishReasonContentFilter, Raw: incompleteReason}
	case status == "completed":
		return llmtypes.FinishReason{Reason: llmtypes.FinishReasonStop, Raw: status}
	case status == "failed":
		return llmtypes.FinishReason{Reason: llmtypes.FinishReasonError, Raw: status}
	default:
		return llmtypes.FinishReason{Reason: llmtypes.FinishReasonOther, Raw: status}
	}
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

func convertResponse(env oaResponseEnvelope) *llmtypes.Response {
	var content []llmtypes.ContentPart
	hasToolCalls := false
	incompleteReason := ""
	if env.IncompleteDetails != nil {
		incompleteReason = env.IncompleteDetails.Reason
	}

	for _, item := range env.Output {
		switch item.Type {
		case "message":
			for _, c := range item.Content {
				if c.Type == "output_text" {
					content = append(content, llmtypes.TextContent{Text: c.Text})
				}
			}
		case "reasoning":
			for _, c := range item.Content {
				content = append(content, llmtypes.ThinkingContent{Text: c.Text})
			}
		case "function_call":
			hasToolCalls = true
			id := item.CallID
			if id == "" {
				id = item.ID
			}
			content = append(content, llmtypes.ToolCallContent{
				ID:           id,
				Name:         item.Name,
				Arguments:    parseJSONObject(item.Arguments),
				RawArguments: item.Arguments,
				Type:         "function",
			})
		}
	}

	usage := llmtypes.Usage{}
	if env.Usage != nil {
		usage.InputTokens = env.Usage.InputTokens
		usage.OutputTokens = env.Usage.OutputTokens
		if env.Usage.OutputTokensDetails != nil {
			reasoning := env.Usage.OutputTokensDetails.ReasoningTokens
			usage.ReasoningTokens = &reasoning
		}
		if env.Usage.InputTokensDetails != nil {
			cached := env.Usage.InputTokensDetails.CachedTokens
			usage.CacheReadTokens = &cached
		}
	}

	return &llmtypes.Response{
		ID:           env.ID,
		Model:        env.Model,
		Provider:     "openai",
		Message:      llmtypes.Message{Role: llmtypes.RoleAssistant, Content: content},
		FinishReason: mapFinishReason(env.Status, incompleteReason, hasToolCalls),
		Usage:        usage,
	}
}

func (a *Adapter) Complete(ctx context.Context, req *llmtypes.Request) (*llmtypes.Response, error) {
	body := buildRequestBody(req, false)
	var env oaResponseEnvelope
	if err := a.http.PostJSON(ctx, "/v1/responses", body, &env); err != nil {
		return nil, err
	}
	return convertResponse(env), nil
}

// --- streaming ---

type oaStreamItem struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Role      string `json:"role"`
}

type oaStreamEvent struct {
	Type         string        `json:"type"`
	OutputIndex  *int          `json:"output_index"`
	ContentIndex *int          `json:"content_index"`
	Delta        string        `json:"delta"`
	Text         string        `json:"text"`
	Arguments    string        `json:"arguments"`
	Item         *oaStreamItem `json:"item"`
	Response     *struct {
		ID                string `json:"id"`
		Model             string `json:"model"`
		Status            string `json:"status"`
		IncompleteDetails *struct {
			Reason string `json:"reason"`
		} `json:"incomplete_details"`
		Usage *oaUsage `json:"usage"`
	} `json:"response"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type toolCallState struct {
	id   string
	name string
	buf  strings.Builder
}

func (a *Adapter) Stream(ctx context.Context, req *llmtypes.Request) (llmtypes.Stream, error) {
	body := buildRequestBody(req, true)
	resp, err := a.http.DoStream(ctx, httpclient.Request{Method: "POST", Path: "/v1/responses", Body: body})
	if err != nil {
		return nil, err
	}

	cs := adapters.NewChanStream(16, resp.Body)
	go runOpenAIStream(resp, cs)
	return cs, nil
}

// runOpenAIStream parses the SSE event body and emits granular
// text/tool-call/finish events, tracking per-output-index state so that
// concurrent text and tool-call blocks interleave correctly.
func runOpenAIStream(resp *http.Response, cs *adapters.ChanStream) {
	defer cs.CloseChan()
	defer resp.Body.Close()

	parser := sse.NewParser(resp.Body)
	openText := map[string]bool{}
	toolCalls := map[int]*toolCallState{}
	sawToolCall := false

	textIDFor := func(outputIndex, contentIndex int) string {
		return strconv.Itoa(outputIndex) + ":" + strconv.Itoa(contentIndex)
	}

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

		var se oaStreamEvent
		if err := json.Unmarshal([]byte(ev.Data), &se); err != nil {
			continue
		}

		switch se.Type {
		case "response.output_item.added":
			if se.Item != nil && se.Item.Type == "function_call" && se.OutputIndex != nil {
				id := se.Item.CallID
				if id == "" {
					id = se.Item.ID
				}
				toolCalls[*se.OutputIndex] = &toolCallState{id: id, name: se.Item.Name}
				sawToolCall = true
				cs.Send(llmtypes.StreamEvent{
					Type:     llmtypes.StreamEventToolCallStart,
					ToolCall: &llmtypes.ToolCall{ID: id, Name: se.Item.Name},
				})
			}

		case "response.output_text.delta":
			if se.OutputIndex == nil || se.ContentIndex == nil {
				continue
			}
			id := textIDFor(*se.OutputIndex, *se.ContentIndex)
			if !openText[id] {
				openText[id] = true
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextStart, TextID: id})
			}
			cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextDelta, TextID: id, Delta: se.Delta})

		case "response.output_text.done":
			if se.OutputIndex == nil || se.ContentIndex == nil {
				continue
			}
			id := textIDFor(*se.OutputIndex, *se.ContentIndex)
			if openText[id] {
				delete(openText, id)
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextEnd, TextID: id})
			}

		case "response.function_call_arguments.delta":
			if se.OutputIndex == nil {
				continue
			}
			tc, ok := toolCalls[*se.OutputIndex]
			if !ok {
				continue
			}
			tc.buf.WriteString(se.Delta)
			cs.Send(llmtypes.StreamEvent{
				Type:     llmtypes.StreamEventToolCallDelta,
				ToolCall: &llmtypes.ToolCall{ID: tc.id, Name: tc.name, RawArguments: se.Delta},
			})

		case "response.function_call_arguments.done":
			if se.OutputIndex == nil {
				continue
			}
			tc, ok := toolCalls[*se.OutputIndex]
			if !ok {
				continue
			}
			raw := se.Arguments
			if raw == "" {
				raw = tc.buf.String()
			}
			cs.Send(llmtypes.StreamEvent{
				Type: llmtypes.StreamEventToolCallEnd,
				ToolCall: &llmtypes.ToolCall{
					ID:           tc.id,
					Name:         tc.name,
					Arguments:    parseJSONObject(raw),
					RawArguments: raw,
				},
			})
			delete(toolCalls, *se.OutputIndex)

		case "response.completed", "response.incomplete", "response.failed":
			// Close out any block the server never finished (possible on
			// incomplete/failed terminations) so start/end stay bracketed.
			for id := range openText {
				delete(openText, id)
				cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextEnd, TextID: id})
			}
			for idx, tc := range toolCalls {
				raw := tc.buf.String()
				cs.Send(llmtypes.StreamEvent{
					Type: llmtypes.StreamEventToolCallEnd,
					ToolCall: &llmtypes.ToolCall{
						ID:           tc.id,
						Name:         tc.name,
						Arguments:    parseJSONObject(raw),
						RawArguments: raw,
					},
				})
				delete(toolCalls, idx)
			}
			status := ""
			incompleteReason := ""
			var usage *llmtypes.Usage
			var respID, respModel string
			if se.Response != nil {
				status = se.Response.Status
				respID = se.Response.ID
				respModel = se.Response.Model
				if se.Response.IncompleteDetails != nil {
					incompleteReason = se.Response.IncompleteDetails.Reason
				}
				if se.Response.Usage != nil {
					u := llmtypes.Usage{
						InputTokens:  se.Response.Usage.InputTokens,
						OutputTokens: se.Response.Usage.OutputTokens,
					}
					if se.Response.Usage.OutputTokensDetails != nil {
						r := se.Response.Usage.OutputTokensDetails.ReasoningTokens
						u.ReasoningTokens = &r
					}
					if se.Response.Usage.InputTokensDetails != nil {
						c := se.Response.Usage.InputTokensDetails.CachedTokens
						u.CacheReadTokens = &c
					}
					usage = &u
				}
			}
			finish := mapFinishReason(status, incompleteReason, sawToolCall)
			cs.Send(llmtypes.StreamEvent{
				Type:         llmtypes.StreamEventFinish,
				FinishReason: &finish,
				Usage:        usage,
				Response: &llmtypes.Response{
					ID:           respID,
					Model:        respModel,
					Provider:     "openai",
					FinishReason: finish,
				},
			})
			return

		case "error":
			msg := "stream error"
			if se.Error != nil && se.Error.Message != "" {
				msg = se.Error.Message
			}
			cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventError, Err: errors.New(msg)})
			return
		}
	}
}

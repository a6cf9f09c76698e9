// Package gemini implements the Google Gemini generateContent API adapter:
// POST {base}/v1beta/models/{model}:generateContent?key={key}, and its SSE
// streaming counterpart.
package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config configures the Gemini adapter.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Adapter implements adapters.Adapter for Gemini's generateContent API.
type Adapter struct {
	http   *httpclient.Client
	apiKey string
}

// New builds a Gemini adapter.
func New(cfg Config) *Adapter {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	client := httpclient.NewClient("gemini", httpclient.Config{
		BaseURL: baseURL,
		Timeout: timeout,
		Owned:   true,
	})
	return &Adapter{http: client, apiKey: cfg.APIKey}
}

func (a *Adapter) Name() string { return "gemini" }

func (a *Adapter) Initialize(ctx context.Context) error { return nil }

func (a *Adapter) Close() error { return a.http.Close() }

func (a *Adapter) SupportsToolChoice(mode llmtypes.ToolChoiceMode) bool { return true }

var _ adapters.Adapter = (*Adapter)(nil)

// --- request translation ---

// callIDTracker assigns synthetic call_N ids to tool calls Gemini echoed
// back without one, and recovers the matching function name when a tool
// result carries no call id either.
type callIDTracker struct {
	callNameByID   map[string]string
	anonymousNames []string
	counter        int
}

func newCallIDTracker() *callIDTracker {
	return &callIDTracker{callNameByID: map[string]string{}}
}

func (t *callIDTracker) idFor(toolCallID, name string) string {
	id := strings.TrimSpace(toolCallID)
	if id == "" {
		t.counter++
		id = "call_" + strconv.Itoa(t.counter)
		t.anonymousNames = append(t.anonymousNames, name)
	}
	t.callNameByID[id] = name
	return id
}

func (t *callIDTracker) nameFor(toolCallID string) string {
	id := strings.TrimSpace(toolCallID)
	if name, ok := t.callNameByID[id]; ok {
		return name
	}
	if id == "" && len(t.anonymousNames) > 0 {
		name := t.anonymousNames[0]
		t.anonymousNames = t.anonymousNames[1:]
		return name
	}
	return "tool"
}

func buildPayload(req *llmtypes.Request) map[string]any {
	payload := map[string]any{"contents": translateMessages(req.Messages)}

	if sys := extractSystemInstruction(req.Messages); sys != nil {
		payload["systemInstruction"] = sys
	}
	if len(req.Tools) > 0 {
		decls := make([]map[string]any, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			})
		}
		payload["tools"] = []map[string]any{{"functionDeclarations": decls}}
	}
	if tc := translateToolChoice(req.ToolChoice); tc != nil {
		payload["toolConfig"] = tc
	}
	if gc := translateGenerationConfig(req); len(gc) > 0 {
		payload["generationConfig"] = gc
	}
	return payload
}

func extractSystemInstruction(messages []llmtypes.Message) map[string]any {
	var parts []map[string]string
	for _, m := range messages {
		if m.Role != llmtypes.RoleSystem && m.Role != llmtypes.RoleDeveloper {
			continue
		}
		for _, part := range m.Content {
			if tc, ok := part.(llmtypes.TextContent); ok {
				parts = append(parts, map[string]string{"text": tc.Text})
			}
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return map[string]any{"parts": parts}
}

func translateMessages(messages []llmtypes.Message) []map[string]any {
	var out []map[string]any
	tracker := newCallIDTracker()

	for _, m := range messages {
		if m.Role == llmtypes.RoleSystem || m.Role == llmtypes.RoleDeveloper {
			continue
		}
		role := "user"
		if m.Role == llmtypes.RoleAssistant {
			role = "model"
		}

		var parts []map[string]any
		for _, part := range m.Content {
			switch p := part.(type) {
			case llmtypes.TextContent:
				parts = append(parts, map[string]any{"text": p.Text})
			case llmtypes.ToolCallContent:
				args := p.Arguments
				if args == nil {
					args = parseJSONObject(p.RawArguments)
				}
				callID := tracker.idFor(p.ID, p.Name)
				parts = append(parts, map[string]any{
					"functionCall": map[string]any{
						"id":   callID,
						"name": p.Name,
						"args": args,
					},
				})
			case llmtypes.ToolResultContent:
				name := tracker.nameFor(p.ToolCallID)
				var response map[string]any
				if m, ok := p.Content.(map[string]any); ok {
					response = map[string]any{}
					for k, v := range m {
						response[k] = v
					}
				} else {
					response = map[string]any{"content": p.Content}
				}
				if p.IsError {
					response["is_error"] = true
				}
				parts = append(parts, map[string]any{
					"functionResponse": map[string]any{
						"name":     name,
						"response": response,
					},
				})
			}
		}

		if len(parts) > 0 {
			out = append(out, map[string]any{"role": role, "parts": parts})
		}
	}

	return out
}

func translateToolChoice(tc *llmtypes.ToolChoice) map[string]any {
	if tc == nil {
		return nil
	}
	switch tc.Mode {
	case llmtypes.ToolChoiceNone:
		return map[string]any{"functionCallingConfig": map[string]any{"mode": "NONE"}}
	case llmtypes.ToolChoiceRequired:
		return map[string]any{"functionCallingConfig": map[string]any{"mode": "ANY"}}
	case llmtypes.ToolChoiceNamed:
		if tc.ToolName == "" {
			return nil
		}
		return map[string]any{
			"functionCallingConfig": map[string]any{
				"mode":                 "ANY",
				"allowedFunctionNames": []string{tc.ToolName},
			},
		}
	case llmtypes.ToolChoiceAuto:
		return map[string]any{"functionCallingConfig": map[string]any{"mode": "AUTO"}}
	default:
		return nil
	}
}

func translateGenerationConfig(req *llmtypes.Request) map[string]any {
	cfg := map[string]any{}
	if req.Temperature != nil {
		cfg["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		cfg["topP"] = *req.TopP
	}
	if req.MaxTokens != nil {
		cfg["maxOutputTokens"] = *req.MaxTokens
	}
	if len(req.StopSequences) > 0 {
		cfg["stopSequences"] = req.StopSequences
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == llmtypes.ResponseFormatJSONSchema {
		cfg["responseMimeType"] = "application/json"
		cfg["responseSchema"] = req.ResponseFormat.JSONSchema
	}
	return cfg
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

func mapFinishReason(raw string, hasToolCall bool) llmtypes.FinishReason {
	if hasToolCall {
		return llmtypes.FinishReason{Reason: llmtypes.FinishReasonToolCalls, Raw: raw}
	}
	mapping := map[string]string{
		"STOP":                    llmtypes.FinishReasonStop,
		"MAX_TOKENS":              llmtypes.FinishReasonLength,
		"SAFETY":                  llmtypes.FinishReasonContentFilter,
		"PROHIBITED_CONTENT":      llmtypes.FinishReasonContentFilter,
		"MALFORMED_FUNCTION_CALL": llmtypes.FinishReasonError,
	}
	reason, ok := mapping[raw]
	if !ok {
		reason = llmtypes.FinishReasonOther
	}
	return llmtypes.FinishReason{Reason: reason, Raw: raw}
}

type geminiUsageMetadata struct {
	PromptTokenCount     int64  `json:"promptTokenCount"`
	CandidatesTokenCount int64  `json:"candidatesTokenCount"`
	TotalTokenCount      int64  `json:"totalTokenCount"`
	ThoughtsTokenCount   *int64 `json:"thoughtsTokenCount"`
	CachedContentTokens  *int64 `json:"cachedContentTokenCount"`
}

func parseUsage(u *geminiUsageMetadata) llmtypes.Usage {
	if u == nil {
		return llmtypes.Usage{}
	}
	out := llmtypes.Usage{InputTokens: u.PromptTokenCount, OutputTokens: u.CandidatesTokenCount}
	if out.OutputTokens == 0 && u.TotalTokenCount != 0 {
		if diff := u.TotalTokenCount - u.PromptTokenCount; diff > 0 {
			out.OutputTokens = diff
		}
	}
	out.ReasoningTokens = u.ThoughtsTokenCount
	out.CacheReadTokens = u.CachedContentTokens
	return out
}

type geminiPart struct {
	Text         string `json:"text"`
	FunctionCall *struct {
		ID   string         `json:"id"`
		Name string         `json:"name"`
		Args map[string]any `json:"args"`
	} `json:"functionCall"`
}

type geminiCandidate struct {
	Content *struct {
		Parts []geminiPart `json:"parts"`
	} `json:"content"`
	FinishReason string `json:"finishReason"`
}

type geminiResponseEnvelope struct {
	ResponseID    string               `json:"responseId"`
	ModelVersion  string               `json:"modelVersion"`
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata"`
}

func convertResponse(env geminiResponseEnvelope, requestModel string) *llmtypes.Response {
	var content []llmtypes.ContentPart
	hasToolCall := false
	var finishRaw string

	if len(env.Candidates) > 0 {
		candidate := env.Candidates[0]
		finishRaw = candidate.FinishReason
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					content = append(content, llmtypes.TextContent{Text: part.Text})
				}
				if part.FunctionCall != nil {
					hasToolCall = true
					id := part.FunctionCall.ID
					if id == "" {
						id = part.FunctionCall.Name
					}
					if id == "" {
						id = "call"
					}
					content = append(content, llmtypes.ToolCallContent{
						ID:        id,
						Name:      part.FunctionCall.Name,
						Arguments: part.FunctionCall.Args,
						Type:      "function",
					})
				}
			}
		}
	}

	model := env.ModelVersion
	if model == "" {
		model = requestModel
	}

	return &llmtypes.Response{
		ID:           env.ResponseID,
		Model:        model,
		Provider:     "gemini",
		Message:      llmtypes.Message{Role: llmtypes.RoleAssistant, Content: content},
		FinishReason: mapFinishReason(finishRaw, hasToolCall),
		Usage:        parseUsage(env.UsageMetadata),
	}
}

func (a *Adapter) Complete(ctx context.Context, req *llmtypes.Request) (*llmtypes.Response, error) {
	body := buildPayload(req)
	path := "/v1beta/models/" + req.Model + ":generateContent"
	var env geminiResponseEnvelope
	if err := a.http.PostJSON(ctx, path+"?key="+a.apiKey, body, &env); err != nil {
		return nil, err
	}
	return convertResponse(env, req.Model), nil
}

// --- streaming ---

func (a *Adapter) Stream(ctx context.Context, req *llmtypes.Request) (llmtypes.Stream, error) {
	body := buildPayload(req)
	path := "/v1beta/models/" + req.Model + ":streamGenerateContent?alt=sse&key=" + a.apiKey
	resp, err := a.http.DoStream(ctx, httpclient.Request{Method: "POST", Path: path, Body: body})
	if err != nil {
		return nil, err
	}
	cs := adapters.NewChanStream(16, resp.Body)
	go runGeminiStream(resp, cs)
	return cs, nil
}

// runGeminiStream emits text_start/text_delta for running text and an
// immediate tool_call_start+tool_call_end pair per functionCall, since
// Gemini streams whole function calls rather than incremental arguments.
func runGeminiStream(resp *http.Response, cs *adapters.ChanStream) {
	defer cs.CloseChan()
	defer resp.Body.Close()

	parser := sse.NewParser(resp.Body)
	textStarted := false
	sawToolCall := false
	finishEmitted := false
	var latestFinishRaw string
	var latestUsage *geminiUsageMetadata

	emitFinish := func() {
		finishEmitted = true
		if textStarted {
			textStarted = false
			cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextEnd, TextID: "0"})
		}
		finish := mapFinishReason(latestFinishRaw, sawToolCall)
		usage := parseUsage(latestUsage)
		cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventFinish, FinishReason: &finish, Usage: &usage})
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

		var env geminiResponseEnvelope
		if err := json.Unmarshal([]byte(ev.Data), &env); err != nil {
			continue
		}
		if len(env.Candidates) == 0 {
			continue
		}
		candidate := env.Candidates[0]

		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					if !textStarted {
						textStarted = true
						cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextStart, TextID: "0"})
					}
					cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventTextDelta, Delta: part.Text, TextID: "0"})
				}
				if part.FunctionCall != nil {
					sawToolCall = true
					id := part.FunctionCall.ID
					if id == "" {
						id = part.FunctionCall.Name
					}
					if id == "" {
						id = "call"
					}
					tc := &llmtypes.ToolCall{ID: id, Name: part.FunctionCall.Name, Arguments: part.FunctionCall.Args}
					cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventToolCallStart, ToolCall: tc})
					cs.Send(llmtypes.StreamEvent{Type: llmtypes.StreamEventToolCallEnd, ToolCall: tc})
				}
			}
		}

		if candidate.FinishReason != "" {
			latestFinishRaw = candidate.FinishReason
		}
		if env.UsageMetadata != nil {
			latestUsage = env.UsageMetadata
		}
		if latestFinishRaw != "" && !finishEmitted {
			emitFinish()
			break
		}
	}

	if !finishEmitted {
		emitFinish()
	}
}

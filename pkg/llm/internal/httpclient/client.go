// Package httpclient wraps net/http with the request/response shape every
// adapter needs: JSON bodies, raw streaming responses, and provider error
// classification on non-2xx statuses.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/modelbridge/agentkit/pkg/llm/errs"
)

// DefaultHTTPClient is a shared client with pooled connections, used when
// an adapter borrows rather than owns its transport.
var DefaultHTTPClient = &http.Client{
	Timeout: 60 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Headers    map[string]string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Owned marks whether Close should release the underlying transport.
	// Borrowed clients (Owned == false) are the caller's concern.
	Owned bool
}

// Client is a per-adapter HTTP client. It owns or borrows an *http.Client
// per Config.Owned; Close releases pooled connections only when owned.
type Client struct {
	client  *http.Client
	baseURL string
	headers map[string]string
	owned   bool
	name    string
}

// NewClient builds a Client for the named provider.
func NewClient(provider string, cfg Config) *Client {
	client := cfg.HTTPClient
	owned := cfg.Owned
	if client == nil {
		if cfg.Timeout > 0 {
			client = &http.Client{
				Timeout: cfg.Timeout,
				Transport: &http.Transport{
					MaxIdleConns:        100,
					MaxIdleConnsPerHost: 10,
					IdleConnTimeout:     90 * time.Second,
				},
			}
			owned = true
		} else {
			client = DefaultHTTPClient
		}
	}
	return &Client{client: client, baseURL: cfg.BaseURL, headers: cfg.Headers, owned: owned, name: provider}
}

// Close releases pooled connections if this Client owns its transport.
func (c *Client) Close() error {
	if c.owned {
		c.client.CloseIdleConnections()
	}
	return nil
}

// Request describes an outgoing HTTP call.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Body    any
	Query   map[string]string
}

// Response is a fully-drained HTTP response.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	url := c.baseURL + req.Path
	if len(req.Query) > 0 {
		url += "?"
		first := true
		for k, v := range req.Query {
			if !first {
				url += "&"
			}
			url += fmt.Sprintf("%s=%s", k, v)
			first = false
		}
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	return httpReq, nil
}

// errorFromResponse classifies a non-2xx HTTP response into an
// *errs.SDKError, extracting the message from .error.message, else
// .message, else the raw body, and retry-after from the header.
func (c *Client) errorFromResponse(statusCode int, body []byte, headers http.Header) error {
	message := string(body)
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err == nil {
		if errObj, ok := raw["error"].(map[string]any); ok {
			if m, ok := errObj["message"].(string); ok {
				message = m
			}
		} else if m, ok := raw["message"].(string); ok {
			message = m
		}
	}
	var retryAfter *float64
	if h := headers.Get("retry-after"); h != "" {
		if seconds, err := strconv.ParseFloat(h, 64); err == nil {
			retryAfter = &seconds
		}
	}
	return errs.FromStatusCode(statusCode, message, c.name, retryAfter, raw)
}

// Do performs req and returns the drained response. Non-2xx responses are
// NOT treated as errors here; callers that want classification use DoJSON
// or check StatusCode themselves (DoStream always classifies, since its
// caller cannot read the body on error).
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errs.NewNetworkError("http request failed", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errs.NewNetworkError("reading response body failed", err)
	}
	return &Response{StatusCode: httpResp.StatusCode, Headers: httpResp.Header, Body: respBody}, nil
}

// DoJSON performs req, classifies non-2xx statuses via FromStatusCode, and
// decodes a 2xx JSON body into result.
func (c *Client) DoJSON(ctx context.Context, req Request, result any) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return c.errorFromResponse(resp.StatusCode, resp.Body, resp.Headers)
	}
	if err := json.Unmarshal(resp.Body, result); err != nil {
		return fmt.Errorf("decode json response: %w", err)
	}
	return nil
}

// DoStream performs req and returns the raw *http.Response for streaming
// consumption; the caller must close Body. Non-2xx responses are drained,
// classified, and returned as an error instead.
func (c *Client) DoStream(ctx context.Context, req Request) (*http.Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, errs.NewNetworkError("http request failed", err)
	}
	if httpResp.StatusCode >= 400 {
		defer httpResp.Body.Close()
		body, _ := io.ReadAll(httpResp.Body)
		return nil, c.errorFromResponse(httpResp.StatusCode, body, httpResp.Header)
	}
	return httpResp, nil
}

func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *Client) PostJSON(ctx context.Context, path string, body, result any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, result)
}

func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path})
}

func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	return c.DoJSON(ctx, Request{Method: http.MethodGet, Path: path}, result)
}

func (c *Client) SetHeader(key, value string) {
	if c.headers == nil {
		c.headers = make(map[string]string)
	}
	c.headers[key] = value
}

func (c *Client) SetBaseURL(baseURL string) { c.baseURL = baseURL }

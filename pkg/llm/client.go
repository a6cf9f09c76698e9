package llm

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/modelbridge/agentkit/pkg/llm/adapters/anthropic"
	"github.com/modelbridge/agentkit/pkg/llm/adapters/gemini"
	"github.com/modelbridge/agentkit/pkg/llm/adapters/openai"
	"github.com/modelbridge/agentkit/pkg/llm/adapters/openaicompat"
	"github.com/modelbridge/agentkit/pkg/llm/errs"
	"github.com/modelbridge/agentkit/pkg/llm/ratelimit"
	"github.com/modelbridge/agentkit/pkg/llm/telemetry"
)

// Adapter is the interface every provider-specific translator implements.
// pkg/llm/adapters and its concrete subpackages take Request/Response/
// Stream from pkg/llm/llmtypes, which this package re-exports as aliases,
// so the concrete adapters satisfy this interface structurally without
// importing it.
type Adapter interface {
	// Name is the provider identifier (e.g. "openai", "anthropic").
	Name() string

	// Complete sends a request and blocks until the model finishes.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Stream sends a request and returns a lazy sequence of StreamEvent.
	Stream(ctx context.Context, req *Request) (Stream, error)

	// Close releases resources (HTTP connections) owned by the adapter.
	Close() error

	// Initialize validates configuration on startup.
	Initialize(ctx context.Context) error

	// SupportsToolChoice reports whether a tool_choice mode is supported.
	SupportsToolChoice(mode ToolChoiceMode) bool
}

// CompleteHandler is one link in the completion middleware chain.
type CompleteHandler func(ctx context.Context, req *Request) (*Response, error)

// StreamHandler is one link in the streaming middleware chain.
type StreamHandler func(ctx context.Context, req *Request) (Stream, error)

// Middleware wraps both the completion and streaming handler chains.
// Either field may be left nil to leave that path unwrapped.
type Middleware struct {
	WrapComplete func(next CompleteHandler) CompleteHandler
	WrapStream   func(next StreamHandler) StreamHandler
}

// Client routes requests to named provider adapters through a middleware
// chain. Middleware registered first runs first on the request path and
// last on the response path (an onion: register order in, reverse order
// out), matching how the chain is built below.
type Client struct {
	mu              sync.RWMutex
	providers       map[string]Adapter
	defaultProvider string
	middleware      []Middleware
}

// NewClient builds a Client over a fixed provider map. defaultProvider may
// be empty, in which case resolution falls back to the sole adapter if
// there is exactly one.
func NewClient(providers map[string]Adapter, defaultProvider string) *Client {
	return &Client{providers: providers, defaultProvider: defaultProvider}
}

// Use appends mw to the middleware chain.
func (c *Client) Use(mw Middleware) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware = append(c.middleware, mw)
}

func (c *Client) resolveAdapter(req *Request) (Adapter, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if req.Provider != "" {
		a, ok := c.providers[req.Provider]
		if !ok {
			return nil, errs.NewConfigurationError("unknown provider: " + req.Provider)
		}
		return a, nil
	}
	if c.defaultProvider != "" {
		return c.providers[c.defaultProvider], nil
	}
	if len(c.providers) == 1 {
		for _, a := range c.providers {
			return a, nil
		}
	}
	return nil, errs.NewConfigurationError("no provider specified and no default configured")
}

// Complete resolves the target adapter and runs the request through the
// middleware chain.
func (c *Client) Complete(ctx context.Context, req *Request) (*Response, error) {
	adapter, err := c.resolveAdapter(req)
	if err != nil {
		return nil, err
	}

	resolved := *req
	if resolved.Provider == "" {
		resolved.Provider = adapter.Name()
	}
	req = &resolved

	c.mu.RLock()
	mws := append([]Middleware(nil), c.middleware...)
	c.mu.RUnlock()

	handler := CompleteHandler(func(ctx context.Context, req *Request) (*Response, error) {
		return adapter.Complete(ctx, req)
	})
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i].WrapComplete != nil {
			handler = mws[i].WrapComplete(handler)
		}
	}
	return handler(ctx, req)
}

// Stream resolves the target adapter and runs the request through the
// streaming middleware chain.
func (c *Client) Stream(ctx context.Context, req *Request) (Stream, error) {
	adapter, err := c.resolveAdapter(req)
	if err != nil {
		return nil, err
	}

	resolved := *req
	if resolved.Provider == "" {
		resolved.Provider = adapter.Name()
	}
	req = &resolved

	c.mu.RLock()
	mws := append([]Middleware(nil), c.middleware...)
	c.mu.RUnlock()

	handler := StreamHandler(func(ctx context.Context, req *Request) (Stream, error) {
		return adapter.Stream(ctx, req)
	})
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i].WrapStream != nil {
			handler = mws[i].WrapStream(handler)
		}
	}
	return handler(ctx, req)
}

// Close releases every provider adapter's resources.
func (c *Client) Close() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var firstErr error
	for _, a := range c.providers {
		if err := a.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// EnvConfig overrides timeouts, base URLs, and ambient middleware used by
// ClientFromEnv; the zero value uses each adapter's own defaults and
// leaves rate limiting and telemetry off.
type EnvConfig struct {
	Timeout time.Duration

	// RateLimitRPS and RateLimitBurst, if RateLimitRPS > 0, register a
	// RateLimitMiddleware shared across every resolved adapter.
	RateLimitRPS   float64
	RateLimitBurst int

	// Telemetry, if non-nil and enabled, registers a TelemetryMiddleware
	// wrapping every Complete/Stream call in a span.
	Telemetry *telemetry.Settings
}

// ClientFromEnv builds a Client wiring one adapter per recognized API key
// environment variable: OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY
// (or GOOGLE_API_KEY), and OPENAI_COMPAT_API_KEY (with
// OPENAI_COMPAT_BASE_URL). The first provider discovered, in that order,
// becomes the default. Returns a ConfigurationError if none are set.
func ClientFromEnv(cfg EnvConfig) (*Client, error) {
	providers := map[string]Adapter{}
	var order []string

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		providers["openai"] = openai.New(openai.Config{APIKey: key, Timeout: cfg.Timeout})
		order = append(order, "openai")
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		providers["anthropic"] = anthropic.New(anthropic.Config{APIKey: key, Timeout: cfg.Timeout})
		order = append(order, "anthropic")
	}
	if key := firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY")); key != "" {
		providers["gemini"] = gemini.New(gemini.Config{APIKey: key, Timeout: cfg.Timeout})
		order = append(order, "gemini")
	}
	if key := os.Getenv("OPENAI_COMPAT_API_KEY"); key != "" {
		baseURL := os.Getenv("OPENAI_COMPAT_BASE_URL")
		providers["openai_compat"] = openaicompat.New(openaicompat.Config{APIKey: key, BaseURL: baseURL, Timeout: cfg.Timeout})
		order = append(order, "openai_compat")
	}

	if len(providers) == 0 {
		return nil, errs.NewConfigurationError("no providers configured from environment")
	}

	client := NewClient(providers, order[0])
	if cfg.RateLimitRPS > 0 {
		client.Use(RateLimitMiddleware(ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)))
	}
	if cfg.Telemetry != nil && cfg.Telemetry.IsEnabled {
		client.Use(TelemetryMiddleware(cfg.Telemetry))
	}
	return client, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// --- module-level default client ---

var (
	defaultClientMu sync.RWMutex
	defaultClient   *Client
)

// SetDefaultClient sets the package-level default client used by the
// high-level Generate/Stream/GenerateObject helpers when no client is
// passed explicitly.
func SetDefaultClient(c *Client) {
	defaultClientMu.Lock()
	defer defaultClientMu.Unlock()
	defaultClient = c
}

// GetDefaultClient returns the package-level default client, or nil if
// none has been set.
func GetDefaultClient() *Client {
	defaultClientMu.RLock()
	defer defaultClientMu.RUnlock()
	return defaultClient
}

// Package adapters defines the provider adapter contract every wire
// protocol translator implements.
package adapters

import (
	"context"

	"github.com/modelbridge/agentkit/pkg/llm/llmtypes"
)

// Adapter is the interface every provider-specific translator implements.
// All network calls route through one underlying HTTP client per adapter
// with a configurable timeout; an adapter that owns its client releases
// it in Close.
type Adapter interface {
	// Name is the provider identifier (e.g. "openai", "anthropic").
	Name() string

	// Complete sends a request and blocks until the model finishes.
	Complete(ctx context.Context, req *llmtypes.Request) (*llmtypes.Response, error)

	// Stream sends a request and returns a lazy sequence of StreamEvent.
	Stream(ctx context.Context, req *llmtypes.Request) (llmtypes.Stream, error)

	// Close releases resources (HTTP connections) owned by the adapter.
	Close() error

	// Initialize validates configuration on startup.
	Initialize(ctx context.Context) error

	// SupportsToolChoice reports whether a tool_choice mode is supported.
	SupportsToolChoice(mode llmtypes.ToolChoiceMode) bool
}

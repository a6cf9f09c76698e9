// Package tools implements the concrete tool set (read_file, write_file,
// edit_file, shell, grep, glob, apply_patch) over pkg/agent/execution, and
// the name-keyed registry the session loop dispatches through.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
)

// Executor runs one tool call's arguments against an execution
// environment and returns its raw (untruncated) text output.
type Executor func(ctx context.Context, arguments map[string]any, env execution.Environment) (string, error)

// RegisteredTool pairs a tool's wire definition with its executor.
type RegisteredTool struct {
	Definition llm.ToolDefinition
	Executor   Executor
}

// Registry is a name-keyed dispatcher over the execution environment. It
// is read-only during a session; mutate it only before process_input
// begins.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]RegisteredTool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: map[string]RegisteredTool{}}
}

// Register adds or replaces the tool under its own definition name.
func (r *Registry) Register(tool RegisteredTool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Definition.Name] = tool
}

// Unregister removes a tool by name; a no-op if it is not registered.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns the registered tool by name, or false if unregistered.
func (r *Registry) Get(name string) (RegisteredTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns every registered tool's definition, in Names order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	names := r.Names()
	defs := make([]llm.ToolDefinition, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// Execute runs the named tool's executor, returning an error if the name
// is unregistered or the executor itself fails.
func (r *Registry) Execute(ctx context.Context, name string, arguments map[string]any, env execution.Environment) (string, error) {
	tool, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return tool.Executor(ctx, arguments, env)
}

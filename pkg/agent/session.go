package agent

import (
	"context"

	"github.com/google/uuid"

	"github.com/modelbridge/agentkit/pkg/agent/execution"
	"github.com/modelbridge/agentkit/pkg/llm"
	"github.com/modelbridge/agentkit/pkg/llm/telemetry"
)

// State is a Session's coarse lifecycle state.
type State string

const (
	StateIdle          State = "idle"
	StateProcessing    State = "processing"
	StateAwaitingInput State = "awaiting_input"
	StateClosed        State = "closed"
)

// Completer is the subset of *llm.Client the session loop depends on,
// narrowed so sessions can be driven by a fake in tests.
type Completer interface {
	Complete(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// Config bounds and tunes a session's round loop.
type Config struct {
	// MaxTurns caps total history length across an entire session; zero
	// disables the bound.
	MaxTurns int
	// MaxToolRoundsPerInput caps tool-call rounds within one process_input
	// call; zero disables the bound.
	MaxToolRoundsPerInput int

	DefaultCommandTimeoutMS int64
	MaxCommandTimeoutMS     int64

	ReasoningEffort string

	ToolOutputLimits map[string]int
	ToolLineLimits   map[string]int

	EnableLoopDetection bool
	LoopDetectionWindow int

	MaxSubagentDepth int
}

// DefaultConfig returns the session defaults: loop detection enabled with
// a 10-call window, one level of subagent nesting, and the package's
// default tool truncation tables.
func DefaultConfig() Config {
	return Config{
		DefaultCommandTimeoutMS: 10_000,
		MaxCommandTimeoutMS:     600_000,
		ToolOutputLimits:        copyIntMap(DefaultToolCharLimits),
		ToolLineLimits:          copyIntMap(DefaultToolLineLimits),
		EnableLoopDetection:     true,
		LoopDetectionWindow:     10,
		MaxSubagentDepth:        1,
	}
}

func copyIntMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Session owns one conversation's turn history, steering/follow-up
// queues, and the provider/tool/environment wiring process_input drives
// through each round. A session exclusively owns its history;
// assistant turns are appended only after the provider call returns.
type Session struct {
	ID             string
	Profile        *Profile
	ExecutionEnv   execution.Environment
	Client         Completer
	Config         Config
	State          State
	History        []Turn
	Events         *EventEmitter
	Depth          int

	// Telemetry wraps each round's provider call in a span when set and
	// enabled; nil (the default) runs with a no-op tracer.
	Telemetry *telemetry.Settings

	steeringQueue []string
	followupQueue []string
}

// NewSession constructs an idle session over profile, env, and client,
// generating a random id. config is stored as given; its zero-valued
// fields are not replaced with DefaultConfig's values.
func NewSession(profile *Profile, env execution.Environment, client Completer, config Config) *Session {
	return &Session{
		ID:           uuid.New().String(),
		Profile:      profile,
		ExecutionEnv: env,
		Client:       client,
		Config:       config,
		State:        StateIdle,
		Events:       NewEventEmitter(),
	}
}

// Steer enqueues an out-of-band hint injected before the next round.
func (s *Session) Steer(message string) {
	s.steeringQueue = append(s.steeringQueue, message)
}

// FollowUp enqueues a message to be processed as a fresh input once the
// current process_input call finishes draining its round loop.
func (s *Session) FollowUp(message string) {
	s.followupQueue = append(s.followupQueue, message)
}

// LastAssistantText returns the most recent AssistantTurn's content, or
// "" if the history carries no assistant turn yet.
func (s *Session) LastAssistantText() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if at, ok := s.History[i].(AssistantTurn); ok {
			return at.Content
		}
	}
	return ""
}

// ProcessInput drives one bounded round loop for user_input, see
// processInput in loop.go for the full state machine.
func (s *Session) ProcessInput(ctx context.Context, userInput string) error {
	return processInput(ctx, s, userInput)
}

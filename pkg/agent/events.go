package agent

import (
	"sync"
	"time"
)

// EventKind identifies the kind of a SessionEvent.
type EventKind string

const (
	EventSessionStart          EventKind = "session_start"
	EventSessionEnd            EventKind = "session_end"
	EventUserInput             EventKind = "user_input"
	EventAssistantTextStart    EventKind = "assistant_text_start"
	EventAssistantTextDelta    EventKind = "assistant_text_delta"
	EventAssistantTextEnd      EventKind = "assistant_text_end"
	EventToolCallStart         EventKind = "tool_call_start"
	EventToolCallOutputDelta   EventKind = "tool_call_output_delta"
	EventToolCallEnd           EventKind = "tool_call_end"
	EventSteeringInjected      EventKind = "steering_injected"
	EventTurnLimit             EventKind = "turn_limit"
	EventLoopDetection         EventKind = "loop_detection"
	EventError                EventKind = "error"
)

// SessionEvent is one element of a session's observable event stream.
type SessionEvent struct {
	Kind      EventKind
	SessionID string
	Data      map[string]any
	Timestamp time.Time
}

// EventEmitter fans a session's events out to subscribers in registration
// order. Subscribers are called synchronously on the emitting goroutine.
type EventEmitter struct {
	mu          sync.Mutex
	subscribers []func(SessionEvent)
}

// NewEventEmitter constructs an empty emitter.
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{}
}

// Subscribe registers callback to receive every subsequently emitted event.
func (e *EventEmitter) Subscribe(callback func(SessionEvent)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subscribers = append(e.subscribers, callback)
}

// Emit constructs a SessionEvent and delivers it to every subscriber,
// snapshotting the subscriber list so a subscriber added mid-emit does not
// see the event that triggered its own registration.
func (e *EventEmitter) Emit(kind EventKind, sessionID string, data map[string]any) SessionEvent {
	if data == nil {
		data = map[string]any{}
	}
	event := SessionEvent{Kind: kind, SessionID: sessionID, Data: data, Timestamp: time.Now().UTC()}

	e.mu.Lock()
	subs := make([]func(SessionEvent), len(e.subscribers))
	copy(subs, e.subscribers)
	e.mu.Unlock()

	for _, sub := range subs {
		sub(event)
	}
	return event
}

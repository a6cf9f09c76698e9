package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// SubagentDepthError is returned by Spawn when the manager's current
// depth has reached its configured maximum.
type SubagentDepthError struct{}

func (SubagentDepthError) Error() string { return "maximum subagent depth reached" }

// SubagentStatus is a handle's lifecycle state.
type SubagentStatus string

const (
	SubagentRunning   SubagentStatus = "running"
	SubagentCompleted SubagentStatus = "completed"
	SubagentFailed    SubagentStatus = "failed"
)

// SubagentResult is returned by Wait once a subagent's in-flight
// process_input call finishes.
type SubagentResult struct {
	Output    string
	Success   bool
	TurnsUsed int
}

// SessionFactory constructs a child session at the given depth. Depth is
// current_depth+1 of the spawning manager.
type SessionFactory func(depth int) *Session

type subagentHandle struct {
	id      string
	session *Session
	mu      sync.Mutex
	task    *subagentTask
	status  SubagentStatus
}

// subagentTask tracks one background process_input invocation so Wait can
// block on it and Close can cancel it.
type subagentTask struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

func startTask(ctx context.Context, session *Session, input string) *subagentTask {
	runCtx, cancel := context.WithCancel(ctx)
	t := &subagentTask{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer close(t.done)
		t.err = session.ProcessInput(runCtx, input)
	}()
	return t
}

// Manager spawns and tracks depth-bounded subagent sessions. Each
// subagent runs its process_input call as a background goroutine; the
// manager's handle map is mutated only by its own methods, so it assumes
// single-threaded control from its owner.
type Manager struct {
	mu             sync.Mutex
	sessionFactory SessionFactory
	maxDepth       int
	currentDepth   int
	handles        map[string]*subagentHandle
}

// NewManager constructs a manager bounding spawns at maxDepth, starting
// from currentDepth (0 for a top-level session).
func NewManager(sessionFactory SessionFactory, maxDepth, currentDepth int) *Manager {
	return &Manager{
		sessionFactory: sessionFactory,
		maxDepth:       maxDepth,
		currentDepth:   currentDepth,
		handles:        map[string]*subagentHandle{},
	}
}

// Spawn creates a new child session via the manager's SessionFactory and
// starts task as its first process_input call, returning a fresh handle
// id. It fails with SubagentDepthError once current depth reaches
// maxDepth.
func (m *Manager) Spawn(ctx context.Context, task string) (string, error) {
	m.mu.Lock()
	if m.currentDepth >= m.maxDepth {
		m.mu.Unlock()
		return "", SubagentDepthError{}
	}
	session := m.sessionFactory(m.currentDepth + 1)
	m.mu.Unlock()

	id := uuid.New().String()
	handle := &subagentHandle{id: id, session: session, status: SubagentRunning}
	handle.task = startTask(ctx, session, task)

	m.mu.Lock()
	m.handles[id] = handle
	m.mu.Unlock()
	return id, nil
}

// Send awaits any in-flight task on id's subagent, then starts message as
// a new process_input call.
func (m *Manager) Send(ctx context.Context, id, message string) error {
	handle, err := m.get(id)
	if err != nil {
		return err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()
	if handle.task != nil {
		<-handle.task.done
	}
	handle.task = startTask(ctx, handle.session, message)
	handle.status = SubagentRunning
	return nil
}

// Wait blocks until id's current task completes, marks the handle
// completed or failed, and returns the subagent's final output, success
// flag, and turns used.
func (m *Manager) Wait(id string) (SubagentResult, error) {
	handle, err := m.get(id)
	if err != nil {
		return SubagentResult{}, err
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()

	success := true
	if handle.task != nil {
		<-handle.task.done
		success = handle.task.err == nil
	}
	if success {
		handle.status = SubagentCompleted
	} else {
		handle.status = SubagentFailed
	}

	return SubagentResult{
		Output:    handle.session.LastAssistantText(),
		Success:   success,
		TurnsUsed: len(handle.session.History),
	}, nil
}

// Close cancels id's in-flight task (if any) and removes its handle. It
// is idempotent: closing an already-removed id is a no-op.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	handle, ok := m.handles[id]
	if ok {
		delete(m.handles, id)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	handle.mu.Lock()
	defer handle.mu.Unlock()
	if handle.task != nil {
		select {
		case <-handle.task.done:
		default:
			handle.task.cancel()
			<-handle.task.done
		}
	}
	return nil
}

func (m *Manager) get(id string) (*subagentHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle, ok := m.handles[id]
	if !ok {
		return nil, fmt.Errorf("unknown agent: %s", id)
	}
	return handle, nil
}

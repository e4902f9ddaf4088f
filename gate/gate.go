// Package gate turns a remote-requested local action into a user-confirmable,
// at-most-once-executed side effect. Each conversation owns one Gate; its
// state machine replaces the process-wide "is a tool dialog showing" boolean
// the UI would otherwise need.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrBusy is returned when a tool call arrives while another is still
	// awaiting a decision or executing. The relay violated the one-pending-
	// call contract; the original call is unaffected.
	ErrBusy = errors.New("a tool call is already pending")

	// ErrResolved is returned for a correlation id that was already executed
	// or denied. Duplicate decisions have no additional effect.
	ErrResolved = errors.New("tool call already resolved")

	// ErrUnsupported is returned for action names outside the known set.
	ErrUnsupported = errors.New("unsupported tool")

	// ErrNotPending is returned when a decision references no pending call.
	ErrNotPending = errors.New("no matching pending tool call")
)

// State of the gate's per-conversation machine.
type State int

const (
	// Idle: no call in flight.
	Idle State = iota
	// AwaitingDecision: a call arrived and waits for the user.
	AwaitingDecision
	// Executing: the user allowed the call and it is running.
	Executing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingDecision:
		return "awaiting-decision"
	case Executing:
		return "executing"
	default:
		return "unknown"
	}
}

// PendingToolCall is the call currently held by the gate. Created when the
// request event arrives, destroyed when the decision is submitted.
type PendingToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Result is the correlated outcome sent back upstream.
type Result struct {
	ID      string
	Content string
	IsError bool
}

// Executor runs an allowed tool call. Implemented by tools.Registry.
type Executor interface {
	Supports(name string) bool
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// Gate is the per-conversation permission state machine. All methods are
// safe for concurrent use, though in practice the single UI update loop is
// the only caller.
type Gate struct {
	exec Executor

	mu       sync.Mutex
	state    State
	pending  *PendingToolCall
	resolved map[string]bool
}

// New returns an idle gate backed by exec.
func New(exec Executor) *Gate {
	return &Gate{
		exec:     exec,
		resolved: make(map[string]bool),
	}
}

// State returns the current machine state.
func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Pending returns the call awaiting a decision, if any.
func (g *Gate) Pending() (PendingToolCall, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return PendingToolCall{}, false
	}
	return *g.pending, true
}

// Request admits a tool call into the machine: Idle → AwaitingDecision.
// A call arriving while the gate is not idle is a protocol error and leaves
// the original pending call untouched. A correlation id that was already
// resolved is refused. An unknown action name is refused before it can ever
// reach the user.
func (g *Gate) Request(call PendingToolCall) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if call.ID == "" {
		return fmt.Errorf("tool call has no correlation id")
	}
	if g.resolved[call.ID] {
		return fmt.Errorf("%w: %s", ErrResolved, call.ID)
	}
	if g.state != Idle {
		return fmt.Errorf("%w: %s arrived in state %s", ErrBusy, call.Name, g.state)
	}
	if !g.exec.Supports(call.Name) {
		g.resolved[call.ID] = true
		return fmt.Errorf("%w: %s", ErrUnsupported, call.Name)
	}

	c := call
	g.pending = &c
	g.state = AwaitingDecision
	return nil
}

// Allow executes the pending call: AwaitingDecision → Executing → Idle.
// Filesystem failures do not stall the machine; they come back as an error
// Result correlated to the call id, and the gate returns to Idle.
func (g *Gate) Allow(ctx context.Context, id string) (Result, error) {
	g.mu.Lock()
	if g.resolved[id] {
		g.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrResolved, id)
	}
	if g.state != AwaitingDecision || g.pending == nil || g.pending.ID != id {
		g.mu.Unlock()
		return Result{}, fmt.Errorf("%w: %s", ErrNotPending, id)
	}
	call := *g.pending
	g.state = Executing
	g.mu.Unlock()

	// Blocking filesystem work happens outside the lock so the outer stream
	// stays cancellable.
	content, err := g.exec.Execute(ctx, call.Name, call.Arguments)

	g.mu.Lock()
	g.state = Idle
	g.pending = nil
	g.resolved[id] = true
	g.mu.Unlock()

	if err != nil {
		return Result{ID: id, Content: err.Error(), IsError: true}, nil
	}
	return Result{ID: id, Content: content}, nil
}

// Deny resolves the pending call without executing it: AwaitingDecision →
// Idle with a synthetic permission-denied result. Not an error; a normal
// terminal outcome.
func (g *Gate) Deny(id string) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolved[id] {
		return Result{}, fmt.Errorf("%w: %s", ErrResolved, id)
	}
	if g.state != AwaitingDecision || g.pending == nil || g.pending.ID != id {
		return Result{}, fmt.Errorf("%w: %s", ErrNotPending, id)
	}

	name := g.pending.Name
	g.state = Idle
	g.pending = nil
	g.resolved[id] = true

	return Result{
		ID:      id,
		Content: fmt.Sprintf("permission denied: the user declined to run %s", name),
		IsError: true,
	}, nil
}

// Resolved reports whether a correlation id has already been decided.
func (g *Gate) Resolved(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolved[id]
}

// Reset force-returns the gate to Idle, abandoning any pending call without
// resolving its id. Used when a turn is aborted by a transport failure.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = Idle
	g.pending = nil
}

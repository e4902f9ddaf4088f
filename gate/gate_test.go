package gate

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeExecutor records calls and returns canned results.
type fakeExecutor struct {
	supported map[string]bool
	result    string
	err       error
	calls     int
}

func (f *fakeExecutor) Supports(name string) bool {
	return f.supported[name]
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	f.calls++
	return f.result, f.err
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		supported: map[string]bool{
			"read_file":    true,
			"search_files": true,
			"create_file":  true,
		},
		result: "ok",
	}
}

func TestGateAllowFlow(t *testing.T) {
	exec := newFakeExecutor()
	g := New(exec)

	if g.State() != Idle {
		t.Fatalf("initial state: got %v, want Idle", g.State())
	}

	call := PendingToolCall{ID: "tc-1", Name: "read_file", Arguments: map[string]any{"path": "a.txt"}}
	if err := g.Request(call); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if g.State() != AwaitingDecision {
		t.Fatalf("state after request: got %v, want AwaitingDecision", g.State())
	}

	pending, ok := g.Pending()
	if !ok || pending.ID != "tc-1" {
		t.Fatalf("Pending: got %+v, %v", pending, ok)
	}

	result, err := g.Allow(context.Background(), "tc-1")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if result.ID != "tc-1" || result.Content != "ok" || result.IsError {
		t.Errorf("result: got %+v", result)
	}
	if exec.calls != 1 {
		t.Errorf("executor calls: got %d, want 1", exec.calls)
	}
	if g.State() != Idle {
		t.Errorf("state after allow: got %v, want Idle", g.State())
	}
	if !g.Resolved("tc-1") {
		t.Error("call should be resolved")
	}
}

func TestGateDenyFlow(t *testing.T) {
	g := New(newFakeExecutor())

	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "create_file"}); err != nil {
		t.Fatalf("Request: %v", err)
	}

	result, err := g.Deny("tc-1")
	if err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if !result.IsError {
		t.Error("denial result should be an error result")
	}
	if result.Content == "" {
		t.Error("denial result should explain the refusal")
	}
	if g.State() != Idle {
		t.Errorf("state after deny: got %v, want Idle", g.State())
	}
}

func TestGateBusyRejectsSecondCall(t *testing.T) {
	g := New(newFakeExecutor())

	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); err != nil {
		t.Fatalf("Request: %v", err)
	}

	err := g.Request(PendingToolCall{ID: "tc-2", Name: "search_files"})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("second request: got %v, want ErrBusy", err)
	}

	// The original call is unaffected
	pending, ok := g.Pending()
	if !ok || pending.ID != "tc-1" {
		t.Errorf("pending after rejected request: got %+v, %v", pending, ok)
	}
}

func TestGateDuplicateDecisions(t *testing.T) {
	g := New(newFakeExecutor())

	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := g.Allow(context.Background(), "tc-1"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	if _, err := g.Allow(context.Background(), "tc-1"); !errors.Is(err, ErrResolved) {
		t.Errorf("second Allow: got %v, want ErrResolved", err)
	}
	if _, err := g.Deny("tc-1"); !errors.Is(err, ErrResolved) {
		t.Errorf("Deny after Allow: got %v, want ErrResolved", err)
	}

	// A resolved id can never be requested again
	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); !errors.Is(err, ErrResolved) {
		t.Errorf("replayed request: got %v, want ErrResolved", err)
	}
}

func TestGateUnsupportedTool(t *testing.T) {
	g := New(newFakeExecutor())

	err := g.Request(PendingToolCall{ID: "tc-1", Name: "delete_everything"})
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("got %v, want ErrUnsupported", err)
	}
	if g.State() != Idle {
		t.Errorf("state: got %v, want Idle", g.State())
	}
	// The id is burned so a retry cannot sneak it past later
	if !g.Resolved("tc-1") {
		t.Error("unsupported call id should be resolved")
	}
}

func TestGateRequestWithoutID(t *testing.T) {
	g := New(newFakeExecutor())
	if err := g.Request(PendingToolCall{Name: "read_file"}); err == nil {
		t.Error("expected error for missing correlation id")
	}
}

func TestGateDecisionWithoutPending(t *testing.T) {
	g := New(newFakeExecutor())

	if _, err := g.Allow(context.Background(), "tc-9"); !errors.Is(err, ErrNotPending) {
		t.Errorf("Allow: got %v, want ErrNotPending", err)
	}
	if _, err := g.Deny("tc-9"); !errors.Is(err, ErrNotPending) {
		t.Errorf("Deny: got %v, want ErrNotPending", err)
	}
}

func TestGateWrongIDDecision(t *testing.T) {
	g := New(newFakeExecutor())

	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if _, err := g.Allow(context.Background(), "tc-other"); !errors.Is(err, ErrNotPending) {
		t.Errorf("Allow with wrong id: got %v, want ErrNotPending", err)
	}
}

func TestGateExecutionFailureBecomesErrorResult(t *testing.T) {
	exec := newFakeExecutor()
	exec.err = fmt.Errorf("file not found")
	g := New(exec)

	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); err != nil {
		t.Fatalf("Request: %v", err)
	}

	result, err := g.Allow(context.Background(), "tc-1")
	if err != nil {
		t.Fatalf("Allow should not fail on executor error: %v", err)
	}
	if !result.IsError || result.Content != "file not found" {
		t.Errorf("result: got %+v", result)
	}
	if g.State() != Idle {
		t.Errorf("state after failed execution: got %v, want Idle", g.State())
	}
}

func TestGateReset(t *testing.T) {
	g := New(newFakeExecutor())

	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); err != nil {
		t.Fatalf("Request: %v", err)
	}

	g.Reset()

	if g.State() != Idle {
		t.Errorf("state: got %v, want Idle", g.State())
	}
	if _, ok := g.Pending(); ok {
		t.Error("pending call should be gone")
	}
	// Reset abandons without resolving, so the relay may legitimately resend
	if g.Resolved("tc-1") {
		t.Error("abandoned call should not be marked resolved")
	}
	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); err != nil {
		t.Errorf("resent call after reset: %v", err)
	}
}

func TestRegistryPerConversationIsolation(t *testing.T) {
	reg := NewRegistry(newFakeExecutor())

	g1 := reg.Ensure("conv-1")
	g2 := reg.Ensure("conv-2")
	if g1 == g2 {
		t.Fatal("conversations must not share a gate")
	}
	if reg.Ensure("conv-1") != g1 {
		t.Error("Ensure should return the same gate for the same conversation")
	}

	if err := g1.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); err != nil {
		t.Fatalf("Request on conv-1: %v", err)
	}

	// A pending call in one conversation never blocks another
	if err := g2.Request(PendingToolCall{ID: "tc-2", Name: "read_file"}); err != nil {
		t.Errorf("Request on conv-2: %v", err)
	}
}

func TestRegistryRemove(t *testing.T) {
	reg := NewRegistry(newFakeExecutor())

	g := reg.Ensure("conv-1")
	if err := g.Request(PendingToolCall{ID: "tc-1", Name: "read_file"}); err != nil {
		t.Fatalf("Request: %v", err)
	}

	reg.Remove("conv-1")

	fresh := reg.Ensure("conv-1")
	if fresh == g {
		t.Error("removed conversation should get a fresh gate")
	}
	if fresh.State() != Idle {
		t.Errorf("fresh gate state: got %v, want Idle", fresh.State())
	}
}

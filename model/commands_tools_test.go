package model

import (
	"context"
	"errors"
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aster/backend"
	"aster/config"
	"aster/gate"
)

// fakeChatProvider streams canned chunks through the callback, optionally
// failing afterwards, and records the messages it was given.
type fakeChatProvider struct {
	chunks []string
	err    error

	calls       int
	gotMessages []Message
}

func (f *fakeChatProvider) Chat(ctx context.Context, messages []Message, callback StreamCallback) error {
	return f.ChatWithTools(ctx, messages, nil, callback)
}

func (f *fakeChatProvider) ChatWithTools(ctx context.Context, messages []Message, tools []mcptypes.Tool, callback StreamCallback) error {
	f.calls++
	f.gotMessages = append([]Message(nil), messages...)
	for _, chunk := range f.chunks {
		if callback != nil {
			if err := callback(chunk, nil); err != nil {
				return err
			}
		}
	}
	return f.err
}

func (f *fakeChatProvider) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	return nil, nil
}
func (f *fakeChatProvider) GetModel() string               { return "fake-model" }
func (f *fakeChatProvider) GetDisplayName() string         { return "fake-model" }
func (f *fakeChatProvider) SetModel(model string)          {}
func (f *fakeChatProvider) Ping(ctx context.Context) error { return nil }

// allExecutor supports every tool name; execution is never reached in these
// tests.
type allExecutor struct{}

func (allExecutor) Supports(string) bool { return true }
func (allExecutor) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	return "", nil
}

func TestSendChatKeepsPartialOnFailure(t *testing.T) {
	fake := &fakeChatProvider{
		chunks: []string{"Sure, ", "here is "},
		err:    backend.ErrTruncated,
	}

	m := testModelWithConfig(&config.Config{})
	m.Provider = fake
	m.Messages = []Message{{Role: "user", Content: "explain channels"}}

	msg := m.SendChat()()
	errMsg, ok := msg.(StreamErrorMsg)
	if !ok {
		t.Fatalf("got %T, want StreamErrorMsg", msg)
	}
	if !errors.Is(errMsg.Err, backend.ErrTruncated) {
		t.Errorf("err: got %v, want ErrTruncated", errMsg.Err)
	}
	if errMsg.Partial != "Sure, here is " {
		t.Errorf("partial: got %q, want the deltas received before the drop", errMsg.Partial)
	}
}

func TestSendChatRejectsBlankMessage(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
	}{
		{name: "whitespace only", messages: []Message{{Role: "user", Content: "   \n\t"}}},
		{name: "no user message", messages: []Message{{Role: "assistant", Content: "hi"}}},
		{name: "empty history", messages: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeChatProvider{}
			m := testModelWithConfig(&config.Config{})
			m.Provider = fake
			m.Messages = tt.messages

			msg := m.SendChat()()
			errMsg, ok := msg.(StreamErrorMsg)
			if !ok {
				t.Fatalf("got %T, want StreamErrorMsg", msg)
			}
			if !errors.Is(errMsg.Err, backend.ErrEmptyMessage) {
				t.Errorf("err: got %v, want ErrEmptyMessage", errMsg.Err)
			}
			if fake.calls != 0 {
				t.Errorf("provider was called %d times for blank input", fake.calls)
			}
		})
	}
}

func TestContinueAfterToolsCarriesToolCallID(t *testing.T) {
	fake := &fakeChatProvider{chunks: []string{"done"}}
	m := testModelWithConfig(&config.Config{})
	m.Provider = fake

	results := []gate.Result{
		{ID: "call-abc", Content: "file contents"},
		{ID: "call-def", Content: "file not found: x.txt", IsError: true},
	}
	contextMessages := []Message{{Role: "user", Content: "read x.txt"}}

	msg := m.continueAfterTools(context.Background(), fake, contextMessages, "checking", results)
	if _, ok := msg.(ToolExecutionCompleteMsg); !ok {
		t.Fatalf("got %T, want ToolExecutionCompleteMsg", msg)
	}

	var toolMsgs []Message
	for _, sent := range fake.gotMessages {
		if sent.Role == "tool" {
			toolMsgs = append(toolMsgs, sent)
		}
	}
	if len(toolMsgs) != 2 {
		t.Fatalf("tool messages sent: got %d, want 2", len(toolMsgs))
	}
	if toolMsgs[0].ToolCallID != "call-abc" || toolMsgs[0].Content != "file contents" {
		t.Errorf("first result: %+v", toolMsgs[0])
	}
	if toolMsgs[1].ToolCallID != "call-def" {
		t.Errorf("error result lost its correlation id: %+v", toolMsgs[1])
	}
	if toolMsgs[1].Content != "Error: file not found: x.txt" {
		t.Errorf("error result content: %q", toolMsgs[1].Content)
	}
}

func TestContinueAfterToolsKeepsPartialOnFailure(t *testing.T) {
	fake := &fakeChatProvider{
		chunks: []string{"Half an "},
		err:    backend.ErrTruncated,
	}
	m := testModelWithConfig(&config.Config{})
	m.Provider = fake

	msg := m.continueAfterTools(context.Background(), fake, nil, "", []gate.Result{{ID: "call-1", Content: "ok"}})
	errMsg, ok := msg.(ToolExecutionErrorMsg)
	if !ok {
		t.Fatalf("got %T, want ToolExecutionErrorMsg", msg)
	}
	if errMsg.Partial != "Half an " {
		t.Errorf("partial: got %q, want the text streamed before the failure", errMsg.Partial)
	}
	if m.CurrentTurn != 0 {
		t.Errorf("turn counter not reset: %d", m.CurrentTurn)
	}
}

func TestAbortToolTurnAdmitsResentCall(t *testing.T) {
	m := testModelWithConfig(&config.Config{})
	m.Gates = gate.NewRegistry(allExecutor{})

	g := m.Gates.Ensure("unsaved")
	call := gate.PendingToolCall{ID: "call-77", Name: "read_file"}
	if err := g.Request(call); err != nil {
		t.Fatalf("Request: %v", err)
	}

	m.AbortToolTurn()

	if m.CurrentTurn != 0 {
		t.Errorf("turn counter not reset: %d", m.CurrentTurn)
	}
	// The abandoned id was never resolved, so the relay may resend it
	if err := g.Request(call); err != nil {
		t.Errorf("resent call after abort: %v", err)
	}
}

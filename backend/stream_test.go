package backend

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func newTestStream(ctx context.Context, lines string) *Stream {
	return newStream(ctx, io.NopCloser(strings.NewReader(lines)))
}

func TestStreamDeltaOrder(t *testing.T) {
	s := newTestStream(context.Background(),
		`{"delta":"Hel"}
{"delta":"lo, "}
{"delta":"world"}
{"done":true,"done_reason":"stop"}
`)

	var got strings.Builder
	for {
		event, err := s.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if event.Kind == EventDelta {
			got.WriteString(event.Delta)
		}
	}

	if got.String() != "Hello, world" {
		t.Errorf("concatenated deltas: got %q, want %q", got.String(), "Hello, world")
	}
}

func TestStreamDoneEvent(t *testing.T) {
	s := newTestStream(context.Background(),
		`{"done":true,"done_reason":"stop"}
`)

	event, err := s.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if event.Kind != EventDone {
		t.Fatalf("kind: got %d, want EventDone", event.Kind)
	}
	if event.Reason != "stop" {
		t.Errorf("reason: got %q, want %q", event.Reason, "stop")
	}

	if _, err := s.Recv(); err != io.EOF {
		t.Errorf("Recv after done: got %v, want io.EOF", err)
	}
}

func TestStreamSkipsMalformedLines(t *testing.T) {
	s := newTestStream(context.Background(),
		`{"delta":"first"}
not json at all
{"unknown_field":42}
{"delta":"second"}
{"done":true}
`)

	var deltas []string
	for {
		event, err := s.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		if event.Kind == EventDelta {
			deltas = append(deltas, event.Delta)
		}
	}

	if len(deltas) != 2 || deltas[0] != "first" || deltas[1] != "second" {
		t.Errorf("deltas: got %v, want [first second]", deltas)
	}
	if s.Dropped() != 2 {
		t.Errorf("dropped: got %d, want 2", s.Dropped())
	}
}

func TestStreamErrorEvent(t *testing.T) {
	s := newTestStream(context.Background(),
		`{"error":"model not found"}
`)

	event, err := s.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if event.Kind != EventError {
		t.Fatalf("kind: got %d, want EventError", event.Kind)
	}
	if event.Message != "model not found" {
		t.Errorf("message: got %q, want %q", event.Message, "model not found")
	}
}

func TestStreamToolCallEvent(t *testing.T) {
	s := newTestStream(context.Background(),
		`{"tool_call":{"id":"tc-1","name":"read_file","arguments":{"path":"notes.md"}}}
`)

	event, err := s.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if event.Kind != EventToolCall {
		t.Fatalf("kind: got %d, want EventToolCall", event.Kind)
	}
	if event.ToolCall.ID != "tc-1" || event.ToolCall.Name != "read_file" {
		t.Errorf("tool call: got %+v", event.ToolCall)
	}
	if event.ToolCall.Arguments["path"] != "notes.md" {
		t.Errorf("arguments: got %v", event.ToolCall.Arguments)
	}
}

func TestStreamSecondToolCallIsProtocolError(t *testing.T) {
	s := newTestStream(context.Background(),
		`{"tool_call":{"id":"tc-1","name":"read_file","arguments":{}}}
{"tool_call":{"id":"tc-2","name":"search_files","arguments":{}}}
`)

	if _, err := s.Recv(); err != nil {
		t.Fatalf("first Recv: %v", err)
	}

	_, err := s.Recv()
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("second tool call: got %v, want ErrProtocol", err)
	}
}

func TestStreamTruncatedAfterData(t *testing.T) {
	s := newTestStream(context.Background(),
		`{"delta":"partial answ"}
`)

	if _, err := s.Recv(); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	_, err := s.Recv()
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("after connection drop: got %v, want ErrTruncated", err)
	}
}

func TestStreamUnreachableBeforeData(t *testing.T) {
	s := newTestStream(context.Background(), "")

	_, err := s.Recv()
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("empty body: got %v, want ErrUnreachable", err)
	}
}

// errAfterReader serves its payload and then fails with a non-EOF error,
// like a connection reset partway through the response body.
type errAfterReader struct {
	payload io.Reader
	err     error
}

func (r *errAfterReader) Read(p []byte) (int, error) {
	n, err := r.payload.Read(p)
	if err == io.EOF {
		return n, r.err
	}
	return n, err
}

func TestStreamResetBeforeData(t *testing.T) {
	reset := errors.New("read: connection reset by peer")
	s := newStream(context.Background(), io.NopCloser(&errAfterReader{
		payload: strings.NewReader(""),
		err:     reset,
	}))

	_, err := s.Recv()
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("reset before any data: got %v, want ErrUnreachable", err)
	}
}

func TestStreamResetAfterData(t *testing.T) {
	reset := errors.New("read: connection reset by peer")
	s := newStream(context.Background(), io.NopCloser(&errAfterReader{
		payload: strings.NewReader(`{"delta":"partial answ"}` + "\n"),
		err:     reset,
	}))

	if _, err := s.Recv(); err != nil {
		t.Fatalf("Recv: %v", err)
	}

	_, err := s.Recv()
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("reset after data: got %v, want ErrTruncated", err)
	}
}

func TestStreamContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := newTestStream(ctx,
		`{"delta":"before cancel"}
{"delta":"after cancel"}
`)

	event, err := s.Recv()
	if err != nil {
		t.Fatalf("Recv: %v", err)
	}
	if event.Delta != "before cancel" {
		t.Errorf("delta: got %q", event.Delta)
	}

	cancel()

	_, err = s.Recv()
	if !errors.Is(err, context.Canceled) {
		t.Errorf("after cancel: got %v, want context.Canceled", err)
	}
}

func TestStreamCloseIsIdempotent(t *testing.T) {
	s := newTestStream(context.Background(),
		`{"delta":"x"}
`)

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if _, err := s.Recv(); err != io.EOF {
		t.Errorf("Recv after Close: got %v, want io.EOF", err)
	}
}

func TestParseLineShapes(t *testing.T) {
	s := newTestStream(context.Background(), "")

	tests := []struct {
		name string
		line string
		ok   bool
		kind EventKind
	}{
		{"delta", `{"delta":"hi"}`, true, EventDelta},
		{"done", `{"done":true}`, true, EventDone},
		{"error", `{"error":"boom"}`, true, EventError},
		{"tool call", `{"tool_call":{"id":"1","name":"t","arguments":{}}}`, true, EventToolCall},
		{"keep-alive", `{}`, false, 0},
		{"garbage", `not json`, false, 0},
		{"empty delta", `{"delta":""}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, ok := s.parseLine([]byte(tt.line))
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && event.Kind != tt.kind {
				t.Errorf("kind: got %d, want %d", event.Kind, tt.kind)
			}
		})
	}
}

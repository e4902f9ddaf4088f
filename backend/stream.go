package backend

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Stream is the pull side of one chat turn. Recv returns events strictly in
// wire order; the caller applies each event before asking for the next, so
// delta N is always folded into the message before delta N+1.
//
// A Stream is restartable per call, not resumable: once closed or errored it
// is finished, and the next turn gets a fresh Stream from Client.Chat.
type Stream struct {
	ctx    context.Context
	body   io.ReadCloser
	reader *bufio.Reader

	mu      sync.Mutex
	closed  bool
	done    bool
	sawData bool
	pending bool // a tool call was emitted and not yet resolved this turn
	dropped int
}

func newStream(ctx context.Context, body io.ReadCloser) *Stream {
	return &Stream{
		ctx:    ctx,
		body:   body,
		reader: bufio.NewReader(body),
	}
}

// Recv blocks until the next event, the end of the stream, or cancellation.
// After the end marker it returns io.EOF. Cancellation is observed at event
// boundaries: a context cancelled mid-read surfaces on the next Recv, and
// everything received before it remains valid.
func (s *Stream) Recv() (Event, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Event{}, io.EOF
	}
	if s.done {
		s.mu.Unlock()
		return Event{}, io.EOF
	}
	s.mu.Unlock()

	for {
		select {
		case <-s.ctx.Done():
			s.Close()
			return Event{}, s.ctx.Err()
		default:
		}

		line, readErr := s.reader.ReadBytes('\n')
		line = bytes.TrimSpace(line)

		if len(line) > 0 {
			event, ok := s.parseLine(line)
			if ok {
				if err := s.apply(event); err != nil {
					s.Close()
					return Event{}, err
				}
				return event, nil
			}
			// Unparseable line: skipped, counted, never fatal.
			s.mu.Lock()
			s.dropped++
			s.mu.Unlock()
		}

		if readErr != nil {
			return Event{}, s.finish(readErr)
		}
	}
}

// parseLine decodes one wire line into an Event. Returns false for lines
// that fail to decode or match no known shape.
func (s *Stream) parseLine(line []byte) (Event, bool) {
	var c chunk
	if err := json.Unmarshal(line, &c); err != nil {
		return Event{}, false
	}

	switch {
	case c.Error != "":
		return Event{Kind: EventError, Message: c.Error}, true
	case c.ToolCall != nil:
		return Event{Kind: EventToolCall, ToolCall: c.ToolCall}, true
	case c.Done:
		return Event{Kind: EventDone, Reason: c.Reason}, true
	case c.Delta != "":
		return Event{Kind: EventDelta, Delta: c.Delta}, true
	default:
		// Keep-alive or unknown-but-valid JSON: treated as malformed for
		// diagnostics purposes.
		return Event{}, false
	}
}

// apply updates stream state for an event and enforces the one-pending-tool
// invariant at the wire level.
func (s *Stream) apply(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sawData = true

	switch event.Kind {
	case EventToolCall:
		if s.pending {
			return fmt.Errorf("%w: tool call %q arrived while another is unresolved", ErrProtocol, event.ToolCall.Name)
		}
		s.pending = true
	case EventDone:
		s.done = true
	}
	return nil
}

// finish maps the read error that ended the stream onto the taxonomy.
func (s *Stream) finish(readErr error) error {
	s.mu.Lock()
	done := s.done
	sawData := s.sawData
	s.mu.Unlock()

	s.Close()

	if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
		if done {
			return io.EOF
		}
		if sawData {
			return ErrTruncated
		}
		// Connection closed before anything arrived.
		return fmt.Errorf("%w: connection closed before any data", ErrUnreachable)
	}
	if done {
		return io.EOF
	}
	if !sawData {
		// Failed before any payload arrived, so the turn never started
		return fmt.Errorf("%w: %v", ErrUnreachable, readErr)
	}
	return fmt.Errorf("%w: %v", ErrTruncated, readErr)
}

// Dropped returns how many malformed lines were skipped so far.
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

// Close releases the underlying connection. Safe to call more than once;
// closing twice has the same effect as once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.body.Close()
}

package storage

import (
	"testing"
	"time"
)

func newTestIndex(t *testing.T) *SearchIndex {
	t.Helper()
	si, err := NewSearchIndex(t.TempDir())
	if err != nil {
		t.Fatalf("NewSearchIndex: %v", err)
	}
	t.Cleanup(func() { si.Close() })
	return si
}

func indexedConversation(id, name string, contents ...string) *Conversation {
	conv := &Conversation{ID: id, Name: name}
	base := time.Now().Add(-time.Duration(len(contents)) * time.Minute)
	for i, content := range contents {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		conv.Messages = append(conv.Messages, Message{
			Role:      role,
			Content:   content,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return conv
}

func TestIndexAndSearch(t *testing.T) {
	si := newTestIndex(t)

	conv := indexedConversation("c1", "Go questions",
		"how do channels work",
		"channels connect goroutines")
	if err := si.IndexConversation(conv); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	matches, err := si.Search("channels", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: got %d, want 2", len(matches))
	}
	for _, m := range matches {
		if m.ConversationID != "c1" || m.ConversationName != "Go questions" {
			t.Errorf("match metadata: %+v", m)
		}
	}
}

func TestIndexSkipsSystemMessages(t *testing.T) {
	si := newTestIndex(t)

	conv := &Conversation{
		ID:   "c1",
		Name: "chat",
		Messages: []Message{
			{Role: "system", Content: "secret system prompt", Timestamp: time.Now()},
			{Role: "user", Content: "hello", Timestamp: time.Now()},
		},
	}
	if err := si.IndexConversation(conv); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	matches, err := si.Search("secret system", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("system message indexed: %+v", matches)
	}
}

func TestIndexReplacesExistingRows(t *testing.T) {
	si := newTestIndex(t)

	conv := indexedConversation("c1", "chat", "original text")
	if err := si.IndexConversation(conv); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	conv.Messages[0].Content = "revised text"
	if err := si.IndexConversation(conv); err != nil {
		t.Fatalf("reindex: %v", err)
	}

	if matches, _ := si.Search("original", 50); len(matches) != 0 {
		t.Errorf("stale rows survived: %+v", matches)
	}
	if matches, _ := si.Search("revised", 50); len(matches) != 1 {
		t.Errorf("new rows missing: %+v", matches)
	}
}

func TestRemoveConversation(t *testing.T) {
	si := newTestIndex(t)

	if err := si.IndexConversation(indexedConversation("c1", "chat", "findable text")); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}
	if err := si.RemoveConversation("c1"); err != nil {
		t.Fatalf("RemoveConversation: %v", err)
	}

	if matches, _ := si.Search("findable", 50); len(matches) != 0 {
		t.Errorf("removed conversation still indexed: %+v", matches)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	si := newTestIndex(t)
	matches, err := si.Search("", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("empty query returned matches: %+v", matches)
	}
}

func TestSearchLimit(t *testing.T) {
	si := newTestIndex(t)

	contents := make([]string, 10)
	for i := range contents {
		contents[i] = "repeated keyword"
	}
	if err := si.IndexConversation(indexedConversation("c1", "chat", contents...)); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	matches, err := si.Search("keyword", 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 3 {
		t.Errorf("limit ignored: got %d matches", len(matches))
	}
}

func TestSearchOrdersNewestFirst(t *testing.T) {
	si := newTestIndex(t)

	old := &Conversation{ID: "c1", Name: "old", Messages: []Message{
		{Role: "user", Content: "shared term", Timestamp: time.Now().Add(-time.Hour)},
	}}
	recent := &Conversation{ID: "c2", Name: "recent", Messages: []Message{
		{Role: "user", Content: "shared term", Timestamp: time.Now()},
	}}
	if err := si.IndexConversation(old); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}
	if err := si.IndexConversation(recent); err != nil {
		t.Fatalf("IndexConversation: %v", err)
	}

	matches, err := si.Search("shared term", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches: got %d", len(matches))
	}
	if matches[0].ConversationID != "c2" {
		t.Errorf("order: got %s first", matches[0].ConversationID)
	}
}

func TestRebuild(t *testing.T) {
	dataDir := t.TempDir()
	store, err := NewConversationStorage(dataDir)
	if err != nil {
		t.Fatalf("NewConversationStorage: %v", err)
	}
	si, err := NewSearchIndex(dataDir)
	if err != nil {
		t.Fatalf("NewSearchIndex: %v", err)
	}
	defer si.Close()

	conv := &Conversation{Name: "chat", Messages: []Message{
		{Role: "user", Content: "rebuild me", Timestamp: time.Now()},
	}}
	if err := store.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := si.Rebuild(store); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}

	matches, err := si.Search("rebuild", 50)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].ConversationID != conv.ID {
		t.Errorf("matches: %+v", matches)
	}
}

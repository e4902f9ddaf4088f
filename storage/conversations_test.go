package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStorage(t *testing.T) *ConversationStorage {
	t.Helper()
	s, err := NewConversationStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewConversationStorage: %v", err)
	}
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := newTestStorage(t)

	conv := &Conversation{
		Name:         "Test Chat",
		Provider:     "relay",
		Model:        "llama3.1:latest",
		SystemPrompt: "be brief",
		AllowedTools: []string{"read_file"},
		Messages: []Message{
			{Role: "user", Content: "hello", Timestamp: time.Now()},
			{Role: "assistant", Content: "hi", Timestamp: time.Now()},
		},
	}

	if err := s.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if conv.ID == "" {
		t.Fatal("Save should assign an ID")
	}
	if conv.CreatedAt.IsZero() || conv.UpdatedAt.IsZero() {
		t.Error("Save should set timestamps")
	}

	loaded, err := s.Load(conv.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "Test Chat" || loaded.Provider != "relay" {
		t.Errorf("loaded metadata: %+v", loaded)
	}
	if len(loaded.Messages) != 2 || loaded.Messages[0].Content != "hello" {
		t.Errorf("loaded messages: %+v", loaded.Messages)
	}
	if len(loaded.AllowedTools) != 1 || loaded.AllowedTools[0] != "read_file" {
		t.Errorf("allowed tools: %v", loaded.AllowedTools)
	}
}

func TestLoadMissing(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.Load("no-such-id"); err == nil {
		t.Error("expected error for missing conversation")
	}
}

func TestListSortsNewestFirst(t *testing.T) {
	s := newTestStorage(t)

	older := &Conversation{Name: "older"}
	if err := s.Save(older); err != nil {
		t.Fatalf("Save: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	newer := &Conversation{Name: "newer"}
	if err := s.Save(newer); err != nil {
		t.Fatalf("Save: %v", err)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("count: got %d, want 2", len(metas))
	}
	if metas[0].Name != "newer" || metas[1].Name != "older" {
		t.Errorf("order: got %s, %s", metas[0].Name, metas[1].Name)
	}
}

func TestListSkipsCorruptedFiles(t *testing.T) {
	s := newTestStorage(t)

	if err := s.Save(&Conversation{Name: "good"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	bad := filepath.Join(s.conversationsDir, "broken.json")
	if err := os.WriteFile(bad, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "good" {
		t.Errorf("metas: %+v", metas)
	}
}

func TestDelete(t *testing.T) {
	s := newTestStorage(t)

	conv := &Conversation{Name: "doomed"}
	if err := s.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(conv.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(conv.ID); err == nil {
		t.Error("conversation should be gone")
	}
}

func TestRename(t *testing.T) {
	s := newTestStorage(t)

	conv := &Conversation{Name: "before"}
	if err := s.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Rename(conv.ID, "after"); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	loaded, err := s.Load(conv.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name != "after" {
		t.Errorf("name: got %q", loaded.Name)
	}
}

func TestCurrentConversationID(t *testing.T) {
	s := newTestStorage(t)

	if err := s.SaveCurrentConversationID("conv-42"); err != nil {
		t.Fatalf("SaveCurrentConversationID: %v", err)
	}
	id, err := s.LoadCurrentConversationID()
	if err != nil {
		t.Fatalf("LoadCurrentConversationID: %v", err)
	}
	if id != "conv-42" {
		t.Errorf("id: got %q", id)
	}
}

func TestExportToJSON(t *testing.T) {
	s := newTestStorage(t)

	conv := &Conversation{
		Name:     "exportable",
		Messages: []Message{{Role: "user", Content: "hi", Timestamp: time.Now()}},
	}
	if err := s.Save(conv); err != nil {
		t.Fatalf("Save: %v", err)
	}

	exportPath := filepath.Join(t.TempDir(), "nested", "export.json")
	if err := s.ExportToJSON(conv.ID, exportPath); err != nil {
		t.Fatalf("ExportToJSON: %v", err)
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(data), "exportable") {
		t.Error("export should contain the conversation name")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "notes", "notes"},
		{"spaces", "my notes", "my-notes"},
		{"path separators", "a/b\\c", "a-b-c"},
		{"special chars", `a:b*c?d"e<f>g|h`, "a-b-c-d-e-f-g-h"},
		{"trim hyphens and dots", "..-name-..", "name"},
		{"empty", "", "conversation"},
		{"only invalid chars", "///", "conversation"},
		{"long name truncated", strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateConversationName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short message", "Fix my resume", "Fix my resume"},
		{"newlines flattened", "line one\nline two", "line one line two"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateConversationName(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("long message truncated", func(t *testing.T) {
		got := GenerateConversationName(strings.Repeat("a", 60))
		if !strings.HasSuffix(got, "...") || len(got) != 33 {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty falls back to timestamp", func(t *testing.T) {
		got := GenerateConversationName("")
		if !strings.HasPrefix(got, "Conversation ") {
			t.Errorf("got %q", got)
		}
	})
}

func TestGenerateExportPath(t *testing.T) {
	p := GenerateExportPath("My Chat")
	base := filepath.Base(p)
	if !strings.HasPrefix(base, "aster-conversation-My-Chat-") || !strings.HasSuffix(base, ".json") {
		t.Errorf("path: got %q", p)
	}
}

func TestSearchMessages(t *testing.T) {
	messages := []Message{
		{Role: "system", Content: "you are helpful"},
		{Role: "user", Content: "tell me about Go channels"},
		{Role: "assistant", Content: "Channels connect goroutines"},
		{Role: "user", Content: "what about maps"},
	}

	matches := SearchMessages(messages, "channel")
	if len(matches) != 2 {
		t.Fatalf("matches: got %d, want 2", len(matches))
	}
	if matches[0].MessageIndex != 1 || matches[1].MessageIndex != 2 {
		t.Errorf("indexes: got %d, %d", matches[0].MessageIndex, matches[1].MessageIndex)
	}

	// Case-insensitive, system messages excluded
	if got := SearchMessages(messages, "HELPFUL"); len(got) != 0 {
		t.Errorf("system message matched: %+v", got)
	}
	if got := SearchMessages(messages, ""); len(got) != 0 {
		t.Errorf("empty query matched: %+v", got)
	}
}

func TestSearchMessagesPreviewTruncation(t *testing.T) {
	long := strings.Repeat("b", 150)
	matches := SearchMessages([]Message{{Role: "user", Content: long}}, "bbb")
	if len(matches) != 1 {
		t.Fatalf("matches: got %d", len(matches))
	}
	if len(matches[0].Preview) != 103 || !strings.HasSuffix(matches[0].Preview, "...") {
		t.Errorf("preview: got %d chars", len(matches[0].Preview))
	}
}

func TestConversationAllowedTools(t *testing.T) {
	var c Conversation

	c.AllowTool("read_file")
	c.AllowTool("read_file") // duplicate is a no-op
	c.AllowTool("create_file")
	if len(c.AllowedTools) != 2 {
		t.Fatalf("allowed: got %v", c.AllowedTools)
	}
	if !c.IsToolAllowed("read_file") || c.IsToolAllowed("search_files") {
		t.Errorf("membership wrong: %v", c.AllowedTools)
	}

	c.DisallowTool("read_file")
	if c.IsToolAllowed("read_file") {
		t.Error("read_file should be removed")
	}
	if !c.IsToolAllowed("create_file") {
		t.Error("create_file should survive")
	}
}

func TestConversationLock(t *testing.T) {
	s := newTestStorage(t)

	locked, err := s.CheckConversationLock("conv-1")
	if err != nil {
		t.Fatalf("CheckConversationLock: %v", err)
	}
	if locked {
		t.Fatal("fresh conversation should be unlocked")
	}

	if err := s.LockConversation("conv-1"); err != nil {
		t.Fatalf("LockConversation: %v", err)
	}
	locked, err = s.CheckConversationLock("conv-1")
	if err != nil {
		t.Fatalf("CheckConversationLock: %v", err)
	}
	if !locked {
		t.Error("conversation should be locked")
	}

	if err := s.UnlockConversation("conv-1"); err != nil {
		t.Fatalf("UnlockConversation: %v", err)
	}
	locked, _ = s.CheckConversationLock("conv-1")
	if locked {
		t.Error("conversation should be unlocked again")
	}

	// Unlocking twice is fine
	if err := s.UnlockConversation("conv-1"); err != nil {
		t.Errorf("second unlock: %v", err)
	}
}

func TestConversationLockInvalidFileIsCleaned(t *testing.T) {
	s := newTestStorage(t)

	lockPath := filepath.Join(s.conversationsDir, "conv-1.lock")
	if err := os.WriteFile(lockPath, []byte("garbage"), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	locked, err := s.CheckConversationLock("conv-1")
	if err != nil {
		t.Fatalf("CheckConversationLock: %v", err)
	}
	if locked {
		t.Error("invalid lock should not count as locked")
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Error("invalid lock file should be removed")
	}
}

func TestInstanceLock(t *testing.T) {
	s := newTestStorage(t)

	locked, _, err := s.CheckInstanceLock()
	if err != nil {
		t.Fatalf("CheckInstanceLock: %v", err)
	}
	if locked {
		t.Fatal("fresh data dir should be unlocked")
	}

	if err := s.LockInstance(); err != nil {
		t.Fatalf("LockInstance: %v", err)
	}
	locked, pid, err := s.CheckInstanceLock()
	if err != nil {
		t.Fatalf("CheckInstanceLock: %v", err)
	}
	if !locked {
		t.Error("instance should be locked")
	}
	if pid != os.Getpid() {
		t.Errorf("pid: got %d, want %d", pid, os.Getpid())
	}

	if err := s.UnlockInstance(); err != nil {
		t.Fatalf("UnlockInstance: %v", err)
	}
	locked, _, _ = s.CheckInstanceLock()
	if locked {
		t.Error("instance should be unlocked again")
	}
}

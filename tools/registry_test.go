package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(t.TempDir(), 50)
}

func writeWorkspaceFile(t *testing.T, r *Registry, rel, content string) {
	t.Helper()
	full := filepath.Join(r.Root(), filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(full, []byte(content), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestResolveReRootsEscapes(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name string
		path string
		want string // workspace-relative result, "" means error expected
	}{
		{"relative", "notes.md", "notes.md"},
		{"nested", "docs/readme.md", "docs/readme.md"},
		{"absolute re-rooted", "/etc/passwd", "etc/passwd"},
		{"dot-dot climb", "../../etc/passwd", "etc/passwd"},
		{"mixed climb", "docs/../../secret.txt", "secret.txt"},
		{"dot segments collapsed", "./docs/./a.md", "docs/a.md"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"root itself", "/", ""},
		{"all dot-dots", "../..", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			full, err := r.resolve(tt.path)
			if tt.want == "" {
				if err == nil {
					t.Errorf("resolve(%q): expected error, got %q", tt.path, full)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve(%q): %v", tt.path, err)
			}
			want := filepath.Join(r.Root(), filepath.FromSlash(tt.want))
			if full != want {
				t.Errorf("resolve(%q): got %q, want %q", tt.path, full, want)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	r := newTestRegistry(t)
	writeWorkspaceFile(t, r, "notes.md", "# Notes\nhello")

	content, err := r.Execute(context.Background(), ToolReadFile, map[string]any{"path": "notes.md"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if content != "# Notes\nhello" {
		t.Errorf("content: got %q", content)
	}
}

func TestReadFileMissingIsAnAnswer(t *testing.T) {
	r := newTestRegistry(t)

	content, err := r.Execute(context.Background(), ToolReadFile, map[string]any{"path": "nope.txt"})
	if err != nil {
		t.Fatalf("missing file should not be an error: %v", err)
	}
	if !strings.Contains(content, "file not found") {
		t.Errorf("content: got %q", content)
	}
}

func TestReadFileDirectory(t *testing.T) {
	r := newTestRegistry(t)
	writeWorkspaceFile(t, r, "docs/a.md", "x")

	_, err := r.Execute(context.Background(), ToolReadFile, map[string]any{"path": "docs"})
	if err == nil {
		t.Error("reading a directory should fail")
	}
}

func TestReadFileBinary(t *testing.T) {
	r := newTestRegistry(t)
	full := filepath.Join(r.Root(), "blob.bin")
	if err := os.WriteFile(full, []byte{0xff, 0xfe, 0x00, 0x01}, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := r.Execute(context.Background(), ToolReadFile, map[string]any{"path": "blob.bin"})
	if err == nil || !strings.Contains(err.Error(), "not a text file") {
		t.Errorf("got %v, want not-a-text-file error", err)
	}
}

func TestReadFileTruncation(t *testing.T) {
	r := newTestRegistry(t)
	writeWorkspaceFile(t, r, "big.txt", strings.Repeat("a", maxReadBytes+100))

	content, err := r.Execute(context.Background(), ToolReadFile, map[string]any{"path": "big.txt"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(content, "[truncated") {
		t.Error("oversized file should carry a truncation marker")
	}
}

func TestReadFileEscapeStaysInWorkspace(t *testing.T) {
	r := newTestRegistry(t)

	// The climb is re-rooted, so this looks for <root>/etc/passwd
	content, err := r.Execute(context.Background(), ToolReadFile, map[string]any{"path": "../../../etc/passwd"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(content, "file not found") {
		t.Errorf("escape attempt should resolve inside the workspace: %q", content)
	}
}

func TestSearchFiles(t *testing.T) {
	r := newTestRegistry(t)
	writeWorkspaceFile(t, r, "notes.md", "x")
	writeWorkspaceFile(t, r, "docs/meeting-notes.md", "x")
	writeWorkspaceFile(t, r, "recipe.txt", "x")

	content, err := r.Execute(context.Background(), ToolSearchFiles, map[string]any{"pattern": "notes"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(content, "notes.md") || !strings.Contains(content, "docs/meeting-notes.md") {
		t.Errorf("matches missing: %q", content)
	}
	if strings.Contains(content, "recipe.txt") {
		t.Errorf("unrelated file matched: %q", content)
	}
}

func TestSearchFilesNoMatch(t *testing.T) {
	r := newTestRegistry(t)
	writeWorkspaceFile(t, r, "a.txt", "x")

	content, err := r.Execute(context.Background(), ToolSearchFiles, map[string]any{"pattern": "zzzzzz"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(content, "no files matching") {
		t.Errorf("content: got %q", content)
	}
}

func TestSearchFilesSkipsHiddenDirs(t *testing.T) {
	r := newTestRegistry(t)
	writeWorkspaceFile(t, r, ".git/config", "x")
	writeWorkspaceFile(t, r, "config.toml", "x")

	content, err := r.Execute(context.Background(), ToolSearchFiles, map[string]any{"pattern": "config"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if strings.Contains(content, ".git") {
		t.Errorf("hidden directory leaked into results: %q", content)
	}
	if !strings.Contains(content, "config.toml") {
		t.Errorf("expected match missing: %q", content)
	}
}

func TestSearchFilesRespectsLimit(t *testing.T) {
	r := NewRegistry(t.TempDir(), 3)
	for i := 0; i < 10; i++ {
		writeWorkspaceFile(t, r, filepath.Join("notes", "note-"+strings.Repeat("x", i+1)+".md"), "x")
	}

	content, err := r.Execute(context.Background(), ToolSearchFiles, map[string]any{"pattern": "note"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	lines := strings.Split(content, "\n")
	// Header plus at most three matches
	if len(lines) > 4 {
		t.Errorf("result exceeds limit: %d lines\n%s", len(lines), content)
	}
}

func TestCreateFile(t *testing.T) {
	r := newTestRegistry(t)

	content, err := r.Execute(context.Background(), ToolCreateFile, map[string]any{
		"path":    "out/result.txt",
		"content": "hello",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(content, "created out/result.txt") {
		t.Errorf("result: got %q", content)
	}

	data, err := os.ReadFile(filepath.Join(r.Root(), "out", "result.txt"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("file content: got %q", data)
	}
}

func TestCreateFileOverDirectory(t *testing.T) {
	r := newTestRegistry(t)
	writeWorkspaceFile(t, r, "docs/a.md", "x")

	_, err := r.Execute(context.Background(), ToolCreateFile, map[string]any{
		"path":    "docs",
		"content": "x",
	})
	if err == nil {
		t.Error("writing over a directory should fail")
	}
}

func TestExecuteArgumentValidation(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		name string
		tool string
		args map[string]any
	}{
		{"read missing path", ToolReadFile, map[string]any{}},
		{"read non-string path", ToolReadFile, map[string]any{"path": 42}},
		{"search missing pattern", ToolSearchFiles, map[string]any{}},
		{"create missing content", ToolCreateFile, map[string]any{"path": "a.txt"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Execute(context.Background(), tt.tool, tt.args); err == nil {
				t.Error("expected argument error")
			}
		})
	}
}

func TestExecuteUnsupportedTool(t *testing.T) {
	r := newTestRegistry(t)
	if _, err := r.Execute(context.Background(), "delete_file", nil); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestExecuteCancelledContext(t *testing.T) {
	r := newTestRegistry(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.Execute(ctx, ToolReadFile, map[string]any{"path": "a.txt"}); err == nil {
		t.Error("expected context error")
	}
}

func TestSupports(t *testing.T) {
	r := newTestRegistry(t)
	for _, name := range []string{ToolReadFile, ToolSearchFiles, ToolCreateFile} {
		if !r.Supports(name) {
			t.Errorf("Supports(%q) = false", name)
		}
	}
	if r.Supports("run_shell") {
		t.Error("Supports(run_shell) = true")
	}
}

func TestDefinitionsCoverAllTools(t *testing.T) {
	r := newTestRegistry(t)
	defs := r.Definitions()
	if len(defs) != 3 {
		t.Fatalf("definitions: got %d, want 3", len(defs))
	}
	for _, def := range defs {
		if !r.Supports(def.Name) {
			t.Errorf("advertised tool %q is not supported", def.Name)
		}
		if def.InputSchema.Type != "object" {
			t.Errorf("%s schema type: got %q", def.Name, def.InputSchema.Type)
		}
	}
}

func TestCallWrapsErrorsAsResults(t *testing.T) {
	r := newTestRegistry(t)

	result, err := r.Call(context.Background(), ToolReadFile, map[string]any{})
	if err != nil {
		t.Fatalf("Call should fold errors into the result: %v", err)
	}
	if !result.IsError {
		t.Error("missing argument should produce an error result")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home := GetHomeDir()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"tilde", "~/notes", filepath.Join(home, "notes")},
		{"absolute unchanged", "/tmp/data", "/tmp/data"},
		{"cleans redundancy", "/tmp//data/./x", "/tmp/data/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandPath(tt.input); got != tt.want {
				t.Errorf("ExpandPath(%q): got %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestExpandPathEnvVars(t *testing.T) {
	t.Setenv("ASTER_TEST_DIR", "/srv/aster")
	if got := ExpandPath("$ASTER_TEST_DIR/data"); got != "/srv/aster/data" {
		t.Errorf("got %q", got)
	}
}

func TestEnvVarHelpers(t *testing.T) {
	t.Setenv("ASTER_BACKEND_URL", "")
	t.Setenv("ASTER_MODEL", "")
	t.Setenv("ASTER_DATA_DIR", "")

	if HasAnyEnvVar() {
		t.Error("HasAnyEnvVar should be false with nothing set")
	}

	t.Setenv("ASTER_BACKEND_URL", "http://relay:8080")
	if !HasAnyEnvVar() {
		t.Error("HasAnyEnvVar should be true with one set")
	}
	if HasAllEnvVars() {
		t.Error("HasAllEnvVars should be false with only one set")
	}
	if got := GetMissingEnvVar(); got != "ASTER_MODEL" {
		t.Errorf("missing var: got %q", got)
	}

	t.Setenv("ASTER_MODEL", "llama3.1:latest")
	t.Setenv("ASTER_DATA_DIR", "/tmp/aster")
	if !HasAllEnvVars() {
		t.Error("HasAllEnvVars should be true with all set")
	}
	if got := GetMissingEnvVar(); got != "" {
		t.Errorf("missing var: got %q, want empty", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ASTER_BACKEND_URL", "http://relay:9999")
	t.Setenv("ASTER_MODEL", "qwen2.5:7b")
	t.Setenv("ASTER_DATA_DIR", "/tmp/aster-env")

	cfg := &Config{
		RelayURL:      "http://localhost:8080",
		DefaultModel:  "llama3.1:latest",
		DataDirectory: "~/.local/share/aster",
	}
	cfg.applyEnvOverrides()

	if cfg.RelayURL != "http://relay:9999" {
		t.Errorf("RelayURL: got %q", cfg.RelayURL)
	}
	if cfg.DefaultModel != "qwen2.5:7b" {
		t.Errorf("DefaultModel: got %q", cfg.DefaultModel)
	}
	if cfg.DataDirectory != "/tmp/aster-env" {
		t.Errorf("DataDirectory: got %q", cfg.DataDirectory)
	}
}

func TestApplyUserConfig(t *testing.T) {
	cfg := &Config{
		RelayURL:          "http://localhost:8080",
		OllamaHost:        "http://localhost:11434",
		DefaultProvider:   "relay",
		DefaultModel:      "llama3.1:latest",
		SearchResultLimit: 50,
		MaxToolTurns:      10,
	}

	userCfg := &UserConfig{
		Relay:               RelayConfig{URL: "http://relay:8080", DefaultModel: "mistral:7b"},
		Ollama:              OllamaConfig{Host: "http://ollama:11434", DefaultModel: "llama3.2:3b"},
		DefaultProvider:     "relay",
		DefaultSystemPrompt: "be helpful",
		Tools: ToolsConfig{
			WorkspaceDirectory: "/srv/workspace",
			RequireApproval:    true,
			AllowedTools:       []string{"read_file"},
			SearchResultLimit:  25,
			MaxToolTurns:       5,
		},
		Security: SecurityConfig{Method: "plaintext"},
	}
	cfg.applyUserConfig(userCfg)

	if cfg.RelayURL != "http://relay:8080" {
		t.Errorf("RelayURL: got %q", cfg.RelayURL)
	}
	if cfg.DefaultModel != "mistral:7b" {
		t.Errorf("relay provider should take the relay model: got %q", cfg.DefaultModel)
	}
	if cfg.DefaultSystemPrompt != "be helpful" {
		t.Errorf("DefaultSystemPrompt: got %q", cfg.DefaultSystemPrompt)
	}
	if cfg.WorkspaceDirectory != "/srv/workspace" {
		t.Errorf("WorkspaceDirectory: got %q", cfg.WorkspaceDirectory)
	}
	if cfg.SearchResultLimit != 25 || cfg.MaxToolTurns != 5 {
		t.Errorf("limits: %d, %d", cfg.SearchResultLimit, cfg.MaxToolTurns)
	}
	if cfg.CredentialStore == nil || cfg.CredentialStore.GetMethod() != SecurityPlainText {
		t.Error("credential store should default to plaintext")
	}
}

func TestApplyUserConfigOllamaProviderModel(t *testing.T) {
	cfg := &Config{DefaultModel: "llama3.1:latest"}
	cfg.applyUserConfig(&UserConfig{
		DefaultProvider: "ollama",
		Ollama:          OllamaConfig{DefaultModel: "llama3.2:3b"},
		Relay:           RelayConfig{DefaultModel: "mistral:7b"},
	})
	if cfg.DefaultModel != "llama3.2:3b" {
		t.Errorf("ollama provider should take the ollama model: got %q", cfg.DefaultModel)
	}
}

func TestWorkspaceDirDefaultsUnderDataDir(t *testing.T) {
	cfg := &Config{DataDirectory: "/tmp/aster-data"}
	if got := cfg.WorkspaceDir(); got != filepath.Join("/tmp/aster-data", "workspace") {
		t.Errorf("WorkspaceDir: got %q", got)
	}

	cfg.WorkspaceDirectory = "/srv/files"
	if got := cfg.WorkspaceDir(); got != "/srv/files" {
		t.Errorf("explicit WorkspaceDir: got %q", got)
	}
}

func TestUserConfigRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	original := DefaultUserConfig()
	original.Relay.URL = "http://relay:8080"
	original.Relay.DefaultModel = "mistral:7b"
	original.DefaultSystemPrompt = "keep answers short"
	original.Tools.AllowedTools = []string{"read_file", "search_files"}
	original.Providers = []ProviderConfig{{ID: "openai", Enabled: true}}
	original.Security = SecurityConfig{Method: "ssh_key", SSHKeyPath: "~/.ssh/id_ed25519"}

	if err := SaveUserConfig(original, dataDir); err != nil {
		t.Fatalf("SaveUserConfig: %v", err)
	}

	loaded, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if loaded.Relay.URL != "http://relay:8080" || loaded.Relay.DefaultModel != "mistral:7b" {
		t.Errorf("relay: %+v", loaded.Relay)
	}
	if loaded.DefaultSystemPrompt != "keep answers short" {
		t.Errorf("system prompt: got %q", loaded.DefaultSystemPrompt)
	}
	if len(loaded.Tools.AllowedTools) != 2 {
		t.Errorf("allowed tools: %v", loaded.Tools.AllowedTools)
	}
	if len(loaded.Providers) != 1 || loaded.Providers[0].ID != "openai" {
		t.Errorf("providers: %+v", loaded.Providers)
	}
	if loaded.Security.Method != "ssh_key" {
		t.Errorf("security: %+v", loaded.Security)
	}
}

func TestLoadUserConfigCreatesDefault(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		t.Fatalf("LoadUserConfig: %v", err)
	}
	if cfg.DefaultProvider != "relay" {
		t.Errorf("default provider: got %q", cfg.DefaultProvider)
	}
	if !FileExists(filepath.Join(dataDir, "config.toml")) {
		t.Error("default config.toml should be written")
	}
}

func TestCredentialStorePlainTextRoundTrip(t *testing.T) {
	dataDir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("openai", "sk-test-123")
	store.Set("anthropic", "sk-ant-456")
	if err := store.Save(dataDir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewCredentialStore(SecurityPlainText, "")
	if err := reloaded.Load(dataDir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if reloaded.Get("openai") != "sk-test-123" || reloaded.Get("anthropic") != "sk-ant-456" {
		t.Errorf("credentials lost: openai=%q anthropic=%q", reloaded.Get("openai"), reloaded.Get("anthropic"))
	}

	reloaded.Delete("openai")
	if reloaded.Get("openai") != "" {
		t.Error("deleted credential should be empty")
	}
}

func TestCredentialStoreLoadMissingFile(t *testing.T) {
	store := NewCredentialStore(SecurityPlainText, "")
	if err := store.Load(t.TempDir()); err != nil {
		t.Fatalf("missing credentials file should not be an error: %v", err)
	}
	if store.Get("openai") != "" {
		t.Error("empty store should return empty credentials")
	}
}

func TestCredentialStoreUnknownMethod(t *testing.T) {
	store := NewCredentialStore(SecurityMethod("vault"), "")
	if err := store.Load(t.TempDir()); err == nil {
		t.Error("unknown method should fail")
	}
}

func TestCredentialFilePermissions(t *testing.T) {
	dataDir := t.TempDir()

	store := NewCredentialStore(SecurityPlainText, "")
	store.Set("openai", "sk-test")
	if err := store.Save(dataDir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(filepath.Join(dataDir, "credentials.toml"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions: got %04o, want 0600", perm)
	}
}

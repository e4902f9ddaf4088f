package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type RelayConfig struct {
	URL          string `toml:"url"`
	DefaultModel string `toml:"default_model"`
}

type OllamaConfig struct {
	Host         string `toml:"host"`
	DefaultModel string `toml:"default_model"`
}

type ToolsConfig struct {
	WorkspaceDirectory string   `toml:"workspace_directory"`
	RequireApproval    bool     `toml:"require_approval"`
	AllowedTools       []string `toml:"allowed_tools,omitempty"`
	SearchResultLimit  int      `toml:"search_result_limit"`
	MaxToolTurns       int      `toml:"max_tool_turns"`
}

// ProviderConfig describes one remote provider entry in the user config
type ProviderConfig struct {
	ID      string `toml:"id"`
	BaseURL string `toml:"base_url,omitempty"`
	Enabled bool   `toml:"enabled"`
}

// SecurityConfig selects how API credentials are stored on disk
type SecurityConfig struct {
	Method     string `toml:"method"` // "plaintext" or "ssh_key"
	SSHKeyPath string `toml:"ssh_key_path,omitempty"`
}

type UserConfig struct {
	Relay               RelayConfig      `toml:"relay"`
	Ollama              OllamaConfig     `toml:"ollama"`
	Tools               ToolsConfig      `toml:"tools"`
	Providers           []ProviderConfig `toml:"providers,omitempty"`
	Security            SecurityConfig   `toml:"security"`
	DefaultProvider     string           `toml:"default_provider"`
	DefaultSystemPrompt string           `toml:"default_system_prompt,omitempty"`
}

type Config struct {
	DataDirectory       string
	RelayURL            string
	OllamaHost          string
	DefaultProvider     string
	DefaultModel        string
	DefaultSystemPrompt string
	WorkspaceDirectory  string
	RequireApproval     bool
	AllowedTools        []string
	SearchResultLimit   int
	MaxToolTurns        int
	Providers           []ProviderConfig
	CredentialStore     *CredentialStore
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) BackendURL() string {
	return c.RelayURL
}

func (c *Config) Model() string {
	return c.DefaultModel
}

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// WorkspaceDir returns the expanded tool sandbox root. Every path the remote
// side supplies is re-rooted under this directory before any filesystem access.
func (c *Config) WorkspaceDir() string {
	if c.WorkspaceDirectory == "" {
		return filepath.Join(c.DataDir(), "workspace")
	}
	return ExpandPath(c.WorkspaceDirectory)
}

func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("ASTER_BACKEND_URL"); url != "" {
		c.RelayURL = url
	}
	if model := os.Getenv("ASTER_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if dataDir := os.Getenv("ASTER_DATA_DIR"); dataDir != "" {
		c.DataDirectory = dataDir
	}
}

func CheckDebug() bool {
	debug := os.Getenv("ASTER_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600 - the log may contain conversation fragments
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (ASTER_DEBUG=%s) ===", os.Getenv("ASTER_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

func HasAllEnvVars() bool {
	return os.Getenv("ASTER_BACKEND_URL") != "" &&
		os.Getenv("ASTER_MODEL") != "" &&
		os.Getenv("ASTER_DATA_DIR") != ""
}

func HasAnyEnvVar() bool {
	return os.Getenv("ASTER_BACKEND_URL") != "" ||
		os.Getenv("ASTER_MODEL") != "" ||
		os.Getenv("ASTER_DATA_DIR") != ""
}

func GetMissingEnvVar() string {
	if os.Getenv("ASTER_BACKEND_URL") == "" {
		return "ASTER_BACKEND_URL"
	}
	if os.Getenv("ASTER_MODEL") == "" {
		return "ASTER_MODEL"
	}
	if os.Getenv("ASTER_DATA_DIR") == "" {
		return "ASTER_DATA_DIR"
	}
	return ""
}

func (c *Config) applyUserConfig(userCfg *UserConfig) {
	if userCfg.Relay.URL != "" {
		c.RelayURL = userCfg.Relay.URL
	}
	if userCfg.Ollama.Host != "" {
		c.OllamaHost = userCfg.Ollama.Host
	}
	if userCfg.DefaultProvider != "" {
		c.DefaultProvider = userCfg.DefaultProvider
	}
	switch c.DefaultProvider {
	case "ollama":
		if userCfg.Ollama.DefaultModel != "" {
			c.DefaultModel = userCfg.Ollama.DefaultModel
		}
	default:
		if userCfg.Relay.DefaultModel != "" {
			c.DefaultModel = userCfg.Relay.DefaultModel
		}
	}
	c.DefaultSystemPrompt = userCfg.DefaultSystemPrompt
	if userCfg.Tools.WorkspaceDirectory != "" {
		c.WorkspaceDirectory = userCfg.Tools.WorkspaceDirectory
	}
	c.RequireApproval = userCfg.Tools.RequireApproval
	c.AllowedTools = userCfg.Tools.AllowedTools
	if userCfg.Tools.SearchResultLimit > 0 {
		c.SearchResultLimit = userCfg.Tools.SearchResultLimit
	}
	if userCfg.Tools.MaxToolTurns > 0 {
		c.MaxToolTurns = userCfg.Tools.MaxToolTurns
	}
	c.Providers = userCfg.Providers

	method := SecurityMethod(userCfg.Security.Method)
	if method == "" {
		method = SecurityPlainText
	}
	c.CredentialStore = NewCredentialStore(method, ExpandPath(userCfg.Security.SSHKeyPath))
}

func Load() (*Config, error) {
	cfg := &Config{
		DataDirectory:     "~/.local/share/aster",
		RelayURL:          "http://localhost:8080",
		OllamaHost:        "http://localhost:11434",
		DefaultProvider:   "relay",
		DefaultModel:      "llama3.1:latest",
		RequireApproval:   true,
		SearchResultLimit: 50,
		MaxToolTurns:      10,
	}

	settingsPath := GetSettingsFilePath()

	if FileExists(settingsPath) {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		cfg.DataDirectory = systemCfg.DataDirectory

		userCfg, err := LoadUserConfig(cfg.DataDir())
		if err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
		cfg.applyUserConfig(userCfg)
	} else if HasAllEnvVars() {
		cfg.applyEnvOverrides()
	} else {
		if err := CreateDefaultSystemConfig(); err != nil {
			return nil, fmt.Errorf("failed to create default system config: %w", err)
		}
		if err := CreateDefaultUserConfig(cfg.DataDir()); err != nil {
			return nil, fmt.Errorf("failed to create default user config: %w", err)
		}
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := os.MkdirAll(cfg.WorkspaceDir(), 0700); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	if cfg.CredentialStore == nil {
		cfg.CredentialStore = NewCredentialStore(SecurityPlainText, "")
	}
	if err := cfg.CredentialStore.Load(dataDir); err != nil {
		return cfg, fmt.Errorf("failed to load credentials: %w", err)
	}

	return cfg, nil
}

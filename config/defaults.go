package config

func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		DataDirectory: "~/.local/share/aster",
	}
}

func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Relay: RelayConfig{
			URL:          "http://localhost:8080",
			DefaultModel: "llama3.1:latest",
		},
		Ollama: OllamaConfig{
			Host:         "http://localhost:11434",
			DefaultModel: "llama3.1:latest",
		},
		Tools: ToolsConfig{
			RequireApproval:   true,
			SearchResultLimit: 50,
			MaxToolTurns:      10,
		},
		DefaultProvider: "relay",
	}
}

func GenerateSystemConfigTemplate() string {
	return `# Aster System Configuration
# Location: ~/.config/aster/settings.toml
# This file uses TOML format: https://toml.io

# Directory where conversations and user config are stored
data_directory = "~/.local/share/aster"
`
}

func GenerateUserConfigTemplate() string {
	return `# Aster User Configuration
# Location: <data_directory>/config.toml
# This file uses TOML format: https://toml.io

# Which provider new conversations use: "relay", "ollama", "openai", "anthropic"
default_provider = "relay"

# Default system prompt for new conversations (optional)
# Example: "You are a helpful coding assistant."
default_system_prompt = ""

[relay]
# Aster relay backend URL
url = "http://localhost:8080"

# Default model requested from the relay
default_model = "llama3.1:latest"

[ollama]
# Ollama server URL (used when default_provider = "ollama")
host = "http://localhost:11434"
default_model = "llama3.1:latest"

[tools]
# Sandbox root for model-requested file actions.
# Defaults to <data_directory>/workspace when empty.
workspace_directory = ""

# Ask before running a tool the model requested
require_approval = true

# Tools that never need approval, e.g. ["read_file"]
allowed_tools = []

# Cap on search_files results
search_result_limit = 50

# Cap on tool round-trips within a single turn
max_tool_turns = 10
`
}

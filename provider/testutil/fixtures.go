package testutil

import (
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aster/model"
)

// TestMessages returns a sample conversation for testing
func TestMessages() []model.Message {
	return []model.Message{
		{
			Role:      "user",
			Content:   "Hello, how are you?",
			Timestamp: time.Now(),
		},
		{
			Role:      "assistant",
			Content:   "I'm doing well, thank you!",
			Timestamp: time.Now(),
		},
		{
			Role:      "user",
			Content:   "Can you help me with a task?",
			Timestamp: time.Now(),
		},
	}
}

// SingleUserMessage returns a single user message for simple tests
func SingleUserMessage(content string) []model.Message {
	return []model.Message{
		{
			Role:      "user",
			Content:   content,
			Timestamp: time.Now(),
		},
	}
}

// TestMCPTools returns sample tool definitions for testing
func TestMCPTools() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        "read_file",
			Description: "Read the contents of a file inside the workspace",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Workspace-relative path of the file to read",
					},
				},
				Required: []string{"path"},
			},
		},
		{
			Name:        "search_files",
			Description: "Search for files in the workspace by fuzzy name match",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "The file name pattern to search for",
					},
				},
				Required: []string{"pattern"},
			},
		},
	}
}

// EmptyMessages returns an empty message slice for edge case testing
func EmptyMessages() []model.Message {
	return []model.Message{}
}

// SystemMessage returns a system message for testing
func SystemMessage(content string) model.Message {
	return model.Message{
		Role:      "system",
		Content:   content,
		Timestamp: time.Now(),
	}
}

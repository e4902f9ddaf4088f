// Package tools implements the client-side actions a model may request:
// reading, searching and creating files. Every action is confined to the
// configured workspace directory; paths supplied by the remote side are
// normalized and re-rooted before any filesystem access.
package tools

import (
	"context"
	"fmt"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Action names understood by the registry. Anything else is refused before
// it reaches the user.
const (
	ToolReadFile    = "read_file"
	ToolSearchFiles = "search_files"
	ToolCreateFile  = "create_file"
)

// Registry executes the supported actions inside one workspace root.
type Registry struct {
	root        string
	searchLimit int
}

// NewRegistry binds a registry to its sandbox root. The root must already
// exist; config.Load creates it.
func NewRegistry(workspaceDir string, searchLimit int) *Registry {
	if searchLimit <= 0 {
		searchLimit = 50
	}
	return &Registry{
		root:        workspaceDir,
		searchLimit: searchLimit,
	}
}

// Root returns the sandbox root directory.
func (r *Registry) Root() string {
	return r.root
}

// Definitions returns the MCP tool schemas advertised to providers.
func (r *Registry) Definitions() []mcptypes.Tool {
	return []mcptypes.Tool{
		{
			Name:        ToolReadFile,
			Description: "Read a text file from the user's workspace and return its content",
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
			Name:        ToolSearchFiles,
			Description: "Find files in the user's workspace whose names match a pattern",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"pattern": map[string]any{
						"type":        "string",
						"description": "Filename pattern to match, e.g. 'notes' or 'report.md'",
					},
				},
				Required: []string{"pattern"},
			},
		},
		{
			Name:        ToolCreateFile,
			Description: "Create a text file in the user's workspace, creating parent directories as needed",
			InputSchema: mcptypes.ToolInputSchema{
				Type: "object",
				Properties: map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Workspace-relative destination path",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Text content to write",
					},
				},
				Required: []string{"path", "content"},
			},
		},
	}
}

// Supports reports whether name is a known action.
func (r *Registry) Supports(name string) bool {
	switch name {
	case ToolReadFile, ToolSearchFiles, ToolCreateFile:
		return true
	default:
		return false
	}
}

// Execute runs one action and returns its text result. Filesystem failures
// come back as errors for the gate to fold into a correlated error result;
// a missing file on read is a normal result, not a failure.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch name {
	case ToolReadFile:
		return r.readFile(args)
	case ToolSearchFiles:
		return r.searchFiles(args)
	case ToolCreateFile:
		return r.createFile(args)
	default:
		return "", fmt.Errorf("unsupported tool: %s", name)
	}
}

// Call is the MCP-shaped entry point used by the direct provider path.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (*mcptypes.CallToolResult, error) {
	content, err := r.Execute(ctx, name, args)
	if err != nil {
		return mcptypes.NewToolResultError(err.Error()), nil
	}
	return mcptypes.NewToolResultText(content), nil
}

// stringArg extracts a required string argument.
func stringArg(args map[string]any, key string) (string, error) {
	val, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	s, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", key)
	}
	return s, nil
}

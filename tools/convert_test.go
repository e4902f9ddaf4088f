package tools

import (
	"testing"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

func sampleTool() mcptypes.Tool {
	return mcptypes.Tool{
		Name:        "read_file",
		Description: "Read a file",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Workspace-relative path",
				},
			},
			Required: []string{"path"},
		},
	}
}

func TestConvertToRelayDefs(t *testing.T) {
	if got := ConvertToRelayDefs(nil); got != nil {
		t.Errorf("nil input: got %v", got)
	}

	defs := ConvertToRelayDefs([]mcptypes.Tool{sampleTool()})
	if len(defs) != 1 {
		t.Fatalf("defs: got %d", len(defs))
	}
	def := defs[0]
	if def.Name != "read_file" || def.Description != "Read a file" {
		t.Errorf("envelope: %+v", def)
	}
	if def.Parameters["type"] != "object" {
		t.Errorf("schema type: got %v", def.Parameters["type"])
	}
	required, ok := def.Parameters["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "path" {
		t.Errorf("required: got %v", def.Parameters["required"])
	}
	props, ok := def.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatalf("properties: got %T", def.Parameters["properties"])
	}
	if _, ok := props["path"]; !ok {
		t.Error("path property missing")
	}
}

func TestConvertToRelayDefsOmitsEmptyRequired(t *testing.T) {
	tool := sampleTool()
	tool.InputSchema.Required = nil

	defs := ConvertToRelayDefs([]mcptypes.Tool{tool})
	if _, ok := defs[0].Parameters["required"]; ok {
		t.Error("empty required should be omitted")
	}
}

func TestConvertToOllama(t *testing.T) {
	ollamaTools := ConvertToOllama([]mcptypes.Tool{sampleTool()})
	if len(ollamaTools) != 1 {
		t.Fatalf("tools: got %d", len(ollamaTools))
	}

	fn := ollamaTools[0].Function
	if ollamaTools[0].Type != "function" {
		t.Errorf("type: got %q", ollamaTools[0].Type)
	}
	if fn.Name != "read_file" {
		t.Errorf("name: got %q", fn.Name)
	}
	if fn.Parameters.Type != "object" {
		t.Errorf("parameters type: got %q", fn.Parameters.Type)
	}

	pathProp, ok := fn.Parameters.Properties["path"]
	if !ok {
		t.Fatal("path property missing")
	}
	if len(pathProp.Type) != 1 || pathProp.Type[0] != "string" {
		t.Errorf("path type: got %v", pathProp.Type)
	}
	if pathProp.Description != "Workspace-relative path" {
		t.Errorf("path description: got %q", pathProp.Description)
	}
}

func TestConvertToOllamaEnumAndTypeList(t *testing.T) {
	tool := mcptypes.Tool{
		Name: "pick",
		InputSchema: mcptypes.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"mode": map[string]any{
					"type": []any{"string", "null"},
					"enum": []any{"fast", "thorough"},
				},
			},
		},
	}

	converted := ConvertToOllama([]mcptypes.Tool{tool})
	prop := converted[0].Function.Parameters.Properties["mode"]
	if len(prop.Type) != 2 {
		t.Errorf("type list: got %v", prop.Type)
	}
	if len(prop.Enum) != 2 {
		t.Errorf("enum: got %v", prop.Enum)
	}
}

func TestConvertToOpenAI(t *testing.T) {
	if got := ConvertToOpenAI(nil); got != nil {
		t.Errorf("nil input: got %v", got)
	}

	converted := ConvertToOpenAI([]mcptypes.Tool{sampleTool()})
	if len(converted) != 1 {
		t.Fatalf("tools: got %d", len(converted))
	}
	fn := converted[0].OfFunction
	if fn == nil {
		t.Fatal("expected function tool")
	}
	if fn.Function.Name != "read_file" {
		t.Errorf("name: got %q", fn.Function.Name)
	}
	if fn.Function.Parameters["type"] != "object" {
		t.Errorf("schema type: got %v", fn.Function.Parameters["type"])
	}
}

func TestConvertToAnthropic(t *testing.T) {
	if got := ConvertToAnthropic(nil); got != nil {
		t.Errorf("nil input: got %v", got)
	}

	converted := ConvertToAnthropic([]mcptypes.Tool{sampleTool()})
	if len(converted) != 1 {
		t.Fatalf("tools: got %d", len(converted))
	}
	tool := converted[0].OfTool
	if tool == nil {
		t.Fatal("expected tool param")
	}
	if tool.Name != "read_file" {
		t.Errorf("name: got %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 1 {
		t.Errorf("required: got %v", tool.InputSchema.Required)
	}
}

func TestResultText(t *testing.T) {
	if got := ResultText(nil); got != "" {
		t.Errorf("nil result: got %q", got)
	}

	single := mcptypes.NewToolResultText("file contents")
	if got := ResultText(single); got != "file contents" {
		t.Errorf("single: got %q", got)
	}

	multi := &mcptypes.CallToolResult{
		Content: []mcptypes.Content{
			mcptypes.TextContent{Type: "text", Text: "line one"},
			mcptypes.TextContent{Type: "text", Text: "line two"},
		},
	}
	if got := ResultText(multi); got != "line one\nline two" {
		t.Errorf("multi: got %q", got)
	}
}

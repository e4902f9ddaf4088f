package provider

import (
	"testing"
)

func TestParseLeakedJSONToolCalls(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantCalls int
		wantName  string
	}{
		{
			name:      "no leak",
			content:   "Here is a normal answer about files.",
			wantCalls: 0,
		},
		{
			name:      "single object with arguments",
			content:   `I'll read that. {"name": "read_file", "arguments": {"path": "notes.md"}}`,
			wantCalls: 1,
			wantName:  "read_file",
		},
		{
			name:      "object with param key",
			content:   `{"name": "search_files", "param": {"pattern": "report"}}`,
			wantCalls: 1,
			wantName:  "search_files",
		},
		{
			name:      "array of calls",
			content:   `[{"name": "read_file", "arguments": {"path": "a.txt"}}]`,
			wantCalls: 1,
			wantName:  "read_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := ParseLeakedJSONToolCalls(tt.content)
			if len(calls) != tt.wantCalls {
				t.Fatalf("calls: got %d, want %d (%+v)", len(calls), tt.wantCalls, calls)
			}
			if tt.wantCalls > 0 {
				if calls[0].Name != tt.wantName {
					t.Errorf("name: got %q, want %q", calls[0].Name, tt.wantName)
				}
				if calls[0].ID == "" {
					t.Error("leaked call should get a generated ID")
				}
			}
		})
	}
}

func TestParseLeakedJSONToolCallsArguments(t *testing.T) {
	calls := ParseLeakedJSONToolCalls(`{"name": "read_file", "arguments": {"path": "docs/readme.md"}}`)
	if len(calls) != 1 {
		t.Fatalf("calls: got %d", len(calls))
	}
	if calls[0].Arguments["path"] != "docs/readme.md" {
		t.Errorf("arguments: %v", calls[0].Arguments)
	}
}

func TestParseLeakedXMLToolCalls(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantCalls int
		wantName  string
	}{
		{
			name:      "no leak",
			content:   "Plain prose with <b>markup</b> only.",
			wantCalls: 0,
		},
		{
			name:      "tool_call envelope",
			content:   `<tool_call><name>read_file</name><arguments>{"path":"a.txt"}</arguments></tool_call>`,
			wantCalls: 1,
			wantName:  "read_file",
		},
		{
			name:      "function_call envelope",
			content:   `<function_call><name>search_files</name><arguments>{"pattern":"x"}</arguments></function_call>`,
			wantCalls: 1,
			wantName:  "search_files",
		},
		{
			name:      "qwen function markup",
			content:   `<function=create_file><parameter=path>out.txt</parameter><parameter=content>hello</parameter></function>`,
			wantCalls: 1,
			wantName:  "create_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := ParseLeakedXMLToolCalls(tt.content)
			if len(calls) != tt.wantCalls {
				t.Fatalf("calls: got %d, want %d (%+v)", len(calls), tt.wantCalls, calls)
			}
			if tt.wantCalls > 0 && calls[0].Name != tt.wantName {
				t.Errorf("name: got %q, want %q", calls[0].Name, tt.wantName)
			}
		})
	}
}

func TestParseLeakedQwenParameters(t *testing.T) {
	calls := ParseLeakedXMLToolCalls(`<function=create_file><parameter=path>out.txt</parameter><parameter=content>multi
line</parameter></function>`)
	if len(calls) != 1 {
		t.Fatalf("calls: got %d", len(calls))
	}
	if calls[0].Arguments["path"] != "out.txt" {
		t.Errorf("path: got %v", calls[0].Arguments["path"])
	}
	if calls[0].Arguments["content"] != "multi\nline" {
		t.Errorf("content: got %v", calls[0].Arguments["content"])
	}
}

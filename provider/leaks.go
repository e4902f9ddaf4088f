package provider

import (
	"encoding/json"
	"regexp"

	"github.com/google/uuid"

	"aster/model"
)

// Some models emit tool calls as literal JSON or XML in the content stream
// instead of using the tool-call API. These parsers recover such leaked
// calls so they can still be routed through the tool gate.

var (
	leakedJSONArrayRegex = regexp.MustCompile(`\[\s*\{\s*"name"\s*:\s*"[^"]+"\s*,\s*"(?:arguments|param|parameters|input)"\s*:\s*\{[^}]*\}\s*\}\s*\]`)
	leakedJSONObjRegex   = regexp.MustCompile(`\{\s*"name"\s*:\s*"([^"]+)"\s*,\s*"(?:arguments|param|parameters|input)"\s*:\s*(\{[^}]*\})\s*\}`)

	leakedXMLRegex = regexp.MustCompile(`<(?:tool_call|function_call)>\s*<name>([^<]+)</name>\s*<arguments>([^<]*)</arguments>\s*</(?:tool_call|function_call)>`)

	// qwen3-coder style: <function=NAME><parameter=PARAM>VALUE</parameter></function>
	leakedQwenFuncRegex  = regexp.MustCompile(`(?s)<function=([^>]+)>(.*?)</function>`)
	leakedQwenParamRegex = regexp.MustCompile(`(?s)<parameter=([^>]+)>(.*?)</parameter>`)
)

// ParseLeakedJSONToolCalls extracts tool calls leaked as JSON objects or
// arrays in assistant content. Returns nil if none are found.
func ParseLeakedJSONToolCalls(content string) []model.ToolCall {
	var calls []model.ToolCall

	// Arrays first so their members aren't double-counted by the object pass
	for _, match := range leakedJSONArrayRegex.FindAllString(content, -1) {
		var entries []struct {
			Name       string         `json:"name"`
			Arguments  map[string]any `json:"arguments"`
			Param      map[string]any `json:"param"`
			Parameters map[string]any `json:"parameters"`
			Input      map[string]any `json:"input"`
		}
		if err := json.Unmarshal([]byte(match), &entries); err != nil {
			continue
		}
		for _, entry := range entries {
			args := entry.Arguments
			if args == nil {
				args = entry.Param
			}
			if args == nil {
				args = entry.Parameters
			}
			if args == nil {
				args = entry.Input
			}
			if entry.Name == "" {
				continue
			}
			calls = append(calls, model.ToolCall{
				ID:        uuid.New().String(),
				Name:      entry.Name,
				Arguments: args,
			})
		}
		content = leakedJSONArrayRegex.ReplaceAllString(content, "")
	}

	for _, match := range leakedJSONObjRegex.FindAllStringSubmatch(content, -1) {
		name := match[1]
		var args map[string]any
		if err := json.Unmarshal([]byte(match[2]), &args); err != nil {
			args = make(map[string]any)
		}
		calls = append(calls, model.ToolCall{
			ID:        uuid.New().String(),
			Name:      name,
			Arguments: args,
		})
	}

	return calls
}

// ParseLeakedXMLToolCalls extracts tool calls leaked as XML in assistant
// content, covering both <tool_call> envelopes and qwen-style
// <function=...> markup. Returns nil if none are found.
func ParseLeakedXMLToolCalls(content string) []model.ToolCall {
	var calls []model.ToolCall

	for _, match := range leakedXMLRegex.FindAllStringSubmatch(content, -1) {
		name := match[1]
		var args map[string]any
		if err := json.Unmarshal([]byte(match[2]), &args); err != nil {
			args = make(map[string]any)
		}
		calls = append(calls, model.ToolCall{
			ID:        uuid.New().String(),
			Name:      name,
			Arguments: args,
		})
	}

	for _, match := range leakedQwenFuncRegex.FindAllStringSubmatch(content, -1) {
		name := match[1]
		args := make(map[string]any)
		for _, param := range leakedQwenParamRegex.FindAllStringSubmatch(match[2], -1) {
			args[param[1]] = param[2]
		}
		calls = append(calls, model.ToolCall{
			ID:        uuid.New().String(),
			Name:      name,
			Arguments: args,
		})
	}

	return calls
}

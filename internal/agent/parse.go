package agent

import (
	"encoding/json"
	"regexp"
	"strings"
)

// toolRequest is the envelope the model uses to invoke a tool.
type toolRequest struct {
	ToolName  string         `json:"tool_name"`
	Arguments map[string]any `json:"arguments"`
}

type toolEnvelope struct {
	ToolRequest *toolRequest `json:"tool_request"`
	Reason      string       `json:"reason"`
}

// Models wrap the envelope either in a fenced code block or emit bare
// JSON objects inline; both forms are accepted.
var jsonObjectRe = regexp.MustCompile(`\{(?:[^{}]|\{(?:[^{}]|\{[^{}]*\})*\})*\}`)

// isToolRequest reports whether the reply looks like a tool invocation.
func isToolRequest(response string) bool {
	if strings.Contains(strings.ToLower(response), "```json") {
		return true
	}
	return strings.Contains(response, "tool_request") &&
		strings.Contains(response, "{") &&
		strings.Contains(response, "}")
}

// parseToolRequests extracts every tool invocation from a model reply.
func parseToolRequests(response string) []toolRequest {
	var out []toolRequest

	for _, block := range fencedJSONBlocks(response) {
		if req, ok := decodeEnvelope(block); ok {
			out = append(out, req)
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, match := range jsonObjectRe.FindAllString(response, -1) {
		if req, ok := decodeEnvelope(match); ok {
			out = append(out, req)
		}
	}
	return out
}

func decodeEnvelope(raw string) (toolRequest, bool) {
	var env toolEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.ToolRequest == nil || env.ToolRequest.ToolName == "" {
		return toolRequest{}, false
	}
	if env.ToolRequest.Arguments == nil {
		env.ToolRequest.Arguments = map[string]any{}
	}
	return *env.ToolRequest, true
}

func fencedJSONBlocks(response string) []string {
	var blocks []string
	var current strings.Builder
	inBlock := false

	for _, line := range strings.Split(response, "\n") {
		switch {
		case strings.Contains(strings.ToLower(line), "```json"):
			inBlock = true
			current.Reset()
		case inBlock && strings.Contains(line, "```"):
			inBlock = false
			if s := strings.TrimSpace(current.String()); s != "" {
				blocks = append(blocks, s)
			}
		case inBlock:
			current.WriteString(line)
			current.WriteString("\n")
		}
	}
	return blocks
}

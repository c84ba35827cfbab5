package tool

import (
	"bytes"
	"encoding/json"

	"github.com/viant/mcp-protocol/schema"
)

// DefaultTextLimit caps text rendered into a tool result.
const DefaultTextLimit = 20000

const truncatedSuffix = "\n... (truncated)"

// TextResult returns a single text content result.
func TextResult(text string) *schema.CallToolResult {
	return &schema.CallToolResult{
		Content: []schema.CallToolResultContentElem{schema.TextContent{Type: "text", Text: text}},
	}
}

// ErrorResult returns a tool level error result.
func ErrorResult(text string) *schema.CallToolResult {
	ret := TextResult(text)
	isError := true
	ret.IsError = &isError
	return ret
}

// JSONResult renders data as indented JSON text truncated to limit; JSON objects
// are also returned as structured content.
func JSONResult(data []byte, limit int) *schema.CallToolResult {
	if limit <= 0 {
		limit = DefaultTextLimit
	}
	text := string(data)
	indented := bytes.Buffer{}
	if err := json.Indent(&indented, data, "", "  "); err == nil {
		text = indented.String()
	}
	ret := TextResult(Truncate(text, limit))
	structured := map[string]interface{}{}
	if err := json.Unmarshal(data, &structured); err == nil {
		ret.StructuredContent = structured
	}
	return ret
}

// Truncate shortens text to limit runes, marking the cut.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + truncatedSuffix
}

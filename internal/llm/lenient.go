package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeObjectLenient parses raw model text as JSON. Models wrap output in
// prose often enough that a direct parse failure is retried on the substring
// between the first '{' and the last '}' before giving up.
func DecodeObjectLenient(raw []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if json.Valid(trimmed) {
		return json.RawMessage(trimmed), nil
	}

	start := bytes.IndexByte(trimmed, '{')
	end := bytes.LastIndexByte(trimmed, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output (%d bytes)", len(raw))
	}
	candidate := trimmed[start : end+1]
	if !json.Valid(candidate) {
		return nil, fmt.Errorf("brace-extracted candidate is not valid JSON (%d bytes)", len(candidate))
	}
	return json.RawMessage(candidate), nil
}

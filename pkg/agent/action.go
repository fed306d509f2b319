package agent

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/m-mizutani/bumprisk/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

var (
	// ErrNoActionBlob means the model turn contained no JSON object at all
	ErrNoActionBlob = goerr.New("no JSON action blob found")
	// ErrMissingAction means the JSON blob has no "action" key
	ErrMissingAction = goerr.New(`action blob has no "action" key`)
)

type actionBlob struct {
	Action      *string         `json:"action"`
	ActionInput json.RawMessage `json:"action_input"`
}

// ParseOutcome interprets one model turn. It never fails: text that does not follow
// the action protocol becomes a model.ParseError.
func ParseOutcome(text string) model.Outcome {
	candidates := blobCandidates(text)
	if len(candidates) == 0 {
		return model.ParseError{Raw: text, Err: ErrNoActionBlob}
	}

	var action actionBlob
	var parseErr error
	for _, blob := range candidates {
		action = actionBlob{}
		if parseErr = json.Unmarshal([]byte(blob), &action); parseErr == nil {
			break
		}
	}
	if parseErr != nil {
		return model.ParseError{Raw: text, Err: goerr.Wrap(parseErr, "action blob is not valid JSON")}
	}
	if action.Action == nil || strings.TrimSpace(*action.Action) == "" {
		return model.ParseError{Raw: text, Err: ErrMissingAction}
	}

	name := strings.TrimSpace(*action.Action)
	if name == model.FinalAnswerAction {
		return model.FinalAnswer{Output: finalOutput(action.ActionInput), Raw: text}
	}

	return model.ActionRequest{Tool: name, Input: action.ActionInput, Raw: text}
}

// finalOutput unwraps a string payload; structured payloads are kept as JSON text
func finalOutput(input json.RawMessage) string {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return StripFence(s)
	}
	return string(trimmed)
}

// blobCandidates returns the first fenced block and the outermost {...} span of text
func blobCandidates(text string) []string {
	var candidates []string
	if fenced := fencedBlock(text); strings.HasPrefix(fenced, "{") {
		candidates = append(candidates, fenced)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}
	return candidates
}

func fencedBlock(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return ""
	}
	rest := text[start+3:]
	// skip the info string, e.g. ```json
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[nl+1:]
	} else {
		return ""
	}
	end := strings.Index(rest, "```")
	if end < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:end])
}

// StripFence removes a surrounding markdown code fence from s
func StripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if strings.HasSuffix(trimmed, "```") {
		if fenced := fencedBlock(trimmed); fenced != "" {
			return fenced
		}
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// InputString reads a tool input as text. A JSON string is unquoted; an object is searched
// for the first string field among keys, then for a sole string field; anything else is
// returned as compact JSON.
func InputString(input json.RawMessage, keys ...string) string {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		for _, key := range keys {
			if raw, ok := obj[key]; ok {
				if err := json.Unmarshal(raw, &s); err == nil {
					return s
				}
			}
		}
		if len(obj) == 1 {
			for _, raw := range obj {
				if err := json.Unmarshal(raw, &s); err == nil {
					return s
				}
			}
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err == nil {
		return buf.String()
	}
	return string(trimmed)
}

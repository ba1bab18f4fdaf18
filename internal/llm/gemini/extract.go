package gemini

import (
	"encoding/json"
	"strings"
)

// The reply shape differs between API versions and SDK surfaces, so text
// extraction is an ordered chain of named strategies instead of one decode.
type textStrategy struct {
	name string
	fn   func(reply map[string]any) (string, bool)
}

var textStrategies = []textStrategy{
	{"direct_text", directText},
	{"candidate_parts", candidateParts},
	{"first_candidate", firstCandidate},
	{"whole_reply", wholeReply},
}

// ExtractReplyText reduces a generateContent reply body to plain text. Each
// strategy is tried in order; the first non-blank result wins. Returns ""
// when nothing yields text.
func ExtractReplyText(raw []byte) string {
	var reply map[string]any
	if err := json.Unmarshal(raw, &reply); err != nil {
		return strings.TrimSpace(string(raw))
	}
	for _, s := range textStrategies {
		if text, ok := s.fn(reply); ok {
			if trimmed := strings.TrimSpace(text); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func directText(reply map[string]any) (string, bool) {
	text, ok := reply["text"].(string)
	return text, ok
}

func candidateParts(reply map[string]any) (string, bool) {
	cand, ok := firstCandidateValue(reply)
	if !ok {
		return "", false
	}
	candMap, ok := cand.(map[string]any)
	if !ok {
		return "", false
	}
	contentMap, ok := candMap["content"].(map[string]any)
	if !ok {
		return "", false
	}
	parts, ok := contentMap["parts"].([]any)
	if !ok || len(parts) == 0 {
		return "", false
	}
	var b strings.Builder
	for _, p := range parts {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if t, ok := pm["text"].(string); ok {
			b.WriteString(t)
		}
	}
	return b.String(), b.Len() > 0
}

func firstCandidate(reply map[string]any) (string, bool) {
	cand, ok := firstCandidateValue(reply)
	if !ok {
		return "", false
	}
	return stringify(cand)
}

func wholeReply(reply map[string]any) (string, bool) {
	if len(reply) == 0 {
		return "", false
	}
	return stringify(reply)
}

func firstCandidateValue(reply map[string]any) (any, bool) {
	cands, ok := reply["candidates"].([]any)
	if !ok || len(cands) == 0 {
		return nil, false
	}
	return cands[0], true
}

func stringify(v any) (string, bool) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

package llm

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/iancoleman/orderedmap"
)

var (
	reFenced        = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")
	reTrailingComma = regexp.MustCompile(`,\s*}`)
)

// ExtractJSON recovers a JSON value from loosely structured model output.
// Stages, first success wins:
//  1. parse the whole text as JSON
//  2. parse the inside of a ``` / ```json fenced block
//  3. parse the slice from the first '{' to the last '}' (or '[' .. ']'
//     when no object is present)
//
// Stages 2 and 3 strip a trailing comma right before a closing brace first.
// Top-level objects decode into an insertion-ordered map so the reply's key
// order survives serialization. Returns (nil, false) when every stage fails.
//
// This is a heuristic, not a bracket matcher: text with stray braces outside
// the real JSON body can mis-extract.
func ExtractJSON(text string) (any, bool) {
	if v, ok := parseValue(text); ok {
		return v, true
	}

	if m := reFenced.FindStringSubmatch(text); m != nil {
		snippet := repairTrailingComma(strings.TrimSpace(m[1]))
		if v, ok := parseValue(snippet); ok {
			return v, true
		}
	}

	if candidate := bracketSlice(text); candidate != "" {
		if v, ok := parseValue(repairTrailingComma(candidate)); ok {
			return v, true
		}
	}

	return nil, false
}

// parseValue parses s as JSON, keeping object key order for objects.
func parseValue(s string) (any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	if strings.HasPrefix(s, "{") {
		om := orderedmap.New()
		if err := json.Unmarshal([]byte(s), om); err != nil {
			return nil, false
		}
		return om, true
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return v, true
}

// bracketSlice returns the substring spanning the first opening and last
// closing bracket, preferring the object form over the array form.
func bracketSlice(text string) string {
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start != -1 && end > start {
		return text[start : end+1]
	}
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start != -1 && end > start {
		return text[start : end+1]
	}
	return ""
}

func repairTrailingComma(s string) string {
	return reTrailingComma.ReplaceAllString(s, "}")
}

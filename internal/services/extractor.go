package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const maxExcerptLen = 500

// ParseError reports that a completion could not be recovered as the required
// structured object. It carries a bounded excerpt of the raw text for
// diagnostics.
type ParseError struct {
	Reason  string
	Excerpt string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse structured response: %s", e.Reason)
}

var (
	fenceOpen     = regexp.MustCompile("(?i)^```[a-z]*[ \t]*\r?\n?")
	fenceClose    = regexp.MustCompile("(?s)\r?\n?```\\s*$")
	trailingComma = regexp.MustCompile(`,(\s*[}\]])`)
)

// stripCodeFences removes markdown code block markers, optionally
// language-tagged, from both ends of the text.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)
	content = fenceOpen.ReplaceAllString(content, "")
	content = fenceClose.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

func excerpt(raw string) string {
	runes := []rune(raw)
	if len(runes) > maxExcerptLen {
		return string(runes[:maxExcerptLen])
	}
	return raw
}

// ExtractStructured recovers a JSON object from free-form model output.
// It strips code fences, narrows to the first '{' .. last '}' span, parses,
// and applies one trailing-comma repair pass before giving up. A syntactically
// valid object missing any of the required top-level keys is reported as a
// parse failure: a semantically incomplete object never flows downstream.
func ExtractStructured(raw string, requiredKeys []string) (map[string]any, error) {
	cleaned := stripCodeFences(raw)

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end == -1 || end < start {
		return nil, &ParseError{Reason: "no braces found", Excerpt: excerpt(raw)}
	}
	candidate := cleaned[start : end+1]

	obj, err := parseObject(candidate)
	if err != nil {
		repaired := trailingComma.ReplaceAllString(candidate, "$1")
		obj, err = parseObject(repaired)
		if err != nil {
			return nil, &ParseError{Reason: err.Error(), Excerpt: excerpt(raw)}
		}
	}

	for _, key := range requiredKeys {
		if _, ok := obj[key]; !ok {
			return nil, &ParseError{
				Reason:  fmt.Sprintf("missing required key %q", key),
				Excerpt: excerpt(raw),
			}
		}
	}
	return obj, nil
}

func parseObject(candidate string) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, fmt.Errorf("null object")
	}
	return obj, nil
}

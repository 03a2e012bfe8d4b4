package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/glossa/pkg/core"
)

var errNoJSON = errors.New("response contains no JSON")

// extractJSON returns the JSON document embedded in a model response,
// dropping markdown code fences and any prose around it.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, "```"); i >= 0 {
		rest := text[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		text = strings.TrimSpace(rest)
	}

	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", errNoJSON
	}
	closer := byte('}')
	if text[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(text, closer)
	if end < start {
		return "", errNoJSON
	}
	return text[start : end+1], nil
}

// BuildCorpus joins the notes as "title: content" paragraphs and truncates
// the tail so the result holds at most limit characters.
func BuildCorpus(notes []core.Note, limit int) string {
	var b strings.Builder
	for _, n := range notes {
		title, content := strings.TrimSpace(n.Title), strings.TrimSpace(n.Content)
		if title == "" && content == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(title)
		b.WriteString(": ")
		b.WriteString(content)
	}
	return truncateRunes(b.String(), limit)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}

// decodeList decodes a JSON array found in text. An object wrapping the
// array under key is accepted as well.
func decodeList[T any](text, key string) ([]T, error) {
	body, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(body, "[") {
		var list []T
		if err := json.Unmarshal([]byte(body), &list); err != nil {
			return nil, fmt.Errorf("malformed JSON: %w", err)
		}
		return list, nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &wrapped); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	raw, ok := wrapped[key]
	if !ok {
		return nil, fmt.Errorf("no %q list in response", key)
	}
	var list []T
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	return list, nil
}

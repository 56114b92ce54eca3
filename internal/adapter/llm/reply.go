package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"supportkb/internal/domain"
)

var errNotObject = errors.New("reply is not a JSON object")

var (
	fenceOpen  = regexp.MustCompile("^```[a-zA-Z]*[ \t]*\\n?")
	fenceClose = regexp.MustCompile("\\n?```$")
)

// DecodeJSONReply decodes a model reply into v in at most two attempts:
// the raw text, then the text with a surrounding fenced code block removed.
// Only a JSON object is accepted. A reply that fails both yields a malformed
// JudgmentError.
func DecodeJSONReply(raw string, v any) error {
	firstErr := decodeObject(raw, v)
	if firstErr == nil {
		return nil
	}

	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return domain.NewJudgmentError(domain.ReasonMalformed, fmt.Errorf("decode reply: %w", firstErr))
	}

	cleaned := fenceOpen.ReplaceAllString(trimmed, "")
	cleaned = strings.TrimSpace(fenceClose.ReplaceAllString(cleaned, ""))

	if err := decodeObject(cleaned, v); err != nil {
		return domain.NewJudgmentError(domain.ReasonMalformed, fmt.Errorf("decode fenced reply: %w", err))
	}
	return nil
}

func decodeObject(text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return errNotObject
	}
	return json.Unmarshal([]byte(trimmed), v)
}

package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/mitchellh/mapstructure"
)

// CleanJSONBlock strips Markdown code fences and any chatty text around the
// first JSON object or array in an LLM reply.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip a language identifier such as "json" on the fence line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := strings.TrimSpace(text[:idx])
			if len(firstLine) < 20 && !strings.ContainsAny(firstLine, " {[") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	objStart := strings.Index(text, "{")
	arrStart := strings.Index(text, "[")
	switch {
	case objStart < 0 && arrStart < 0:
		return text
	case arrStart < 0 || (objStart >= 0 && objStart < arrStart):
		if obj := extractJSONObject(text[objStart:]); obj != "" {
			return obj
		}
	default:
		if arr := extractJSONArray(text[arrStart:]); arr != "" {
			return arr
		}
	}
	return text
}

// extractJSONObject returns the balanced object at the start of s.
func extractJSONObject(s string) string {
	return extractBalanced(s, '{', '}')
}

// extractJSONArray returns the balanced array at the start of s.
func extractJSONArray(s string) string {
	return extractBalanced(s, '[', ']')
}

func extractBalanced(s string, open, close byte) string {
	if s == "" || s[0] != open {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[:i+1]
			}
		}
	}
	return ""
}

// ParseJSON parses an LLM reply into a JSON object, tolerating code fences
// and surrounding prose.
func ParseJSON(text string) (map[string]any, error) {
	cleaned := CleanJSONBlock(text)
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return obj, nil
}

// DecodeJSON parses text with ParseJSON and decodes it into dst using the
// struct's json tags. Scalars are coerced, so "85" decodes into an int field.
func DecodeJSON(text string, dst any) error {
	obj, err := ParseJSON(text)
	if err != nil {
		return err
	}
	return DecodeMap(obj, dst)
}

// DecodeMap decodes an already parsed object into dst.
func DecodeMap(obj map[string]any, dst any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to build decoder: %w", err)
	}
	if err := decoder.Decode(obj); err != nil {
		return fmt.Errorf("failed to decode JSON response: %w", err)
	}
	return nil
}

// SnakeKeys rewrites camelCase top-level keys (jobTitle) to snake_case
// (job_title). Models occasionally ignore the requested key style.
func SnakeKeys(obj map[string]any) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[toSnake(k)] = v
	}
	return out
}

func toSnake(s string) string {
	var sb strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

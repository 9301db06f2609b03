package llm

import "strings"

// ExtractJSON pulls the first complete JSON object out of model output.
// Models wrap answers in markdown fences or pad them with prose no matter
// how firmly the prompt forbids it, so the extractor scans for a balanced
// object instead of trusting the whole reply. Returns nil when no complete
// object is present.
func ExtractJSON(text string) []byte {
	cleaned := stripFences(text)

	start := strings.IndexByte(cleaned, '{')
	if start < 0 {
		return nil
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(cleaned); i++ {
		ch := cleaned[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return []byte(cleaned[start : i+1])
			}
		}
	}

	return nil
}

func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)

	idx := strings.Index(trimmed, "```")
	if idx < 0 {
		return trimmed
	}

	rest := trimmed[idx+3:]
	rest = strings.TrimPrefix(rest, "json")
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}

	return strings.TrimSpace(rest)
}

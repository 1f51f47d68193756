package usecase

import "strings"

// extractJSONArray pulls the first balanced top-level JSON array out of
// model output. Models routinely wrap the array in markdown fences or
// surrounding prose; a plain json.Unmarshal on the raw response would choke
// on both. Returns "" when no balanced array exists.
func extractJSONArray(response string) string {
	response = stripMarkdownFences(response)

	start := strings.IndexByte(response, '[')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
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
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}

func stripMarkdownFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	parts := strings.Split(s, "```")
	// Fenced block content sits at the odd indices; the first such part
	// usually holds the payload, minus an optional language tag.
	for i := 1; i < len(parts); i += 2 {
		part := strings.TrimSpace(parts[i])
		part = strings.TrimPrefix(part, "json")
		part = strings.TrimSpace(part)
		if strings.Contains(part, "[") {
			return part
		}
	}
	return s
}

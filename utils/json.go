package utils

import "strings"

// CleanModelOutput strips the markdown code fences models like to wrap
// around JSON answers
func CleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// BraceBalanced reports whether text contains a JSON object whose braces all
// close. It is a cheap gate before a full parse: unbalanced text is certainly
// incomplete. Braces inside string literals do not count, so a value like
// "avoid the } character" cannot fool the gate either way.
func BraceBalanced(text string) bool {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
			}
		}
	}
	return depth == 0 && !inString
}

// ExtractJSON returns the first top-level JSON object embedded in text.
// Models frequently prefix the object with prose ("Analyzing grammar..."),
// so scanning starts at the first '{' and tracks brace depth, honoring
// string literals and escapes.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

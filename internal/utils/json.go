// Package utils provides small shared helpers: LLM response JSON
// recovery and text utilities.
package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Pre-compiled regexes for JSON repair (compiled once, used many times).
var (
	// Fix trailing commas before closing brace/bracket
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)

	// Fix single quotes for object keys: {'key': -> {"key":
	singleQuoteKeyRegex = regexp.MustCompile(`([{,]\s*)'(\w+)'(\s*:)`)

	// Fix single quotes for string values after colon: : 'value' -> : "value"
	singleQuoteValueRegex = regexp.MustCompile(`(:\s*)'((?:[^'\\]|\\.)*)'(\s*[,}\]])`)

	// Fix missing comma after a closing quote before a new key
	missingCommaBeforeKeyRegex = regexp.MustCompile(`(")\s*\n\s*("[\w][^"]*"\s*:)`)
)

// StripFences removes surrounding markdown code-fence markup from an LLM
// response. Stage one of recovery; exported so each stage is testable on
// its own.
func StripFences(response string) string {
	response = strings.TrimSpace(response)
	if strings.HasPrefix(response, "```json") {
		response = strings.TrimPrefix(response, "```json")
	} else if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
	}
	response = strings.TrimSuffix(response, "```")
	return strings.TrimSpace(response)
}

// ExtractSpan returns the largest balanced top-level {...} or [...] span
// in s, or "" when no JSON structure opens at all. Stage two of recovery.
func ExtractSpan(s string) string {
	start := strings.IndexAny(s, "{[")
	if start == -1 {
		return ""
	}
	open := s[start]
	var close byte = '}'
	if open == '[' {
		close = ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	// Unterminated span: return the tail so the repair stage can close it.
	return s[start:]
}

// ExtractAndParseJSON extracts JSON from an LLM response and unmarshals
// it into T. Stages: strip fences, locate the structured span,
// stream-decode ignoring trailing text, then repair and retry. As a last
// resort the whole trimmed string is parsed directly.
func ExtractAndParseJSON[T any](response string) (T, error) {
	var result T

	cleaned := StripFences(response)
	if cleaned == "" {
		return result, fmt.Errorf("no JSON found in response")
	}

	span := ExtractSpan(cleaned)
	if span == "" {
		// Maybe the payload is a quoted string containing JSON.
		var asString string
		if err := json.Unmarshal([]byte(cleaned), &asString); err == nil {
			return ExtractAndParseJSON[T](asString)
		}
		return result, fmt.Errorf("no JSON start ({ or [) found")
	}

	// Decoder tolerates trailing text after the first JSON value.
	decoder := json.NewDecoder(strings.NewReader(span))
	if err := decoder.Decode(&result); err == nil {
		return result, nil
	}

	repaired := RepairJSON(span)
	dec2 := json.NewDecoder(strings.NewReader(repaired))
	if err := dec2.Decode(&result); err == nil {
		return result, nil
	}

	// Last resort: parse the whole trimmed string as-is.
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return result, fmt.Errorf("parse JSON: %w", err)
	}
	return result, nil
}

// RepairJSON attempts to fix common JSON syntax errors from LLM output:
// raw control characters inside strings, missing/trailing commas, single
// quotes, and mid-string truncation.
func RepairJSON(input string) string {
	result := sanitizeControlChars(input)
	result = missingCommaBeforeKeyRegex.ReplaceAllString(result, `$1, $2`)
	result = trailingCommaRegex.ReplaceAllString(result, `$1`)
	result = singleQuoteKeyRegex.ReplaceAllString(result, `$1"$2"$3`)
	result = singleQuoteValueRegex.ReplaceAllStringFunc(result, func(match string) string {
		parts := singleQuoteValueRegex.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		value := strings.ReplaceAll(parts[2], `\'`, `'`)
		value = strings.ReplaceAll(value, `"`, `\"`)
		return parts[1] + `"` + value + `"` + parts[3]
	})
	result = closeTruncated(result)
	return result
}

// sanitizeControlChars escapes literal control characters inside JSON
// strings. LLMs often emit raw tabs and newlines, which are invalid.
func sanitizeControlChars(input string) string {
	var out strings.Builder
	out.Grow(len(input))

	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if escaped {
			out.WriteByte(c)
			escaped = false
			continue
		}
		if c == '\\' && inString {
			out.WriteByte(c)
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			out.WriteByte(c)
			continue
		}
		if inString {
			switch c {
			case '\t':
				out.WriteString(`\t`)
			case '\n':
				out.WriteString(`\n`)
			case '\r':
				out.WriteString(`\r`)
			default:
				if c < 0x20 {
					out.WriteString(fmt.Sprintf(`\u%04x`, c))
				} else {
					out.WriteByte(c)
				}
			}
		} else {
			out.WriteByte(c)
		}
	}
	return out.String()
}

// closeTruncated balances quotes, braces, and brackets on JSON that was
// cut off mid-stream. Closers are appended in reverse nesting order.
func closeTruncated(input string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(input); i++ {
		c := input[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if inString {
		input += `"`
	}
	for i := len(stack) - 1; i >= 0; i-- {
		input += string(stack[i])
	}
	return input
}

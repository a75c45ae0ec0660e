// Package ai holds the generation-capability adapters shared by all providers:
// response cleaning, resilience decorators and provider selection.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	fencedBlockRe   = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\\s*\\n?(.*?)\\n?\\s*```")
	trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)
)

// ResponseCleaner turns raw generator output into something a decoder can read.
type ResponseCleaner struct{}

// NewResponseCleaner creates a new response cleaner.
func NewResponseCleaner() *ResponseCleaner {
	return &ResponseCleaner{}
}

// StripCodeFences removes optional markdown code-fence markup around a response.
func (rc *ResponseCleaner) StripCodeFences(response string) string {
	response = strings.TrimSpace(response)
	if m := fencedBlockRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1])
	}
	// Unterminated fence: drop the opening marker line.
	if strings.HasPrefix(response, "```") {
		response = strings.TrimPrefix(response, "```")
		if i := strings.IndexByte(response, '\n'); i >= 0 && !strings.ContainsAny(response[:i], "{[") {
			response = response[i+1:]
		}
	}
	return strings.TrimSpace(strings.TrimSuffix(response, "```"))
}

// CleanJSONResponse strips fences, cuts the first JSON object out of mixed
// content and removes trailing commas when that makes the object valid.
func (rc *ResponseCleaner) CleanJSONResponse(response string) string {
	response = rc.StripCodeFences(response)
	response = rc.extractJSON(response)
	if rc.IsValidJSON(response) {
		return response
	}
	if fixed := trailingCommaRe.ReplaceAllString(response, "$1"); rc.IsValidJSON(fixed) {
		return fixed
	}
	return response
}

// CleanText prepares a plain-text answer: fences removed, wrapping quotes trimmed.
func (rc *ResponseCleaner) CleanText(response string) string {
	response = rc.StripCodeFences(response)
	if len(response) >= 2 && strings.HasPrefix(response, `"`) && strings.HasSuffix(response, `"`) {
		response = strings.TrimSpace(response[1 : len(response)-1])
	}
	return response
}

// extractJSON returns the first brace-balanced object, ignoring braces inside strings.
func (rc *ResponseCleaner) extractJSON(response string) string {
	start := strings.IndexByte(response, '{')
	if start == -1 {
		return response
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return response[start:]
}

// IsValidJSON checks if a string is valid JSON.
func (rc *ResponseCleaner) IsValidJSON(response string) bool {
	return json.Valid([]byte(response))
}

// CleanAndValidateJSON cleans a response and fails when the result is still not JSON.
func (rc *ResponseCleaner) CleanAndValidateJSON(response string) (string, error) {
	cleaned := rc.CleanJSONResponse(response)
	if !rc.IsValidJSON(cleaned) {
		return "", &JSONValidationError{
			Original: response,
			Cleaned:  cleaned,
			Message:  "cleaned response is still not valid JSON",
		}
	}
	return cleaned, nil
}

// JSONValidationError represents a JSON validation error.
type JSONValidationError struct {
	Original string
	Cleaned  string
	Message  string
}

func (e *JSONValidationError) Error() string {
	return e.Message
}

package cosmetic

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// unicodeEscapeRegex matches CSS Unicode escapes, including the optional whitespace terminator.
	unicodeEscapeRegex = regexp.MustCompile(`\\([0-9A-Fa-f]{1,6})(\s)?`)

	errStyleTag = errors.New("contains '</style>' which is not allowed")
)

// sanitizeCSSSelector validates and sanitizes a CSS selector.
func sanitizeCSSSelector(selectorInput string) (string, error) {
	if selectorInput == "" {
		return "", errors.New("selector is empty")
	}
	if strings.Contains(selectorInput, "</style>") {
		return "", fmt.Errorf("selector %w", errStyleTag)
	}

	selector := decodeUnicodeEscapes(selectorInput)
	if !hasBalancedQuotesAndBrackets(selector) {
		return "", errors.New("selector has unbalanced quotes or brackets")
	}

	if err := scanOutsideQuotes(selector, "{};@"); err != nil {
		return "", fmt.Errorf("sanitize selector: %w", err)
	}

	return selector, nil
}

// sanitizeStyle validates the declarations of a :style() rule.
// Unlike selectors, declarations may be separated with semicolons.
func sanitizeStyle(style string) (string, error) {
	style = strings.TrimSpace(style)
	if style == "" {
		return "", errors.New("style is empty")
	}
	if strings.Contains(strings.ToLower(style), "</style>") {
		return "", fmt.Errorf("style %w", errStyleTag)
	}
	if strings.Contains(strings.ToLower(style), "url(") {
		return "", errors.New("style loads external resources")
	}
	if !hasBalancedQuotesAndBrackets(style) {
		return "", errors.New("style has unbalanced quotes or brackets")
	}
	if err := scanOutsideQuotes(style, "{}@\\"); err != nil {
		return "", fmt.Errorf("sanitize style: %w", err)
	}
	return style, nil
}

// decodeUnicodeEscapes replaces CSS Unicode escapes with their actual characters.
func decodeUnicodeEscapes(s string) string {
	return unicodeEscapeRegex.ReplaceAllStringFunc(s, func(match string) string {
		submatches := unicodeEscapeRegex.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}
		r, err := strconv.ParseInt(submatches[1], 16, 32)
		if err != nil {
			return match
		}
		return string(rune(r))
	})
}

// quoteScanner tracks whether a position in a CSS string is inside a quoted string.
type quoteScanner struct {
	inSingleQuote bool
	inDoubleQuote bool
	escaped       bool
}

// inString consumes c and reports whether it belongs to a quoted string or an escape sequence.
func (q *quoteScanner) inString(c rune) bool {
	switch {
	case q.escaped:
		q.escaped = false
		return true
	case c == '\\':
		q.escaped = true
		return true
	case q.inSingleQuote:
		if c == '\'' {
			q.inSingleQuote = false
		}
		return true
	case q.inDoubleQuote:
		if c == '"' {
			q.inDoubleQuote = false
		}
		return true
	case c == '\'':
		q.inSingleQuote = true
		return true
	case c == '"':
		q.inDoubleQuote = true
		return true
	default:
		return false
	}
}

func (q *quoteScanner) balanced() bool {
	return !q.inSingleQuote && !q.inDoubleQuote && !q.escaped
}

// hasBalancedQuotesAndBrackets checks for balanced quotes and brackets in s.
func hasBalancedQuotesAndBrackets(s string) bool {
	var stack []rune
	var q quoteScanner

	for _, c := range s {
		if q.inString(c) {
			continue
		}

		switch c {
		case '(', '[', '{':
			stack = append(stack, c)
		case ')', ']', '}':
			if len(stack) == 0 {
				return false
			}
			last := stack[len(stack)-1]
			if (c == ')' && last != '(') ||
				(c == ']' && last != '[') ||
				(c == '}' && last != '{') {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}

	return q.balanced() && len(stack) == 0
}

// scanOutsideQuotes checks for comment openers and closers and for the forbidden characters
// outside of quoted strings.
func scanOutsideQuotes(s string, forbidden string) error {
	var q quoteScanner
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		c := runes[i]
		if c == '\\' && strings.ContainsRune(forbidden, '\\') {
			return errors.New("found '\\' outside of quotes")
		}
		if q.inString(c) {
			continue
		}

		if c == '/' && i+1 < len(runes) && runes[i+1] == '*' {
			return errors.New("found '/*' outside of quotes")
		}
		if c == '*' && i+1 < len(runes) && runes[i+1] == '/' {
			return errors.New("found '*/' outside of quotes")
		}
		if strings.ContainsRune(forbidden, c) {
			return fmt.Errorf("found dangerous character '%c' outside of quotes", c)
		}
	}

	return nil
}

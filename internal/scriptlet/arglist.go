package scriptlet

import (
	"errors"
	"fmt"
	"strings"
)

// argList represents the argument list of a scriptlet, excluding the function call expression.
type argList string

// split splits the list on commas that are neither escaped nor inside a quoted string.
func (al argList) split() []string {
	var args []string
	var quote byte
	var escaped bool
	start := 0
	for i := 0; i < len(al); i++ {
		c := al[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			if strings.TrimSpace(string(al[start:i])) == "" {
				quote = c
			}
		case c == ',':
			args = append(args, string(al[start:i]))
			start = i + 1
		}
	}
	return append(args, string(al[start:]))
}

func (al argList) ConvertUboToCanonical() argList {
	if strings.TrimSpace(string(al)) == "" {
		return ""
	}

	args := al.split()
	for i := range args {
		arg := strings.TrimSpace(args[i])
		// uBo scriptlets may use both quoted and unquoted strings.
		if isValidJSString(arg) {
			args[i] = arg
			continue
		}
		arg = strings.ReplaceAll(arg, `\,`, ",")
		arg = strings.ReplaceAll(arg, `\`, `\\`)
		arg = strings.ReplaceAll(arg, `"`, `\"`)
		args[i] = fmt.Sprintf(`"%s"`, arg)
	}
	return argList(strings.Join(args, ","))
}

func (al argList) Normalize() (argList, error) {
	if strings.TrimSpace(string(al)) == "" {
		return "", errors.New("argument list is empty")
	}

	args := al.split()
	var normalized strings.Builder
	for i, arg := range args {
		arg = strings.TrimSpace(arg)
		if !isValidJSString(arg) {
			return "", fmt.Errorf("argument %q is not a valid JS string", arg)
		}
		normalized.WriteString(arg)
		if i < len(args)-1 {
			normalized.WriteByte(',')
		}
	}
	return argList(normalized.String()), nil
}

// head splits off the first argument, which names the scriptlet.
func (al argList) head() (name string, rest argList) {
	args := al.split()
	name = args[0]
	if len(args) > 1 {
		rest = argList(strings.Join(args[1:], ","))
	}
	return name, rest
}

func isValidJSString(s string) bool {
	// Must be at least 2 characters: opening & closing quotes.
	if len(s) < 2 {
		return false
	}

	openingQuote := s[0]
	if openingQuote != '"' && openingQuote != '\'' {
		return false
	}

	if s[len(s)-1] != openingQuote {
		return false
	}

	var escaped bool // Tracks whether the current character is escaped.
	for i := 1; i < len(s)-1; i++ {
		c := s[i]

		if escaped {
			// Current character is escaped by the preceding backslash.
			escaped = false
		} else {
			switch c {
			case '\\':
				escaped = true
			case openingQuote:
				// We found an unescaped quote matching the outer quote.
				return false
			}
		}
	}

	// Return false if the closing quote is escaped; otherwise, return true.
	return !escaped
}

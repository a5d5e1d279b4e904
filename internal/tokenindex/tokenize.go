package tokenindex

// minTokenLength is the shortest run usable as an index key on the rule side.
const minTokenLength = 2

// stopTokens appear in almost every URL and make poor bucket keys.
var stopTokens = map[string]struct{}{
	"http":  {},
	"https": {},
	"www":   {},
}

// IsTokenByte reports whether c can be part of a token. s must already be lower-cased.
func IsTokenByte(c byte) bool {
	return ('a' <= c && c <= 'z') || ('0' <= c && c <= '9')
}

// Tokenize splits a lower-cased string into maximal runs of token bytes.
func Tokenize(s string) []string {
	tokens := make([]string, 0, len(s)/6+1)
	start := -1
	for i := 0; i < len(s); i++ {
		if IsTokenByte(s[i]) {
			if start == -1 {
				start = i
			}
			continue
		}
		if start != -1 {
			tokens = append(tokens, s[start:i])
			start = -1
		}
	}
	if start != -1 {
		tokens = append(tokens, s[start:])
	}
	return tokens
}

// Usable reports whether a rule-side token may key a bucket.
func Usable(token string) bool {
	if len(token) < minTokenLength {
		return false
	}
	_, stop := stopTokens[token]
	return !stop
}

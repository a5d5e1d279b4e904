package hostmatch

import (
	"fmt"
	"strings"

	"github.com/anfragment/zenfilter/internal/request"
)

// NormalizePatterns lower-cases and punycode-encodes every pattern of a comma-separated list,
// keeping the ~ prefix of exclusions.
func NormalizePatterns(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}

	patterns := strings.Split(raw, ",")
	for i, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		negated := strings.HasPrefix(pattern, "~")
		if negated {
			pattern = pattern[1:]
		}
		if pattern == "" {
			return "", errNoEmptyPattern
		}

		normalized, err := request.NormalizeHostname(pattern)
		if err != nil {
			return "", err
		}
		if normalized == "" || strings.ContainsAny(normalized, "/:|^ ") {
			return "", fmt.Errorf("invalid hostname pattern %q", pattern)
		}
		if negated {
			normalized = "~" + normalized
		}
		patterns[i] = normalized
	}
	return strings.Join(patterns, ","), nil
}

// IsGeneric reports whether a pattern list applies to every hostname it does not exclude.
func IsGeneric(patterns string) bool {
	if patterns == "" {
		return true
	}
	for _, pattern := range strings.Split(patterns, ",") {
		if !strings.HasPrefix(pattern, "~") {
			return false
		}
	}
	return true
}

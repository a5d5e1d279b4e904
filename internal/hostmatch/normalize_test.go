package hostmatch_test

import (
	"testing"

	"github.com/anfragment/zenfilter/internal/hostmatch"
)

func TestNormalizePatterns(t *testing.T) {
	t.Parallel()

	valid := map[string]string{
		"":                            "",
		"Example.COM":                 "example.com",
		" a.com , ~B.a.com ":          "a.com,~b.a.com",
		"example.*,*.cdn.example.com": "example.*,*.cdn.example.com",
		"bücher.de,~ärzte.de":         "xn--bcher-kva.de,~xn--rzte-koa.de",
	}
	for raw, want := range valid {
		got, err := hostmatch.NormalizePatterns(raw)
		if err != nil {
			t.Errorf("NormalizePatterns(%q) returned error: %v", raw, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizePatterns(%q) = %q, want %q", raw, got, want)
		}
	}

	for _, raw := range []string{"a.com,", "~", "a.com,~", "a.com/path", "a.com:8080"} {
		if _, err := hostmatch.NormalizePatterns(raw); err == nil {
			t.Errorf("NormalizePatterns(%q) = nil error, want error", raw)
		}
	}
}

func TestIsGeneric(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"":              true,
		"~a.com":        true,
		"~a.com,~b.com": true,
		"a.com":         false,
		"~a.com,b.com":  false,
		"example.*":     false,
	}
	for patterns, want := range tests {
		if got := hostmatch.IsGeneric(patterns); got != want {
			t.Errorf("IsGeneric(%q) = %t, want %t", patterns, got, want)
		}
	}
}

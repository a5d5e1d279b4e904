package cosmetic

import (
	"errors"
	"testing"

	baserule "github.com/anfragment/zenfilter/internal/rule"
)

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("parses valid rules", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			line      string
			kind      baserule.Kind
			hostnames string
			selector  string
			style     string
		}{
			{"##.ad", baserule.KindCosmeticHide, "", ".ad", ""},
			{"###banner", baserule.KindCosmeticHide, "", "#banner", ""},
			{"example.com##.ad", baserule.KindCosmeticHide, "example.com", ".ad", ""},
			{"Example.COM, ~Sub.Example.com##div.ad", baserule.KindCosmeticHide, "example.com,~sub.example.com", "div.ad", ""},
			{"example.*##.ad", baserule.KindCosmeticHide, "example.*", ".ad", ""},
			{"bücher.de##.ad", baserule.KindCosmeticHide, "xn--bcher-kva.de", ".ad", ""},
			{"example.com#@#.ad", baserule.KindCosmeticException, "example.com", ".ad", ""},
			{"#@#.ad", baserule.KindCosmeticException, "", ".ad", ""},
			{"example.com##body:style(overflow: auto !important)", baserule.KindCosmeticHide, "example.com", "body", "overflow: auto !important"},
			{`##a[href="x;y"]`, baserule.KindCosmeticHide, "", `a[href="x;y"]`, ""},
		}

		for _, tt := range tests {
			r, err := Parse(tt.line)
			if err != nil {
				t.Errorf("Parse(%q) returned error: %v", tt.line, err)
				continue
			}
			if r.Kind != tt.kind || r.Hostnames != tt.hostnames || r.Selector != tt.selector || r.Style != tt.style {
				t.Errorf("Parse(%q) = {%s %q %q %q}, want {%s %q %q %q}",
					tt.line, r.Kind, r.Hostnames, r.Selector, r.Style, tt.kind, tt.hostnames, tt.selector, tt.style)
			}
			if r.RawRule != tt.line {
				t.Errorf("Parse(%q).RawRule = %q", tt.line, r.RawRule)
			}
		}
	})

	t.Run("rejects invalid rules", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			line   string
			reason string
			target error
		}{
			{"example.com##.ad:has-text(Sponsored)", baserule.SkipProcedural, baserule.ErrUnsupported},
			{"##div:xpath(//div)", baserule.SkipProcedural, baserule.ErrUnsupported},
			{"##.ad:upward(2)", baserule.SkipProcedural, baserule.ErrUnsupported},
			{"example.com##^script:has-text(ads)", baserule.SkipUnsupportedSyntax, baserule.ErrUnsupported},
			{"example.com", baserule.SkipUnsupportedSyntax, baserule.ErrUnsupported},
			{"example.com,##.ad", baserule.SkipInvalidDomain, baserule.ErrMalformed},
			{"~##.ad", baserule.SkipInvalidDomain, baserule.ErrMalformed},
			{"exa/mple.com##.ad", baserule.SkipInvalidDomain, baserule.ErrMalformed},
			{"##div } body { color: red", baserule.SkipInvalidSelector, baserule.ErrMalformed},
			{"##div</style><script>", baserule.SkipInvalidSelector, baserule.ErrMalformed},
			{`##a[href="x]`, baserule.SkipInvalidSelector, baserule.ErrMalformed},
			{"##body:style(background: url(https://evil.example/x.png))", baserule.SkipInvalidSelector, baserule.ErrMalformed},
			{"##body:style(color: red } html { color: blue)", baserule.SkipInvalidSelector, baserule.ErrMalformed},
			{"##body:style()", baserule.SkipInvalidSelector, baserule.ErrMalformed},
		}

		for _, tt := range tests {
			_, err := Parse(tt.line)
			var pe *baserule.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("Parse(%q) error = %v, want *ParseError", tt.line, err)
				continue
			}
			if pe.Reason != tt.reason {
				t.Errorf("Parse(%q) reason = %q, want %q", tt.line, pe.Reason, tt.reason)
			}
			if !errors.Is(err, tt.target) {
				t.Errorf("Parse(%q) error = %v, want it to wrap %v", tt.line, err, tt.target)
			}
		}
	})
}

func TestIsGeneric(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"##.ad":                 true,
		"~example.com##.ad":     true,
		"~a.com,~b.com##.ad":    true,
		"example.com##.ad":      false,
		"~a.com,example.com##x": false,
	}

	for line, want := range tests {
		r, err := Parse(line)
		if err != nil {
			t.Fatalf("Parse(%q): %v", line, err)
		}
		if got := r.IsGeneric(); got != want {
			t.Errorf("Parse(%q).IsGeneric() = %t, want %t", line, got, want)
		}
	}
}

func TestStyleSanitizer(t *testing.T) {
	t.Parallel()

	valid := []string{
		"display: block !important",
		"color: red; background: blue",
		`content: "}"`,
	}
	for _, style := range valid {
		if _, err := sanitizeStyle(style); err != nil {
			t.Errorf("sanitizeStyle(%q) returned error: %v", style, err)
		}
	}

	invalid := []string{
		"",
		"color: red } body { color: blue",
		"@import 'evil.css'",
		"color: red /* x */",
		`content: "\</style>"`,
		"background: URL(x)",
		`color: \72 ed`,
	}
	for _, style := range invalid {
		if _, err := sanitizeStyle(style); err == nil {
			t.Errorf("sanitizeStyle(%q) = nil error, want error", style)
		}
	}
}

package cosmetic

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/anfragment/zenfilter/internal/hostmatch"
	baserule "github.com/anfragment/zenfilter/internal/rule"
)

var (
	// RuleRegex matches element hiding rules and their exceptions.
	RuleRegex = regexp.MustCompile(`^([^#$]*?)#(@?)#(.+)$`)

	// proceduralPseudoClasses need a JS runtime to evaluate and cannot be expressed in a stylesheet.
	proceduralPseudoClasses = []string{
		":has-text(", ":xpath(", ":upward(", ":remove(", ":matches-css(", ":matches-css-before(",
		":matches-css-after(", ":min-text-length(", ":matches-path(", ":others(", ":watch-attr(",
		":matches-attr(", ":matches-prop(", ":remove-attr(", ":remove-class(", ":-abp-", ":contains(",
		":nth-ancestor(", ":if(", ":if-not(", ":matches-media(", ":shadow(",
	}

	errUnsupportedSyntax = errors.New("unsupported syntax")
)

const stylePseudoClass = ":style("

// Rule is a parsed cosmetic rule. It is immutable once parsed.
type Rule struct {
	RawRule string
	Kind    baserule.Kind
	// Hostnames is the normalized comma-separated hostname list. Empty means generic.
	Hostnames string
	Selector  string
	// Style is set for :style() rules, which apply declarations instead of hiding.
	Style string
}

// Parse parses a "hostnames##selector" or "hostnames#@#selector" line.
// The returned error is a *baserule.ParseError.
func Parse(line string) (*Rule, error) {
	match := RuleRegex.FindStringSubmatch(line)
	if match == nil {
		return nil, baserule.Unsupported(line, baserule.SkipUnsupportedSyntax, errUnsupportedSyntax)
	}

	r := &Rule{
		RawRule: line,
		Kind:    baserule.KindCosmeticHide,
	}
	if match[2] == "@" {
		r.Kind = baserule.KindCosmeticException
	}

	hostnames, err := hostmatch.NormalizePatterns(match[1])
	if err != nil {
		return nil, baserule.Malformed(line, baserule.SkipInvalidDomain, err)
	}
	r.Hostnames = hostnames

	selector := strings.TrimSpace(match[3])
	if strings.HasPrefix(selector, "^") || strings.HasPrefix(selector, "+js(") {
		return nil, baserule.Unsupported(line, baserule.SkipUnsupportedSyntax, errUnsupportedSyntax)
	}
	for _, pseudo := range proceduralPseudoClasses {
		if strings.Contains(selector, pseudo) {
			return nil, baserule.Unsupported(line, baserule.SkipProcedural, fmt.Errorf("procedural pseudo-class %s)", pseudo))
		}
	}

	if i := strings.LastIndex(selector, stylePseudoClass); i != -1 && strings.HasSuffix(selector, ")") {
		style, err := sanitizeStyle(selector[i+len(stylePseudoClass) : len(selector)-1])
		if err != nil {
			return nil, baserule.Malformed(line, baserule.SkipInvalidSelector, err)
		}
		r.Style = style
		selector = strings.TrimSpace(selector[:i])
	}

	sanitized, err := sanitizeCSSSelector(selector)
	if err != nil {
		return nil, baserule.Malformed(line, baserule.SkipInvalidSelector, err)
	}
	r.Selector = sanitized

	return r, nil
}

// key identifies the rules an exception cancels: same selector and same style.
func (r *Rule) key() string {
	if r.Style == "" {
		return r.Selector
	}
	return r.Selector + stylePseudoClass + r.Style + ")"
}

// IsGeneric reports whether the rule applies to every hostname not explicitly excluded.
func (r *Rule) IsGeneric() bool {
	return hostmatch.IsGeneric(r.Hostnames)
}

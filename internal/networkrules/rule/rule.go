// Package rule parses network rules: blocking rules, @@ exceptions and hosts-file entries.
package rule

import (
	"fmt"
	"strings"

	"github.com/anfragment/zenfilter/internal/networkrules/pattern"
	"github.com/anfragment/zenfilter/internal/networkrules/rulemodifiers"
	"github.com/anfragment/zenfilter/internal/request"
	baserule "github.com/anfragment/zenfilter/internal/rule"
)

const (
	exceptionPrefix = "@@"
	// maxLiteralSpecificity caps the contribution of the pattern length to the specificity.
	maxLiteralSpecificity = 999
	constraintWeight      = 1000
)

var (
	// unsupportedModifiers are known options whose semantics are not implemented.
	// Rules carrying them are skipped, since ignoring an option could widen the rule.
	unsupportedModifiers = map[string]struct{}{
		"redirect": {}, "redirect-rule": {}, "rewrite": {}, "csp": {}, "removeparam": {}, "queryprune": {},
		"removeheader": {}, "header": {}, "method": {}, "permissions": {}, "popup": {}, "popunder": {},
		"all": {}, "empty": {}, "mp4": {}, "replace": {}, "cookie": {}, "urltransform": {}, "denyallow": {},
		"to": {}, "from": {}, "elemhide": {}, "ehide": {}, "specifichide": {}, "shide": {}, "content": {},
		"jsinject": {}, "urlblock": {}, "stealth": {}, "genericblock": {}, "app": {}, "network": {},
		"hls": {}, "jsonprune": {}, "referrerpolicy": {}, "extension": {}, "inline-script": {}, "inline-font": {},
		"strict1p": {}, "strict3p": {}, "webrtc": {}, "object-subrequest": {}, "xmlhttprequest-subrequest": {},
		"match-case-insensitive": {}, "dnstype": {}, "dnsrewrite": {}, "client": {}, "ctag": {},
	}
)

// Rule is a parsed network rule. It is immutable once parsed.
type Rule struct {
	// RawRule is the original rule text.
	RawRule string
	Kind    baserule.Kind
	Pattern *pattern.Pattern
	// Token is the index key of the rule. Empty means the catch-all bucket.
	Token string

	// MatchingModifiers should all match for the rule to apply.
	MatchingModifiers []rulemodifiers.MatchingModifier

	Important   bool
	MatchCase   bool
	BadFilter   bool
	GenericHide bool

	// Ordinal is the insertion position of the rule across all loaded lists.
	Ordinal int
	// Specificity orders overlapping rules; see computeSpecificity.
	Specificity int

	// badFilterTarget is the text of the rule cancelled by this $badfilter rule.
	badFilterTarget string
}

// Parse parses a network rule line. An @@ prefix marks an exception.
// The returned error is a *baserule.ParseError.
func Parse(line string, ordinal int) (*Rule, error) {
	r := &Rule{
		RawRule: line,
		Kind:    baserule.KindNetworkBlock,
		Ordinal: ordinal,
	}

	body := line
	if strings.HasPrefix(body, exceptionPrefix) {
		r.Kind = baserule.KindNetworkException
		body = body[len(exceptionPrefix):]
	}

	patternText, modifiers := splitModifiers(body)
	if err := r.ParseModifiers(modifiers); err != nil {
		return nil, err
	}
	p, err := pattern.Compile(patternText, r.MatchCase)
	if err != nil {
		if strings.HasPrefix(patternText, "/") {
			return nil, baserule.Malformed(line, baserule.SkipInvalidRegexp, err)
		}
		return nil, baserule.Malformed(line, baserule.SkipInvalidPattern, err)
	}
	if p.MatchesAll() && len(r.MatchingModifiers) == 0 && !r.GenericHide {
		return nil, baserule.Malformed(line, baserule.SkipInvalidPattern, fmt.Errorf("rule matches every request"))
	}
	r.Pattern = p
	r.Token = p.Token()
	r.Specificity = r.computeSpecificity()

	if r.BadFilter {
		r.badFilterTarget = withoutModifier(line, patternText, modifiers, "badfilter")
	}

	return r, nil
}

// NewHostRule returns a blocking rule for a hosts-file entry, equivalent to ||host^.
func NewHostRule(line, host string, ordinal int) (*Rule, error) {
	hostname, err := request.NormalizeHostname(host)
	if err != nil || hostname == "" || strings.ContainsAny(hostname, "/*^|$") {
		return nil, baserule.Malformed(line, baserule.SkipInvalidDomain, fmt.Errorf("invalid host %q", host))
	}
	r, err := Parse("||"+hostname+"^", ordinal)
	if err != nil {
		return nil, err
	}
	r.RawRule = line
	return r, nil
}

// splitModifiers separates the pattern from the $-options.
//
// The separator is the last unescaped $ that is followed by something that looks like an option.
// A $ that ends a /regexp/ or sits inside a "domain=/regexp/" value is followed by a slash or the
// end of the line and is therefore skipped.
func splitModifiers(body string) (string, string) {
	for i := len(body) - 1; i >= 0; i-- {
		if body[i] != '$' {
			continue
		}
		if i > 0 && body[i-1] == '\\' {
			continue
		}
		if i+1 >= len(body) {
			continue
		}
		next := body[i+1]
		if next == '~' || next == '_' || ('a' <= next && next <= 'z') || ('A' <= next && next <= 'Z') || ('0' <= next && next <= '9') {
			return body[:i], body[i+1:]
		}
	}
	return body, ""
}

// ParseModifiers parses the comma-separated options of the rule.
func (r *Rule) ParseModifiers(modifiers string) error {
	if len(modifiers) == 0 {
		return nil
	}

	var (
		domain      *rulemodifiers.DomainModifier
		thirdParty  *rulemodifiers.ThirdPartyModifier
		contentType *rulemodifiers.ContentTypeModifier
	)
	for _, m := range strings.Split(modifiers, ",") {
		m = strings.TrimSpace(m)
		if len(m) == 0 {
			return baserule.Malformed(r.RawRule, baserule.SkipInvalidPattern, fmt.Errorf("empty modifier"))
		}
		name := strings.ToLower(m)
		if eq := strings.IndexByte(name, '='); eq != -1 {
			name = name[:eq]
		}
		bare := strings.TrimPrefix(name, "~")

		switch {
		case name == "important":
			r.Important = true
		case name == "match-case":
			r.MatchCase = true
		case name == "badfilter":
			r.BadFilter = true
		case name == "generichide" || name == "ghide":
			r.GenericHide = true
		case name == "domain":
			if domain == nil {
				domain = &rulemodifiers.DomainModifier{}
			}
			if err := domain.Parse(m); err != nil {
				return baserule.Malformed(r.RawRule, baserule.SkipInvalidDomain, err)
			}
		case bare == "third-party" || bare == "3p" || bare == "first-party" || bare == "1p":
			if thirdParty != nil {
				return baserule.Malformed(r.RawRule, baserule.SkipConflictingOptions, fmt.Errorf("repeated party option %s", m))
			}
			thirdParty = &rulemodifiers.ThirdPartyModifier{}
			if err := thirdParty.Parse(name); err != nil {
				return baserule.Malformed(r.RawRule, baserule.SkipUnknownOption, err)
			}
		case rulemodifiers.IsContentType(name):
			if contentType == nil {
				contentType = &rulemodifiers.ContentTypeModifier{}
			}
			if err := contentType.Parse(name); err != nil {
				return baserule.Malformed(r.RawRule, baserule.SkipUnknownOption, err)
			}
		default:
			if _, ok := unsupportedModifiers[bare]; ok {
				return baserule.Unsupported(r.RawRule, baserule.SkipUnsupportedOption, fmt.Errorf("option %s", name))
			}
			return baserule.Unsupported(r.RawRule, baserule.SkipUnknownOption, fmt.Errorf("unknown modifier %s", m))
		}
	}

	if r.Important && r.Kind == baserule.KindNetworkException {
		return baserule.Unsupported(r.RawRule, baserule.SkipConflictingOptions, fmt.Errorf("important on an exception"))
	}
	if contentType != nil && contentType.Allowed() == 0 {
		return baserule.Malformed(r.RawRule, baserule.SkipConflictingOptions, fmt.Errorf("no resource type left"))
	}

	// The order puts the cheapest checks first.
	if contentType != nil {
		r.MatchingModifiers = append(r.MatchingModifiers, contentType)
	}
	if thirdParty != nil {
		r.MatchingModifiers = append(r.MatchingModifiers, thirdParty)
	}
	if domain != nil {
		r.MatchingModifiers = append(r.MatchingModifiers, domain)
	}
	return nil
}

// computeSpecificity weighs constraints above pattern length: each option constraint and each
// anchor adds 1000, and every literal pattern character adds 1, up to 999.
func (r *Rule) computeSpecificity() int {
	constraints := len(r.MatchingModifiers) + r.Pattern.Anchors()
	if r.MatchCase {
		constraints++
	}
	literal := r.Pattern.LiteralLen()
	if literal > maxLiteralSpecificity {
		literal = maxLiteralSpecificity
	}
	return constraints*constraintWeight + literal
}

// ShouldMatchReq returns true if the rule should match the request.
func (r *Rule) ShouldMatchReq(req *request.Request) bool {
	// AndModifiers: All must match.
	for _, m := range r.MatchingModifiers {
		if !m.ShouldMatchReq(req) {
			return false
		}
	}
	return r.Pattern.Match(req)
}

// IsException reports whether the rule is an @@ exception.
func (r *Rule) IsException() bool {
	return r.Kind.IsException()
}

// BadFilterTarget returns the text of the rule cancelled by this $badfilter rule.
func (r *Rule) BadFilterTarget() string {
	return r.badFilterTarget
}

// Precedes reports whether r takes precedence over other.
// Higher specificity wins; equal specificity is broken by the earlier ordinal.
func (r *Rule) Precedes(other *Rule) bool {
	if other == nil {
		return true
	}
	if r.Specificity != other.Specificity {
		return r.Specificity > other.Specificity
	}
	return r.Ordinal < other.Ordinal
}

func (r *Rule) String() string {
	return r.RawRule
}

// withoutModifier rebuilds the rule line without the named option.
func withoutModifier(line, patternText, modifiers, name string) string {
	prefix := ""
	if strings.HasPrefix(line, exceptionPrefix) {
		prefix = exceptionPrefix
	}
	var kept []string
	for _, m := range strings.Split(modifiers, ",") {
		if strings.EqualFold(strings.TrimSpace(m), name) {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return prefix + patternText
	}
	return prefix + patternText + "$" + strings.Join(kept, ",")
}

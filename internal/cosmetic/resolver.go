// Package cosmetic parses element hiding rules and resolves the selectors that apply to a page.
package cosmetic

import (
	"errors"
	"fmt"
	"log"

	"github.com/anfragment/zenfilter/internal/hostmatch"
	"github.com/anfragment/zenfilter/internal/logger"
	baserule "github.com/anfragment/zenfilter/internal/rule"
)

var errNilRule = errors.New("rule is nil")

// Resources are the cosmetic modifications that apply to a single page.
type Resources struct {
	// HideSelectors are deduplicated and in first-seen order.
	HideSelectors []string
	// StyleSelectors maps a selector to the declarations applied to it.
	StyleSelectors map[string][]string
	InjectedScript string
	Generichide    bool
	// Exceptions are the selectors cancelled on this page.
	Exceptions []string
}

// IsEmpty reports whether no modification applies.
func (r Resources) IsEmpty() bool {
	return len(r.HideSelectors) == 0 && len(r.StyleSelectors) == 0 && r.InjectedScript == ""
}

// Resolver holds the cosmetic rules of an engine.
//
// Add must not be called concurrently with other methods. Once all rules are added,
// ResourcesFor is safe for concurrent use.
type Resolver struct {
	rules      *hostmatch.HostMatcher[*Rule]
	exceptions *hostmatch.HostMatcher[*Rule]
}

func NewResolver() *Resolver {
	return &Resolver{
		rules:      hostmatch.NewHostMatcher[*Rule](),
		exceptions: hostmatch.NewHostMatcher[*Rule](),
	}
}

// AddRule parses a line and adds the resulting rule. The returned error is a *baserule.ParseError.
func (r *Resolver) AddRule(line string) (*Rule, error) {
	rule, err := Parse(line)
	if err != nil {
		return nil, err
	}
	if err := r.Add(rule); err != nil {
		return nil, baserule.Malformed(line, baserule.SkipInvalidDomain, err)
	}
	return rule, nil
}

// Add adds a parsed rule.
func (r *Resolver) Add(rule *Rule) error {
	if rule == nil {
		return errNilRule
	}

	var store *hostmatch.HostMatcher[*Rule]
	switch rule.Kind {
	case baserule.KindCosmeticHide:
		store = r.rules
	case baserule.KindCosmeticException:
		store = r.exceptions
	case baserule.KindNetworkBlock, baserule.KindNetworkException:
		return fmt.Errorf("add %s rule to cosmetic resolver", rule.Kind)
	default:
		panic(fmt.Sprintf("unknown rule kind %d", rule.Kind))
	}

	if err := store.AddPrimaryRule(rule.Hostnames, rule); err != nil {
		return fmt.Errorf("add rule %q: %w", rule.RawRule, err)
	}
	return nil
}

// Len returns the number of hide rules and exceptions.
func (r *Resolver) Len() (rules, exceptions int) {
	return r.rules.Len(), r.exceptions.Len()
}

// ResourcesFor returns the selectors that apply to the hostname. When generichide is set,
// generic rules are suppressed before exceptions are subtracted.
func (r *Resolver) ResourcesFor(hostname string, generichide bool) Resources {
	res := Resources{Generichide: generichide}

	var candidates []*Rule
	if generichide {
		candidates = r.rules.GetSpecific(hostname)
	} else {
		candidates = r.rules.Get(hostname)
	}
	if len(candidates) == 0 {
		return res
	}

	cancelled := make(map[string]struct{})
	for _, exception := range r.exceptions.Get(hostname) {
		cancelled[exception.key()] = struct{}{}
	}

	seen := make(map[string]struct{}, len(candidates))
	applied := make(map[string]struct{})
	for _, rule := range candidates {
		key := rule.key()
		if _, ok := cancelled[key]; ok {
			if _, ok := applied[key]; !ok {
				applied[key] = struct{}{}
				res.Exceptions = append(res.Exceptions, key)
			}
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		if rule.Style == "" {
			res.HideSelectors = append(res.HideSelectors, rule.Selector)
			continue
		}
		if res.StyleSelectors == nil {
			res.StyleSelectors = make(map[string][]string)
		}
		res.StyleSelectors[rule.Selector] = append(res.StyleSelectors[rule.Selector], rule.Style)
	}

	log.Printf("got %d cosmetic rules for %q", len(res.HideSelectors)+len(res.StyleSelectors), logger.Redacted(hostname))

	return res
}

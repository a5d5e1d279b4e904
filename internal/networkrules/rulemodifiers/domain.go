package rulemodifiers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/anfragment/zenfilter/internal/request"
)

var (
	// domainModifierRegex matches domain modifier entries.
	//
	// Domain modifiers can contain regular expressions, which can contain the separator character (|).
	// This makes it impossible to just split the modifier by the separator.
	domainModifierRegex = regexp.MustCompile(`~?((/.*/)|[^|]+)+`)
	// domainRegexpRegex matches a regular expression entry, optionally with the i flag.
	domainRegexpRegex = regexp.MustCompile(`^/(.+)/i?$`)
)

// DomainModifier restricts a rule to requests initiated from, or not from, the listed domains.
//
// https://adguard.com/kb/general/ad-filtering/create-own-filters/#domain-modifier
type DomainModifier struct {
	include []DomainEntry
	exclude []DomainEntry
}

var _ MatchingModifier = (*DomainModifier)(nil)

// Parse parses a "domain=" option. Included and excluded (~) entries may be mixed.
func (m *DomainModifier) Parse(modifier string) error {
	eqIndex := strings.IndexByte(modifier, '=')
	if eqIndex == -1 || eqIndex == len(modifier)-1 {
		return errors.New("invalid domain modifier")
	}
	return m.ParseList(modifier[eqIndex+1:])
}

// ParseList adds the |-separated entries of value to the modifier.
func (m *DomainModifier) ParseList(value string) error {
	entries := domainModifierRegex.FindAllString(value, -1)
	if len(entries) == 0 {
		return fmt.Errorf("no domains in %q", value)
	}
	for _, raw := range entries {
		inverted := raw[0] == '~'
		if inverted {
			raw = raw[1:]
		}

		var entry DomainEntry
		if err := entry.Parse(raw); err != nil {
			return fmt.Errorf("parse entry (%s): %w", raw, err)
		}
		if inverted {
			m.exclude = append(m.exclude, entry)
		} else {
			m.include = append(m.include, entry)
		}
	}
	return nil
}

// ShouldMatchReq matches the entries against the hostname of the page that initiated the request.
// A request with an unknown source matches only exclusion lists.
func (m *DomainModifier) ShouldMatchReq(req *request.Request) bool {
	return m.MatchHostname(req.SourceHostname)
}

// MatchHostname reports whether the hostname satisfies the include and exclude lists.
func (m *DomainModifier) MatchHostname(hostname string) bool {
	if len(m.include) > 0 {
		if hostname == "" {
			return false
		}
		found := false
		for _, entry := range m.include {
			if entry.MatchDomain(hostname) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if hostname == "" {
		return true
	}
	for _, entry := range m.exclude {
		if entry.MatchDomain(hostname) {
			return false
		}
	}
	return true
}

// DomainEntry is a single entry of a domain list.
type DomainEntry struct {
	regular string
	tld     string
	regexp  *regexp.Regexp
}

// Parse parses a plain hostname, a "name.*" entry matching any public suffix, or a /regexp/.
func (e *DomainEntry) Parse(entry string) error {
	if len(entry) == 0 {
		return errors.New("entry is empty")
	}

	if match := domainRegexpRegex.FindStringSubmatch(entry); match != nil {
		body := match[1]
		if entry[len(entry)-1] == 'i' {
			body = "(?i)" + body
		}
		re, err := regexp.Compile(body)
		if err != nil {
			return fmt.Errorf("compile regexp: %w", err)
		}
		e.regexp = re
		return nil
	}

	hostname, err := request.NormalizeHostname(entry)
	if err != nil {
		return err
	}
	if strings.HasSuffix(hostname, ".*") {
		e.tld = hostname[:len(hostname)-2]
		return nil
	}
	if strings.ContainsAny(hostname, "*/:") {
		return fmt.Errorf("invalid hostname %q", entry)
	}
	e.regular = hostname
	return nil
}

// MatchDomain reports whether the hostname is the entry or one of its subdomains.
func (e *DomainEntry) MatchDomain(hostname string) bool {
	switch {
	case e.regular != "":
		return hostname == e.regular || strings.HasSuffix(hostname, "."+e.regular)
	case e.tld != "":
		suffix, _ := publicsuffix.PublicSuffix(hostname)
		if len(hostname) <= len(suffix)+1 {
			return false
		}
		withoutSuffix := hostname[:len(hostname)-len(suffix)-1]
		return withoutSuffix == e.tld || strings.HasSuffix(withoutSuffix, "."+e.tld)
	case e.regexp != nil:
		return e.regexp.MatchString(hostname)
	default:
		return false
	}
}

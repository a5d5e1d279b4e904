// Package pattern compiles and matches the URL part of network rules.
//
// Supported syntax: literal text, the * wildcard, the ^ separator, the | start and end anchors,
// the || domain anchor and /regular expressions/.
package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/anfragment/zenfilter/internal/request"
	"github.com/anfragment/zenfilter/internal/tokenindex"
)

// segmentKind defines the type of a compiled pattern element.
type segmentKind int8

const (
	segmentLiteral   segmentKind = iota
	segmentWildcard              // *
	segmentSeparator             // ^
)

type segment struct {
	kind segmentKind
	// text is set for literal segments only.
	text string
}

var (
	errEmptyRegexp = errors.New("empty regular expression")
)

// Pattern is a compiled URL pattern. It is immutable and safe for concurrent use.
type Pattern struct {
	raw       string
	matchCase bool

	segments     []segment
	startAnchor  bool
	endAnchor    bool
	domainAnchor bool

	re *regexp.Regexp
}

// Compile compiles the raw pattern.
// Unless matchCase is set, patterns are lower-cased and matched against the lower-cased URL.
func Compile(raw string, matchCase bool) (*Pattern, error) {
	p := &Pattern{
		raw:       raw,
		matchCase: matchCase,
	}

	if isRegexp(raw) {
		body := raw[1 : len(raw)-1]
		if body == "" {
			return nil, errEmptyRegexp
		}
		if !matchCase {
			// Filter lists are written for JS engines that match case-insensitively by default.
			body = "(?i)" + body
		}
		re, err := regexp.Compile(body)
		if err != nil {
			return nil, fmt.Errorf("compile regexp: %w", err)
		}
		p.re = re
		return p, nil
	}

	s := raw
	if !matchCase {
		s = strings.ToLower(s)
	}
	switch {
	case strings.HasPrefix(s, "||"):
		p.domainAnchor = true
		s = s[2:]
	case strings.HasPrefix(s, "|"):
		p.startAnchor = true
		s = s[1:]
	}
	if strings.HasSuffix(s, "|") {
		p.endAnchor = true
		s = s[:len(s)-1]
	}
	p.segments = splitSegments(s)
	return p, nil
}

// isRegexp reports whether the raw pattern is a delimited regular expression.
func isRegexp(raw string) bool {
	return len(raw) >= 2 && raw[0] == '/' && raw[len(raw)-1] == '/'
}

func splitSegments(s string) []segment {
	var segments []segment
	start := 0
	flush := func(end int) {
		if end > start {
			segments = append(segments, segment{kind: segmentLiteral, text: s[start:end]})
		}
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*':
			flush(i)
			// Consecutive wildcards are equivalent to a single one.
			if n := len(segments); n == 0 || segments[n-1].kind != segmentWildcard {
				segments = append(segments, segment{kind: segmentWildcard})
			}
			start = i + 1
		case '^':
			flush(i)
			segments = append(segments, segment{kind: segmentSeparator})
			start = i + 1
		}
	}
	flush(len(s))
	return segments
}

// Match reports whether the pattern matches the request URL.
func (p *Pattern) Match(req *request.Request) bool {
	if p.re != nil {
		return p.re.MatchString(req.URL)
	}

	url := req.URLLowerCase
	if p.matchCase {
		url = req.URL
	}

	switch {
	case p.domainAnchor:
		for i := req.HostStart; i < req.HostEnd; i++ {
			if i != req.HostStart && url[i-1] != '.' {
				continue
			}
			if matchSegments(url, p.segments, i, p.endAnchor) {
				return true
			}
		}
		return false
	case p.startAnchor:
		return matchSegments(url, p.segments, 0, p.endAnchor)
	default:
		return matchWildcard(url, p.segments, 0, p.endAnchor)
	}
}

// matchSegments matches segs against s beginning exactly at pos.
func matchSegments(s string, segs []segment, pos int, endAnchor bool) bool {
	for i, seg := range segs {
		switch seg.kind {
		case segmentLiteral:
			if !strings.HasPrefix(s[pos:], seg.text) {
				return false
			}
			pos += len(seg.text)
		case segmentSeparator:
			// The end of the address is also accepted as a separator.
			if pos == len(s) {
				continue
			}
			if !IsSeparator(s[pos]) {
				return false
			}
			pos++
		case segmentWildcard:
			return matchWildcard(s, segs[i+1:], pos, endAnchor)
		default:
			panic(fmt.Sprintf("unknown segment kind %d", seg.kind))
		}
	}
	return !endAnchor || pos == len(s)
}

// matchWildcard matches segs against s beginning at any position at or after pos.
func matchWildcard(s string, segs []segment, pos int, endAnchor bool) bool {
	if len(segs) == 0 {
		return true
	}
	if segs[0].kind == segmentLiteral {
		lit := segs[0].text
		for pos <= len(s) {
			i := strings.Index(s[pos:], lit)
			if i == -1 {
				return false
			}
			if matchSegments(s, segs, pos+i, endAnchor) {
				return true
			}
			pos += i + 1
		}
		return false
	}
	for ; pos <= len(s); pos++ {
		if matchSegments(s, segs, pos, endAnchor) {
			return true
		}
	}
	return false
}

// IsSeparator reports whether c matches the ^ placeholder.
// A separator is any character but a letter, a digit, or one of _ - . %.
func IsSeparator(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	case c == '_', c == '-', c == '.', c == '%':
		return false
	default:
		return true
	}
}

// MatchesAll reports whether the pattern matches any URL.
func (p *Pattern) MatchesAll() bool {
	if p.re != nil || p.startAnchor || p.endAnchor || p.domainAnchor {
		return false
	}
	for _, seg := range p.segments {
		if seg.kind != segmentWildcard {
			return false
		}
	}
	return true
}

// Token returns the index key of the pattern, or an empty string if the pattern has none.
//
// The key is the longest alphanumeric run of a literal that is bounded on both sides by a
// non-alphanumeric character, a separator or an anchor, so that it always coincides with a whole
// token of any URL the pattern matches.
func (p *Pattern) Token() string {
	if p.re != nil {
		return ""
	}

	var best string
	for i, seg := range p.segments {
		if seg.kind != segmentLiteral {
			continue
		}
		text := strings.ToLower(seg.text)
		leftBounded := i > 0 && p.segments[i-1].kind == segmentSeparator ||
			i == 0 && (p.startAnchor || p.domainAnchor)
		rightBounded := i < len(p.segments)-1 && p.segments[i+1].kind == segmentSeparator ||
			i == len(p.segments)-1 && p.endAnchor

		start := -1
		for j := 0; j <= len(text); j++ {
			if j < len(text) && tokenindex.IsTokenByte(text[j]) {
				if start == -1 {
					start = j
				}
				continue
			}
			if start == -1 {
				continue
			}
			run := text[start:j]
			bounded := (start > 0 || leftBounded) && (j < len(text) || rightBounded)
			start = -1
			if !bounded || !tokenindex.Usable(run) {
				continue
			}
			if len(run) > len(best) {
				best = run
			}
		}
	}
	return best
}

// LiteralLen returns the number of literal characters in the pattern.
func (p *Pattern) LiteralLen() int {
	if p.re != nil {
		return len(p.raw) - 2
	}
	n := 0
	for _, seg := range p.segments {
		n += len(seg.text)
	}
	return n
}

// Anchors returns the number of anchors in the pattern.
func (p *Pattern) Anchors() int {
	n := 0
	for _, anchored := range []bool{p.startAnchor, p.endAnchor, p.domainAnchor} {
		if anchored {
			n++
		}
	}
	return n
}

// IsRegexp reports whether the pattern is a regular expression.
func (p *Pattern) IsRegexp() bool {
	return p.re != nil
}

func (p *Pattern) String() string {
	return p.raw
}

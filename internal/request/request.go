// Package request describes the network requests matched against filter rules.
package request

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"

	"github.com/anfragment/zenfilter/internal/rule"
	"github.com/anfragment/zenfilter/internal/tokenindex"
)

// maxURLLength caps the part of a URL considered for matching.
const maxURLLength = 4096

var (
	// ErrInvalidRequest is returned for URLs that are not well-formed absolute http(s) or ws(s) URLs with a host.
	ErrInvalidRequest = errors.New("invalid request")
)

// supportedSchemes are the URL schemes network rules apply to.
var supportedSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
	"ws":    {},
	"wss":   {},
}

// Request is a single network request descriptor. Derived fields are computed once by New.
type Request struct {
	// URL is the request URL with an ASCII hostname.
	URL string
	// URLLowerCase is URL in lower case. Patterns without $match-case are matched against it.
	URLLowerCase string
	// Hostname is the lower-cased ASCII hostname of URL.
	Hostname string
	// Domain is the registrable domain of Hostname, or Hostname itself when it has none.
	Domain string
	// HostStart and HostEnd delimit Hostname inside URL.
	HostStart, HostEnd int

	// SourceURL is the URL of the page that initiated the request. It may be empty.
	SourceURL      string
	SourceHostname string
	SourceDomain   string

	Type rule.ResourceType
	// ThirdParty is true when the source domain is known and differs from Domain.
	ThirdParty bool

	// Tokens are the alphanumeric runs of URLLowerCase, used for index lookups.
	Tokens []string
}

// New creates a request for the given URL, initiating page URL and host-supplied type label.
// A source URL that cannot be parsed is treated as absent.
func New(rawURL, sourceURL, requestType string) (*Request, error) {
	u, host, err := parseAbsolute(rawURL)
	if err != nil {
		return nil, err
	}

	normalized := u.String()
	if len(normalized) > maxURLLength {
		normalized = normalized[:maxURLLength]
	}
	r := &Request{
		URL:          normalized,
		URLLowerCase: toLowerASCII(normalized),
		Hostname:     host,
		Domain:       RegistrableDomain(host),
		Type:         rule.ParseRequestType(requestType),
	}
	r.HostStart, r.HostEnd = hostBounds(r.URLLowerCase, host)
	r.Tokens = tokenindex.Tokenize(r.URLLowerCase)

	if sourceURL != "" {
		if su, sourceHost, err := parseAbsolute(sourceURL); err == nil {
			r.SourceURL = su.String()
			r.SourceHostname = sourceHost
			r.SourceDomain = RegistrableDomain(sourceHost)
		}
	}
	r.ThirdParty = r.SourceDomain != "" && r.SourceDomain != r.Domain

	return r, nil
}

// NewDocument creates a top-level document request for a page loading itself.
func NewDocument(rawURL string) (*Request, error) {
	return New(rawURL, rawURL, "document")
}

func parseAbsolute(rawURL string) (*url.URL, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, "", fmt.Errorf("%w: empty url", ErrInvalidRequest)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if !u.IsAbs() || u.Opaque != "" {
		return nil, "", fmt.Errorf("%w: %q is not an absolute url", ErrInvalidRequest, rawURL)
	}
	if _, ok := supportedSchemes[strings.ToLower(u.Scheme)]; !ok {
		return nil, "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidRequest, u.Scheme)
	}
	host, err := NormalizeHostname(u.Hostname())
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if host == "" {
		return nil, "", fmt.Errorf("%w: %q has no host", ErrInvalidRequest, rawURL)
	}
	if port := u.Port(); port != "" {
		u.Host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		u.Host = "[" + host + "]"
	} else {
		u.Host = host
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, host, nil
}

// NormalizeHostname lower-cases the hostname and converts internationalized names to punycode.
func NormalizeHostname(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return "", nil
	}
	if net.ParseIP(host) != nil || isASCII(host) {
		return host, nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return "", fmt.Errorf("convert %q to ascii: %w", host, err)
	}
	return ascii, nil
}

// RegistrableDomain returns the eTLD+1 of the hostname.
// For IP addresses, public suffixes and malformed names, it returns the hostname itself.
func RegistrableDomain(hostname string) string {
	n := len(hostname)
	if n == 0 || hostname[0] == '.' || hostname[n-1] == '.' {
		return hostname
	}
	if net.ParseIP(hostname) != nil {
		return hostname
	}

	suffix, _ := publicsuffix.PublicSuffix(hostname)
	i := n - len(suffix) - 1
	if i < 0 || hostname[i] != '.' {
		return hostname
	}
	return hostname[1+strings.LastIndexByte(hostname[:i], '.'):]
}

// hostBounds locates the hostname in the lower-cased URL, after the scheme and any userinfo.
func hostBounds(lowerURL, host string) (int, int) {
	start := strings.Index(lowerURL, "://")
	if start == -1 {
		return 0, 0
	}
	start += len("://")
	authorityEnd := len(lowerURL)
	if i := strings.IndexAny(lowerURL[start:], "/?#"); i != -1 {
		authorityEnd = start + i
	}
	if at := strings.LastIndexByte(lowerURL[start:authorityEnd], '@'); at != -1 {
		start += at + 1
	}
	if strings.HasPrefix(lowerURL[start:], "[") {
		start++
	}
	end := start + len(host)
	if end > len(lowerURL) {
		end = len(lowerURL)
	}
	return start, end
}

// toLowerASCII lower-cases ASCII letters only, so that byte offsets are shared with the original.
func toLowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if 'A' <= c && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

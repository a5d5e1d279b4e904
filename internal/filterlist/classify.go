// Package filterlist scans filter-list text, classifies each line and hands it to the matching rule parser.
package filterlist

import (
	"regexp"
	"strings"
)

// LineKind is the syntax family of a filter-list line.
type LineKind int8

const (
	LineBlank LineKind = iota
	LineComment
	LineScriptlet
	LineCosmetic
	LineUnsupportedCosmetic
	LineHosts
	LineNetwork
)

func (k LineKind) String() string {
	switch k {
	case LineBlank:
		return "blank"
	case LineComment:
		return "comment"
	case LineScriptlet:
		return "scriptlet"
	case LineCosmetic:
		return "cosmetic"
	case LineUnsupportedCosmetic:
		return "unsupported-cosmetic"
	case LineHosts:
		return "hosts"
	case LineNetwork:
		return "network"
	default:
		return "unknown"
	}
}

var (
	// ignoreLineRegex matches comments, [Adblock Plus 2.0]-style headers and hosts-file comments.
	ignoreLineRegex = regexp.MustCompile(`^(?:!|\[|#(?:[^#@%?$]|$))`)
	// scriptletRegex matches scriptlet rules and their exceptions.
	scriptletRegex = regexp.MustCompile(`#@?#\+js\(|#@?%#\/\/scriptlet\(`)
	// unsupportedCosmeticRegex matches extended CSS, CSS injection, JS injection and HTML filtering rules.
	unsupportedCosmeticRegex = regexp.MustCompile(`#@?\?#|#@?\$\??#|#@?%#|#@?#\^|\$@?\$`)
	// cosmeticRegex matches element hiding rules and their exceptions.
	cosmeticRegex = regexp.MustCompile(`#@?#`)

	reHosts       = regexp.MustCompile(`^(?:0\.0\.0\.0|127\.0\.0\.1|::1?)\s+(.+)`)
	reHostsIgnore = regexp.MustCompile(`^(?:0\.0\.0\.0|broadcasthost|local|localhost(?:\.localdomain)?|ip6-\w+)$`)
)

// Classify returns the kind of a trimmed line. The checks run in a fixed order: scriptlet markers
// are also cosmetic markers, and cosmetic markers may appear in what looks like a network rule.
func Classify(line string) LineKind {
	switch {
	case line == "":
		return LineBlank
	case ignoreLineRegex.MatchString(line):
		return LineComment
	case scriptletRegex.MatchString(line):
		return LineScriptlet
	case unsupportedCosmeticRegex.MatchString(line):
		return LineUnsupportedCosmetic
	case cosmeticRegex.MatchString(line):
		return LineCosmetic
	case reHosts.MatchString(line):
		return LineHosts
	default:
		return LineNetwork
	}
}

// HostsEntries returns the hostnames of a hosts-file line, skipping loopback and broadcast names.
func HostsEntries(line string) []string {
	// Strip the # and any characters after it
	if commentIndex := strings.IndexByte(line, '#'); commentIndex != -1 {
		line = line[:commentIndex]
	}

	match := reHosts.FindStringSubmatch(line)
	if match == nil {
		return nil
	}

	var hosts []string
	for _, host := range strings.Fields(match[1]) {
		if reHostsIgnore.MatchString(host) {
			continue
		}
		hosts = append(hosts, host)
	}
	return hosts
}
